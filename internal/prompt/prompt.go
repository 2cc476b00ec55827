// Package prompt builds the instruction text sent to the generation service
// and post-processes what comes back: the animation-code system prompt, the
// narration scriptwriter, and the pre-generation prompt optimizer.
package prompt

import (
	"fmt"
	"strings"
)

// CodeSystemPrompt instructs the model to emit bare renderer code. The
// pipeline downstream assumes none of these rules were followed, but asking
// raises the hit rate of the first attempt considerably.
const CodeSystemPrompt = `You are an expert at generating Manim animation code.
Given a natural language prompt, you will generate Python code using Manim to create
beautiful and educational 2D animations. Follow these instructions EXACTLY:
1. ONLY return Python code with no explanations or additional text before or after
2. Do not include markdown code blocks or any other formatting
3. Do not include any statements like 'Here's the code', just start directly with the imports
4. Do not include triple backticks in your response anywhere
5. Ensure the code is fully functional and can run on its own
6. IMPORTANT: Do NOT use Tex or MathTex objects as they require LaTeX. Use Text instead.
7. Always include 'import math' if you need mathematical functions
8. Use Create() instead of ShowCreation() as it's deprecated in newer versions
9. CRITICAL: Always remove or fade out text and objects before adding new ones in the same area
10. CRITICAL: Be mindful of spatial composition, place elements with proper spacing and avoid overlap
11. Always plan the visual space in advance by defining clear regions for different elements`

// ScriptSystemPrompt instructs the model to write a timestamped narration
// script that the animation will later be aligned against.
const ScriptSystemPrompt = `You are an expert educational content creator specializing in clear, engaging narration scripts for educational videos. Your task is to create a detailed narration script that explains complex concepts in an accessible, engaging manner.

REQUIREMENTS:
1. Write a COMPLETE, PROFESSIONAL narration script
2. Structure the script in clear sections (Introduction, Main Concepts, Conclusion)
3. Include timestamps for key transition points
4. Write in a conversational, engaging tone appropriate for educational content
5. Keep sentences concise for easier narration
6. Use a logical progression that builds understanding step-by-step
7. End with a clear summary of key takeaways
8. Be COMPREHENSIVE and THOROUGH in your explanations`

// OptimizerSystemPrompt instructs the model to expand a terse user prompt
// into a detailed animation brief.
const OptimizerSystemPrompt = `You are an expert at enhancing user prompts for educational animation generation.
Your task is to take a brief user prompt and expand it into a detailed, comprehensive instruction
that will result in a highly educational and thorough animation.

Here's what you need to do:
1. Identify the core concept or topic in the user's prompt
2. Add specific details about what aspects of the topic should be covered
3. Suggest visual elements that would enhance understanding
4. Specify a logical sequence for explaining the concept
5. Include suggestions for specific examples or analogies that could be used
6. Ensure the enhanced prompt asks for a complete, thorough explanation`

// CodeRequest carries everything needed to build the code-generation user
// prompt.
type CodeRequest struct {
	Prompt    string
	EntryType string
	Narration string // optional timestamped script to align against
}

// BuildCodePrompt assembles the user prompt for animation-code generation.
func BuildCodePrompt(req CodeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a Manim animation for the following prompt:\n%s\n\n", req.Prompt)

	if req.Narration != "" {
		fmt.Fprintf(&b, "Here is the narration script that the animation should follow precisely:\n%s\n\n", req.Narration)
	}

	fmt.Fprintf(&b, `Requirements:
1. Use the Scene class named '%s'
2. Include all necessary imports (always start with 'from manim import *', and include 'import math' if needed)
3. Use appropriate animations and transitions
4. Add text labels and explanations where needed
5. IMPORTANT: Do NOT use Tex, MathTex, or any LaTeX-dependent objects as they require LaTeX. Use Text instead.
6. IMPORTANT: Use Create() instead of ShowCreation() as the latter is deprecated
7. IMPORTANT: Do NOT include any self.wait() or other self references outside of the construct method
8. Include a final self.wait(2) at the end of the construct method
9. EXTREMELY IMPORTANT: Do NOT include any triple backticks or markdown formatting in your code
10. ESSENTIAL: Keep all coordinate values between -6 and 6 for both x and y so elements stay on screen
`, req.EntryType)

	if req.Narration != "" {
		b.WriteString(`11. EXTREMELY IMPORTANT: Ensure the animations align with the timestamps and sections in the narration script
12. Use appropriate self.wait() durations to match narration timing
13. Always clean up the scene by using FadeOut() for objects no longer needed
`)
	}

	fmt.Fprintf(&b, `
The code MUST start exactly like this:
from manim import *
import math

class %s(Scene):
    def construct(self):
`, req.EntryType)

	return b.String()
}

// BuildScriptPrompt assembles the user prompt for narration-script
// generation. The timestamp format shown here is what the storyboard
// decomposer parses.
func BuildScriptPrompt(topic string) string {
	return fmt.Sprintf(`Create a detailed narration script for an educational video about:
%s

The script should:
1. Have a clear introduction that engages the viewer and explains what they'll learn
2. Break down the concept into clear, logical sections
3. Include timestamps for transitions between key points
4. Have a compelling conclusion that summarizes key takeaways
5. Be COMPREHENSIVE and THOROUGH

Format the script with timestamps like this:
[00:00] INTRODUCTION
(Introduction content here)

[00:30] FIRST CONCEPT
(First concept content here)

[XX:XX] CONCLUSION
(Conclusion content here)
`, topic)
}

// BuildEnhanceRequest assembles the user prompt for the optimizer.
func BuildEnhanceRequest(userPrompt string) string {
	return fmt.Sprintf(`Please enhance the following prompt for educational animation generation:

USER PROMPT: %s

Please create a detailed, comprehensive version of this prompt that will result in a thorough,
educational animation. The enhanced prompt should:

1. Specify what aspects of the topic should be covered
2. Suggest visual elements to include
3. Outline a logical sequence for explaining the concept
4. Include specific examples or analogies to use
5. Request a thorough and complete explanation

ENHANCED PROMPT:`, userPrompt)
}
