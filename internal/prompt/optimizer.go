package prompt

import (
	"context"
	"strings"

	"sceneforge/internal/llm"
	"sceneforge/internal/logging"
)

// Optimizer expands terse user prompts into detailed animation briefs before
// code generation. Enhancement is best-effort: any failure falls back to the
// original prompt so a broken optimizer never blocks a generation.
type Optimizer struct {
	client llm.Client
}

// NewOptimizer returns an optimizer backed by the given client.
func NewOptimizer(client llm.Client) *Optimizer {
	return &Optimizer{client: client}
}

// Enhance returns an expanded version of the prompt, or the original prompt
// unchanged when enhancement fails or produces nothing usable.
func (o *Optimizer) Enhance(ctx context.Context, userPrompt string) string {
	if o == nil || o.client == nil {
		return userPrompt
	}
	if len(strings.TrimSpace(userPrompt)) < 3 {
		return userPrompt
	}

	enhanced, err := o.client.CompleteWithSystem(ctx, OptimizerSystemPrompt, BuildEnhanceRequest(userPrompt))
	if err != nil {
		logging.LLMWarn("prompt enhancement failed, using original prompt: %v", err)
		return userPrompt
	}

	enhanced = strings.TrimSpace(enhanced)
	// A degenerate enhancement (shorter than what it expands) is worthless.
	if len(enhanced) <= len(userPrompt) {
		logging.LLMWarn("prompt enhancement degenerate (len %d <= %d), using original prompt",
			len(enhanced), len(userPrompt))
		return userPrompt
	}

	logging.LLMDebug("prompt enhanced: %d -> %d chars", len(userPrompt), len(enhanced))
	return enhanced
}
