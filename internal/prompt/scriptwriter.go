package prompt

import (
	"context"
	"fmt"
	"strings"

	"sceneforge/internal/llm"
	"sceneforge/internal/logging"
)

// Scriptwriter produces timestamped narration scripts. Unlike prompt
// enhancement, a failed or truncated script is an error: the caller either
// needed the script for alignment or asked for it outright.
type Scriptwriter struct {
	client llm.Client
	minLen int
}

// NewScriptwriter returns a scriptwriter backed by the given client. minLen
// is the shortest script accepted as a real narration.
func NewScriptwriter(client llm.Client, minLen int) *Scriptwriter {
	if minLen <= 0 {
		minLen = 50
	}
	return &Scriptwriter{client: client, minLen: minLen}
}

// Write generates a narration script for the topic.
func (s *Scriptwriter) Write(ctx context.Context, topic string) (string, error) {
	script, err := s.client.CompleteWithSystem(ctx, ScriptSystemPrompt, BuildScriptPrompt(topic))
	if err != nil {
		return "", fmt.Errorf("narration script generation failed: %w", err)
	}

	script = strings.TrimSpace(script)
	if len(script) < s.minLen {
		return "", fmt.Errorf("generated narration script is too short or empty (%d chars)", len(script))
	}

	logging.LLM("narration script generated: %d chars", len(script))
	return script, nil
}
