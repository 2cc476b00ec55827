package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"sceneforge/internal/repair"
)

// ErrGenerationUnavailable marks failures of the generation service itself:
// transport errors, empty completions, or output too short to be a program.
// Nothing downstream of generation ran.
var ErrGenerationUnavailable = errors.New("generation service unavailable")

// StructuralDefectError reports a candidate that failed structural validation
// after sanitization and normalization, before any render attempt.
type StructuralDefectError struct {
	Missing     []string // required contract markers absent from the text
	Unsupported []string // forbidden constructs present in the text
}

func (e *StructuralDefectError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required elements: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unsupported) > 0 {
		parts = append(parts, "unsupported constructs: "+strings.Join(e.Unsupported, ", "))
	}
	return "structural validation failed: " + strings.Join(parts, "; ")
}

// FatalError reports an exhausted repair ladder: every attempt failed,
// including the guaranteed-renderable last resort.
type FatalError struct {
	Diagnostic string      // renderer output of the final attempt
	Tier       repair.Tier // highest tier applied before giving up
	Attempts   int
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("rendering failed after %d attempts (highest tier %s): %s",
		e.Attempts, e.Tier, firstLine(e.Diagnostic))
}

// CompositionAbortError reports a storyboard composition abandoned because
// one segment could not be generated or exhausted its own repair ladder. No
// partial composition survives.
type CompositionAbortError struct {
	SegmentTitle string
	Cause        error
}

func (e *CompositionAbortError) Error() string {
	return fmt.Sprintf("composition aborted at segment %q: %v", e.SegmentTitle, e.Cause)
}

func (e *CompositionAbortError) Unwrap() error {
	return e.Cause
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
