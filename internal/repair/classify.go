// Package repair implements the escalating ladder of deterministic rewrites
// applied between render attempts, and the classifier that maps renderer
// diagnostics onto repair tiers. Tier selection is monotonic within one
// supervisor run: the ladder never steps down.
package repair

import "strings"

// ErrorClass categorizes a renderer failure from its diagnostic text.
type ErrorClass int

const (
	// ErrorUnknown covers unclassifiable diagnostics, including timeouts.
	ErrorUnknown ErrorClass = iota

	// ErrorUndefinedContextReference is a self reference outside the
	// construct body (NameError at module level).
	ErrorUndefinedContextReference

	// ErrorIndentationOrSyntax is a parse failure.
	ErrorIndentationOrSyntax
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorUndefinedContextReference:
		return "undefined_context_reference"
	case ErrorIndentationOrSyntax:
		return "indentation_or_syntax"
	default:
		return "unknown"
	}
}

// Classify derives an ErrorClass from the renderer's combined output.
func Classify(diagnostic string) ErrorClass {
	switch {
	case strings.Contains(diagnostic, "NameError: name 'self' is not defined"):
		return ErrorUndefinedContextReference
	case strings.Contains(diagnostic, "IndentationError"),
		strings.Contains(diagnostic, "SyntaxError"):
		return ErrorIndentationOrSyntax
	default:
		return ErrorUnknown
	}
}
