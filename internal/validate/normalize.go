package validate

import (
	"strings"
)

// Normalize applies the cheap, deterministic rewrites that precede
// validation: explanatory prose before the first import is dropped,
// deprecated renderer calls are modernized, obviously missing imports are
// supplied, and the construct body gains a final wait so the last frame is
// viewable.
func Normalize(text string) string {
	text = TrimLeadingProse(text)
	text = strings.ReplaceAll(text, "ShowCreation(", "Create(")
	text = injectMissingImports(text)
	text = EnsureFinalWait(text)
	return text
}

// TrimLeadingProse drops everything before the first renderer-namespace
// import. Generation services tend to prepend "Here's the code" banter.
func TrimLeadingProse(text string) string {
	if strings.HasPrefix(strings.TrimSpace(text), ImportMarker) {
		return text
	}
	idx := strings.Index(text, ImportMarker)
	if idx == -1 {
		return text
	}
	return text[idx:]
}

// injectMissingImports prepends math/numpy imports when their namespaces are
// used but never imported.
func injectMissingImports(text string) string {
	if strings.Contains(text, "math.") && !strings.Contains(text, "import math") {
		text = "import math\n" + text
	}
	if strings.Contains(text, "np.") && !strings.Contains(text, "import numpy as np") {
		text = "import numpy as np\n" + text
	}
	return text
}

// EnsureFinalWait appends a self.wait(2) after the last construct-body
// statement unless the body already ends with a wait.
func EnsureFinalWait(text string) string {
	lines := strings.Split(text, "\n")

	last := -1
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		last = i
		break
	}
	if last == -1 {
		return text
	}

	line := lines[last]
	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	// Only statements inside a construct body qualify; top-level trailing
	// code gets no wait.
	if len(indent) == 0 || !DetectConstruct(text) {
		return text
	}
	if strings.Contains(line, "self.wait") {
		return text
	}

	out := append([]string{}, lines[:last+1]...)
	out = append(out, indent+"self.wait(2)")
	out = append(out, lines[last+1:]...)
	return strings.Join(out, "\n")
}
