// Package validate checks generated scene code against the fixed renderer
// contract: the manim import, exactly one Scene subclass with the expected
// name, and a construct method with the single-self signature. Detection is
// a set of small pure functions over the source text; the repair engine and
// the safety injector reuse them.
package validate

import (
	"regexp"
	"strings"
)

// ImportMarker is the required renderer-namespace import prefix.
const ImportMarker = "from manim import"

var (
	sceneClassRe = regexp.MustCompile(`(?m)^\s*class\s+(\w+)\s*\(\s*Scene\s*\)\s*:`)
	constructRe  = regexp.MustCompile(`(?m)^\s*def\s+construct\s*\(\s*self\s*\)\s*:`)
	latexRe      = regexp.MustCompile(`\b(MathTex|Tex)\s*\(`)
)

// SceneClass is one detected entry-type declaration.
type SceneClass struct {
	Name string
	Line int // zero-based line of the declaration
}

// DetectImport reports whether the renderer-namespace import is present.
func DetectImport(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ImportMarker) {
			return true
		}
	}
	return false
}

// DetectSceneClasses returns every declared Scene subclass in order.
func DetectSceneClasses(text string) []SceneClass {
	var classes []SceneClass
	for i, line := range strings.Split(text, "\n") {
		if m := sceneClassRe.FindStringSubmatch(line); m != nil {
			classes = append(classes, SceneClass{Name: m[1], Line: i})
		}
	}
	return classes
}

// DetectConstruct reports whether a construct method with the expected
// single-self signature exists.
func DetectConstruct(text string) bool {
	return constructRe.MatchString(text)
}

// DetectLaTeX returns the names of LaTeX-dependent object constructors used
// in the text. The renderer runs without LaTeX, so these always fail.
func DetectLaTeX(text string) []string {
	seen := map[string]bool{}
	var found []string
	for _, m := range latexRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			found = append(found, m[1])
		}
	}
	return found
}
