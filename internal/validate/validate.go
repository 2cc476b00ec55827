package validate

import (
	"fmt"
	"strings"
)

// Result is the outcome of a structural validation pass.
type Result struct {
	Valid bool

	// Missing lists the contract markers absent from the candidate,
	// rendered with the expected entry-type name.
	Missing []string

	// RenameFrom is set when the candidate declares exactly one Scene
	// subclass of the right shape under the wrong name. A rename repair
	// suffices; the tier ladder is not needed.
	RenameFrom string

	// Unsupported lists constructors the renderer cannot execute (LaTeX).
	Unsupported []string
}

// Markers returns the three contract markers for an entry-type name.
func Markers(entryType string) (imp, class, construct string) {
	return ImportMarker,
		fmt.Sprintf("class %s(Scene):", entryType),
		"def construct(self):"
}

// Check validates sanitized text against the fixed contract for the expected
// entry-type name. The missing-marker list contains exactly the markers that
// are absent, in contract order.
func Check(text, entryType string) Result {
	impMarker, classMarker, constructMarker := Markers(entryType)
	res := Result{}

	if !DetectImport(text) {
		res.Missing = append(res.Missing, impMarker)
	}

	classes := DetectSceneClasses(text)
	expected := 0
	for _, c := range classes {
		if c.Name == entryType {
			expected++
		}
	}
	switch {
	case expected == 1 && len(classes) == 1:
		// Exactly one declared entry type with the expected name.
	case expected == 0 && len(classes) == 1 && DetectConstruct(text):
		// Right shape, wrong name: flag the cheap rename path.
		res.Missing = append(res.Missing, classMarker)
		res.RenameFrom = classes[0].Name
	default:
		res.Missing = append(res.Missing, classMarker)
	}

	if !DetectConstruct(text) {
		res.Missing = append(res.Missing, constructMarker)
	}

	res.Unsupported = DetectLaTeX(text)
	res.Valid = len(res.Missing) == 0 && len(res.Unsupported) == 0
	return res
}

// RenameEntryType rewrites the single Scene subclass declaration from one
// name to another, along with any references to the old name.
func RenameEntryType(text, from, to string) string {
	if from == "" || from == to {
		return text
	}
	decl := fmt.Sprintf("class %s(", from)
	if !strings.Contains(text, decl) {
		return text
	}
	return strings.ReplaceAll(text, from, to)
}
