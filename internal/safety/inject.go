// Package safety rewrites risky spatial-placement calls in validated scene
// code so every placed element stays inside the renderer's visible region.
// Offsets beyond the configured threshold are routed through an injected
// clamping helper. The rewrite is idempotent: calls already routed through
// the helper are left alone.
package safety

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sceneforge/internal/logging"
)

// HelperName is the injected clamping function.
const HelperName = "ensure_within_bounds"

// Options carries the tunable placement heuristics.
type Options struct {
	// Offsets with any scalar component above this are considered risky.
	BoundaryThreshold float64

	// The helper clamps positions to this magnitude.
	ClampThreshold float64

	// Region constants are injected when more text elements than this
	// exist with no declared regions.
	RegionScaffoldMin int
}

// placementMethods are the spatial-placement calls whose offset argument can
// push an element off screen.
var placementMethods = []string{".move_to(", ".shift("}

var (
	// coefficient * DIRECTION or DIRECTION * coefficient
	dirScaleRe = regexp.MustCompile(
		`(?:(\d+(?:\.\d+)?)\s*\*\s*)?\b(UP|DOWN|LEFT|RIGHT|UL|UR|DL|DR)\b(?:\s*\*\s*(\d+(?:\.\d+)?))?`)

	// numeric components of a literal vector like [8, -1, 0]
	vectorComponentRe = regexp.MustCompile(`\[\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)

	textElementRe  = regexp.MustCompile(`\bText\s*\(`)
	regionDeclRe   = regexp.MustCompile(`\b[A-Z_]+_REGION\s*=`)
	constructDefRe = regexp.MustCompile(`(?m)^(\s*)def\s+construct\s*\(\s*self\s*\)\s*:`)
)

// Apply scans validated text for risky placements, injects the clamping
// helper, and rewrites every risky call to route its offset through it. It
// also injects named screen-region constants as layout scaffolding when many
// text elements exist without any declared regions. Returns the rewritten
// text and the number of call sites clamped.
func Apply(text string, opts Options) (string, int) {
	rewritten, clamped := clampRiskyCalls(text, opts.BoundaryThreshold)
	if clamped > 0 {
		rewritten = injectHelper(rewritten, opts.ClampThreshold)
		logging.Get(logging.CategorySafety).Infof("clamped %d risky placement(s)", clamped)
	}
	rewritten = injectRegionScaffolding(rewritten, opts.RegionScaffoldMin)
	return rewritten, clamped
}

// clampRiskyCalls rewrites each placement call whose offset magnitude
// exceeds the threshold.
func clampRiskyCalls(text string, threshold float64) (string, int) {
	clamped := 0
	for _, method := range placementMethods {
		var b strings.Builder
		rest := text
		for {
			idx := strings.Index(rest, method)
			if idx == -1 {
				b.WriteString(rest)
				break
			}
			argStart := idx + len(method)
			argEnd, ok := matchParen(rest, argStart)
			if !ok {
				b.WriteString(rest[:argStart])
				rest = rest[argStart:]
				continue
			}
			arg := rest[argStart:argEnd]
			b.WriteString(rest[:argStart])
			if !strings.HasPrefix(strings.TrimSpace(arg), HelperName+"(") &&
				maxOffsetMagnitude(arg) > threshold {
				b.WriteString(HelperName + "(" + arg + ")")
				clamped++
			} else {
				b.WriteString(arg)
			}
			rest = rest[argEnd:]
		}
		text = b.String()
	}
	return text, clamped
}

// matchParen returns the index of the closing parenthesis matching the one
// just before start, scanning with nesting.
func matchParen(s string, start int) (int, bool) {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// maxOffsetMagnitude extracts the largest scalar component of a
// directional-offset expression.
func maxOffsetMagnitude(expr string) float64 {
	max := 0.0
	for _, m := range dirScaleRe.FindAllStringSubmatch(expr, -1) {
		coeff := 1.0
		if m[1] != "" {
			coeff, _ = strconv.ParseFloat(m[1], 64)
		} else if m[3] != "" {
			coeff, _ = strconv.ParseFloat(m[3], 64)
		}
		if coeff > max {
			max = coeff
		}
	}
	for _, m := range vectorComponentRe.FindAllStringSubmatch(expr, -1) {
		for _, comp := range m[1:] {
			v, _ := strconv.ParseFloat(comp, 64)
			if v < 0 {
				v = -v
			}
			if v > max {
				max = v
			}
		}
	}
	return max
}

// injectHelper inserts the module-level clamping function after the import
// block. Skipped when the helper is already present.
func injectHelper(text string, limit float64) string {
	if strings.Contains(text, "def "+HelperName) {
		return text
	}
	if !strings.Contains(text, "import numpy as np") {
		text = "import numpy as np\n" + text
	}

	helper := fmt.Sprintf(`

def %s(position, limit=%.1f):
    arr = np.array(position, dtype=float)
    magnitude = float(np.linalg.norm(arr))
    if magnitude > limit:
        return arr * (limit / magnitude)
    return arr
`, HelperName, limit)

	lines := strings.Split(text, "\n")
	insertAt := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
			insertAt = i + 1
		}
	}
	out := append([]string{}, lines[:insertAt]...)
	out = append(out, helper)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n")
}

// injectRegionScaffolding declares named screen regions at the top of the
// construct body when the scene places many text elements with no regions of
// its own. Advisory only; validity never depends on it.
func injectRegionScaffolding(text string, minTexts int) string {
	if minTexts <= 0 {
		return text
	}
	if len(textElementRe.FindAllString(text, -1)) <= minTexts {
		return text
	}
	if regionDeclRe.MatchString(text) {
		return text
	}
	loc := constructDefRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}
	indent := text[loc[2]:loc[3]] + "    "
	scaffold := "\n" +
		indent + "TITLE_REGION = UP * 3.2\n" +
		indent + "MAIN_REGION = ORIGIN\n" +
		indent + "FOOTNOTE_REGION = DOWN * 3.2\n"

	lineEnd := strings.Index(text[loc[1]:], "\n")
	if lineEnd == -1 {
		return text + scaffold
	}
	insert := loc[1] + lineEnd
	return text[:insert] + scaffold + text[insert+1:]
}
