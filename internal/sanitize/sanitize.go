// Package sanitize strips formatting wrappers and unsafe characters from
// generated scene code. All functions are pure and idempotent: running the
// sanitizer over its own output changes nothing.
package sanitize

import (
	"strings"
)

// Clean applies the full sanitation pass: markdown fences out, typographic
// quotes normalized, characters outside the supported code page replaced
// with whitespace, and tabs expanded when indentation is mixed.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = StripFences(text)
	text = NormalizeQuotes(text)
	text = StripNonASCII(text)
	text = NormalizeIndentation(text)
	return text
}

// StripFences removes markdown code-fence artifacts: fence-only lines are
// dropped, and stray fences at the start or end of a line are trimmed off.
func StripFences(text string) string {
	lines := strings.Split(text, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "```" || trimmed == "```python" {
			continue
		}
		if strings.HasSuffix(trimmed, "```") {
			line = line[:strings.LastIndex(line, "```")]
		}
		if strings.HasPrefix(trimmed, "```") {
			line = line[strings.Index(line, "```")+3:]
		}
		clean = append(clean, line)
	}
	return strings.Join(clean, "\n")
}

// NormalizeQuotes converts typographic quotes to their plain equivalents.
func NormalizeQuotes(text string) string {
	replacer := strings.NewReplacer(
		"“", `"`, // left double
		"”", `"`, // right double
		"‘", "'", // left single
		"’", "'", // right single
	)
	return replacer.Replace(text)
}

// StripNonASCII replaces every character outside the ASCII code page with a
// single space. Newlines and tabs survive.
func StripNonASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// NormalizeIndentation expands tabs to four spaces, but only when the text
// mixes tab and space indentation. Uniformly tabbed or spaced code is left
// alone.
func NormalizeIndentation(text string) string {
	hasTabs := strings.Contains(text, "\t")
	hasSpaceIndent := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, " ") {
			hasSpaceIndent = true
			break
		}
	}
	if hasTabs && hasSpaceIndent {
		return strings.ReplaceAll(text, "\t", "    ")
	}
	return text
}
