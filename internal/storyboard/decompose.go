// Package storyboard splits a timestamped narration script into segments,
// generates an animation per segment, and composes the segment scenes into
// one master scene sharing a single timeline.
package storyboard

import (
	"regexp"
	"strings"
)

// Segment is one titled block of the narration script.
type Segment struct {
	Index     int    // 1-based position in the script
	Title     string // header text after the timestamp
	Timestamp string // "mm:ss" as written in the script
	Body      string // narration text up to the next header
}

var headerRe = regexp.MustCompile(`(?m)^\s*\[(\d{1,2}:\d{2})\]\s*(\S.*)$`)

// Decompose splits a narration script on its [mm:ss] headers. A script
// without headers becomes a single segment, so any non-empty script yields
// at least one segment.
func Decompose(script string) []Segment {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}

	locs := headerRe.FindAllStringSubmatchIndex(script, -1)
	if len(locs) == 0 {
		return []Segment{{Index: 1, Title: "Full Narration", Body: script}}
	}

	var segments []Segment
	for i, loc := range locs {
		timestamp := script[loc[2]:loc[3]]
		title := strings.TrimSpace(script[loc[4]:loc[5]])

		bodyStart := loc[1]
		bodyEnd := len(script)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(script[bodyStart:bodyEnd])

		segments = append(segments, Segment{
			Index:     i + 1,
			Title:     title,
			Timestamp: timestamp,
			Body:      body,
		})
	}

	// Narration before the first header still belongs to the storyboard.
	if locs[0][0] > 0 {
		preamble := strings.TrimSpace(script[:locs[0][0]])
		if preamble != "" {
			for i := range segments {
				segments[i].Index++
			}
			segments = append([]Segment{{Index: 1, Title: "Preamble", Body: preamble}}, segments...)
		}
	}

	return segments
}
