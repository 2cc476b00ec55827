package storyboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sceneforge/internal/logging"
	"sceneforge/internal/pipeline"
)

// SourceGenerator produces a validated scene source for one prompt. Satisfied
// by pipeline.Generator.
type SourceGenerator interface {
	GenerateSource(ctx context.Context, prompt, entryType, narration string) (source, script string, err error)
}

// Composer turns a narration script into one composed animation: a scene per
// segment, merged under a master scene that owns the timeline.
type Composer struct {
	Source            SourceGenerator
	Supervisor        *pipeline.Supervisor
	EntryType         string  // master scene name
	Workers           int     // concurrent segment generations, 1 = sequential
	InterSegmentPause float64 // seconds of wait between segments
}

// Result is a completed composition.
type Result struct {
	RequestID string
	VideoPath string
	Source    string
	Segments  []Segment

	// Attempts counts every supervised render: each segment's plus the
	// master's. TierReached is the highest tier any of them needed.
	Attempts    int
	TierReached string
}

// Compose generates and supervises a scene per script segment, merges the
// segments' final sources, and renders the master under the supervisor. Any
// segment failure aborts the whole composition; the merged master is never
// rendered, and nothing partial survives.
func (c *Composer) Compose(ctx context.Context, topic, script string) (*Result, error) {
	segments := Decompose(script)
	if len(segments) == 0 {
		return nil, fmt.Errorf("narration script is empty, nothing to compose")
	}

	logging.Compose("composing %d segments for %q", len(segments), topic)

	sources := make([]string, len(segments))
	entries := make([]string, len(segments))
	runs := make([]*pipeline.RunResult, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, seg := range segments {
		g.Go(func() error {
			entry := fmt.Sprintf("SectionScene%d", seg.Index)
			segPrompt := fmt.Sprintf("%s (section: %s)", topic, seg.Title)
			src, _, err := c.Source.GenerateSource(gctx, segPrompt, entry, seg.Body)
			if err != nil {
				return &pipeline.CompositionAbortError{SegmentTitle: seg.Title, Cause: err}
			}
			// Each segment is supervised on its own, so render failures are
			// repaired inside the segment instead of by rewriting the merged
			// artifact. A segment that exhausts the ladder aborts the whole
			// composition.
			run, err := c.Supervisor.Run(gctx, uuid.NewString(), entry, src)
			if err != nil {
				return &pipeline.CompositionAbortError{SegmentTitle: seg.Title, Cause: err}
			}
			logging.Compose("segment %d (%s) rendered: %d attempts, tier %s",
				seg.Index, seg.Title, run.Attempts, run.TierReached)
			sources[i] = run.FinalSource
			entries[i] = entry
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	master := Merge(sources, entries, c.EntryType, c.InterSegmentPause)

	requestID := uuid.NewString()
	run, err := c.Supervisor.Run(ctx, requestID, c.EntryType, master)
	if err != nil {
		return nil, err
	}

	attempts := run.Attempts
	tier := run.TierReached
	for _, r := range runs {
		attempts += r.Attempts
		if r.TierReached > tier {
			tier = r.TierReached
		}
	}

	return &Result{
		RequestID:   requestID,
		VideoPath:   run.VideoPath,
		Source:      run.FinalSource,
		Segments:    segments,
		Attempts:    attempts,
		TierReached: tier.String(),
	}, nil
}

// Merge combines segment sources into one module: deduplicated imports in
// first-seen order, each segment's module body verbatim, then a master scene
// that runs every segment scene against its own timeline. Segment scenes
// never drive the renderer directly; their play/wait/add are rebound to the
// master before construct runs.
func Merge(sources, entries []string, masterEntry string, pause float64) string {
	var imports []string
	seen := map[string]bool{}
	var bodies []string

	for _, src := range sources {
		var body []string
		for _, line := range strings.Split(src, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
				if !seen[trimmed] {
					seen[trimmed] = true
					imports = append(imports, trimmed)
				}
				continue
			}
			body = append(body, line)
		}
		bodies = append(bodies, strings.Trim(strings.Join(body, "\n"), "\n"))
	}

	var b strings.Builder
	b.WriteString(strings.Join(imports, "\n"))
	b.WriteString("\n\n")
	for _, body := range bodies {
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "class %s(Scene):\n", masterEntry)
	b.WriteString("    def construct(self):\n")
	for i, entry := range entries {
		fmt.Fprintf(&b, "        section = %s()\n", entry)
		b.WriteString("        section.play = self.play\n")
		b.WriteString("        section.wait = self.wait\n")
		b.WriteString("        section.add = self.add\n")
		b.WriteString("        section.construct()\n")
		if i+1 < len(entries) {
			fmt.Fprintf(&b, "        self.wait(%g)\n", pause)
		}
	}
	return b.String()
}
