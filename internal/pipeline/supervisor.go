// Package pipeline drives a candidate program from raw generated text to a
// rendered video: sanitize, validate, inject safety scaffolding, then render
// under a bounded-retry supervisor that escalates the repair ladder between
// attempts. A success is always a real render; there is no placeholder
// fallback.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sceneforge/internal/logging"
	"sceneforge/internal/render"
	"sceneforge/internal/repair"
)

// Supervisor owns the render-classify-repair-retry loop for one candidate.
type Supervisor struct {
	Renderer    render.Renderer
	WorkDir     string // scratch scene files and renderer media land here
	MaxAttempts int
	KeepScratch bool
}

// RunResult is a successful supervised render.
type RunResult struct {
	VideoPath   string
	FinalSource string // the text that actually rendered, post-repair
	Attempts    int
	TierReached repair.Tier
}

// Run renders the candidate, repairing and retrying on failure. The final
// attempt always renders the last-resort synthesis, so Run fails only when
// even that cannot render. On exhaustion the failing source is snapshotted
// next to the scratch file for inspection.
func (s *Supervisor) Run(ctx context.Context, requestID, entryType, source string) (*RunResult, error) {
	if s.MaxAttempts < 1 {
		s.MaxAttempts = 1
	}
	if err := os.MkdirAll(s.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	scratch := filepath.Join(s.WorkDir, "scene_"+requestID+".py")
	engine := repair.NewEngine()
	current := source
	var lastDiag string
	ran := 0

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		ran = attempt
		if err := os.WriteFile(scratch, []byte(current), 0644); err != nil {
			return nil, fmt.Errorf("failed to write scratch scene: %w", err)
		}

		logging.Pipeline("render attempt %d/%d for %s (tier so far: %s)",
			attempt, s.MaxAttempts, requestID, engine.Highest())

		out, err := s.Renderer.Render(ctx, render.Request{
			ScenePath: scratch,
			EntryType: entryType,
			OutputID:  requestID,
			MediaDir:  s.WorkDir,
		})
		if err != nil {
			return nil, fmt.Errorf("renderer invocation failed: %w", err)
		}

		if out.OK {
			if !s.KeepScratch {
				os.Remove(scratch)
			}
			logging.Pipeline("render succeeded for %s on attempt %d", requestID, attempt)
			return &RunResult{
				VideoPath:   out.VideoPath,
				FinalSource: current,
				Attempts:    attempt,
				TierReached: engine.Highest(),
			}, nil
		}

		lastDiag = out.Output
		if out.TimedOut || lastDiag == "" {
			lastDiag = out.Diagnostic
		}

		if attempt == s.MaxAttempts {
			break
		}

		class := repair.Classify(lastDiag)
		tier, ok := engine.Next(class)
		if !ok {
			break
		}
		// The final attempt must render something, so it always gets the
		// guaranteed-valid synthesis regardless of the error class.
		if attempt+1 == s.MaxAttempts {
			tier = repair.TierLastResort
		}
		logging.Pipeline("attempt %d failed (%s), escalating to tier %s", attempt, class, tier)
		current = repair.Apply(tier, current, entryType)
		engine.MarkApplied(tier)
	}

	debugPath := filepath.Join(s.WorkDir, "debug_scene_"+requestID+".py")
	if err := os.WriteFile(debugPath, []byte(current), 0644); err == nil {
		logging.Pipeline("saved failing candidate to %s for inspection", debugPath)
	}

	return nil, &FatalError{
		Diagnostic: lastDiag,
		Tier:       engine.Highest(),
		Attempts:   ran,
	}
}
