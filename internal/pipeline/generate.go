package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sceneforge/internal/artifact"
	"sceneforge/internal/config"
	"sceneforge/internal/llm"
	"sceneforge/internal/logging"
	"sceneforge/internal/prompt"
	"sceneforge/internal/safety"
	"sceneforge/internal/sanitize"
	"sceneforge/internal/validate"
)

// Generator runs the whole flow: prompt enhancement, optional narration
// script, code generation, the text pipeline, and the supervised render.
type Generator struct {
	Client       llm.Client
	Optimizer    *prompt.Optimizer    // nil disables enhancement
	Scriptwriter *prompt.Scriptwriter // nil disables narration
	Supervisor   *Supervisor
	Store        *artifact.Store // nil disables the audit trail
	Config       *config.Config
}

// Request is one generation job.
type Request struct {
	Prompt    string
	EntryType string // empty uses the configured default
	Narration string // pre-supplied script; skips the scriptwriter
	RequestID string // empty assigns a fresh id
}

// Result is a completed generation.
type Result struct {
	RequestID   string
	VideoPath   string
	Source      string
	Script      string
	Attempts    int
	TierReached string
}

// Generate produces a rendered video for the request.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	entryType := req.EntryType
	if entryType == "" {
		entryType = g.Config.Generation.EntryType
	}

	logging.Pipeline("generation %s started: %q", requestID, truncate(req.Prompt, 80))

	source, script, err := g.GenerateSource(ctx, req.Prompt, entryType, req.Narration)
	if err != nil {
		g.record(artifact.Record{
			RequestID: requestID, Prompt: req.Prompt, EntryType: entryType,
			FinalSource: "", TierReached: "none",
		})
		return nil, err
	}

	run, err := g.Supervisor.Run(ctx, requestID, entryType, source)
	if err != nil {
		rec := artifact.Record{
			RequestID: requestID, Prompt: req.Prompt, EntryType: entryType,
			FinalSource: source, TierReached: "none",
		}
		var fatal *FatalError
		if errors.As(err, &fatal) {
			rec.Attempts = fatal.Attempts
			rec.TierReached = fatal.Tier.String()
		}
		g.record(rec)
		return nil, err
	}

	g.record(artifact.Record{
		RequestID:   requestID,
		Prompt:      req.Prompt,
		EntryType:   entryType,
		FinalSource: run.FinalSource,
		VideoPath:   run.VideoPath,
		TierReached: run.TierReached.String(),
		Attempts:    run.Attempts,
		Succeeded:   true,
	})

	return &Result{
		RequestID:   requestID,
		VideoPath:   run.VideoPath,
		Source:      run.FinalSource,
		Script:      script,
		Attempts:    run.Attempts,
		TierReached: run.TierReached.String(),
	}, nil
}

// GenerateSource runs everything up to (but not including) the supervised
// render: enhancement, narration, code generation, sanitization,
// normalization, validation with the rename repair, and safety injection.
// The returned source is structurally valid for the entry type.
func (g *Generator) GenerateSource(ctx context.Context, userPrompt, entryType, narration string) (source, script string, err error) {
	promptText := userPrompt
	if g.Config.Generation.OptimizePrompt && g.Optimizer != nil {
		promptText = g.Optimizer.Enhance(ctx, userPrompt)
	}

	script = narration
	if script == "" && g.Config.Generation.NarrationScript && g.Scriptwriter != nil {
		script, err = g.Scriptwriter.Write(ctx, promptText)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
	}

	raw, err := g.Client.CompleteWithSystem(ctx, prompt.CodeSystemPrompt, prompt.BuildCodePrompt(prompt.CodeRequest{
		Prompt:    promptText,
		EntryType: entryType,
		Narration: script,
	}))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	if len(strings.TrimSpace(raw)) < g.Config.Generation.MinCodeLen {
		return "", "", fmt.Errorf("%w: generated code too short (%d chars)",
			ErrGenerationUnavailable, len(strings.TrimSpace(raw)))
	}

	text := validate.Normalize(sanitize.Clean(raw))

	res := validate.Check(text, entryType)
	if !res.Valid && res.RenameFrom != "" {
		// A single well-formed scene under the wrong name is a rename, not
		// a defect. This is preprocessing, not a render attempt.
		logging.Pipeline("renaming scene class %s -> %s", res.RenameFrom, entryType)
		text = validate.RenameEntryType(text, res.RenameFrom, entryType)
		res = validate.Check(text, entryType)
	}
	if !res.Valid {
		return "", "", &StructuralDefectError{Missing: res.Missing, Unsupported: res.Unsupported}
	}

	text, clamped := safety.Apply(text, safety.Options{
		BoundaryThreshold: g.Config.Safety.BoundaryThreshold,
		ClampThreshold:    g.Config.Safety.ClampThreshold,
		RegionScaffoldMin: g.Config.Safety.RegionScaffoldMin,
	})
	if clamped > 0 {
		logging.Pipeline("clamped %d risky placement calls", clamped)
	}

	return text, script, nil
}

func (g *Generator) record(rec artifact.Record) {
	if g.Store == nil {
		return
	}
	if err := g.Store.Save(rec); err != nil {
		logging.Store("failed to record generation %s: %v", rec.RequestID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
