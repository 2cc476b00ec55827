package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"sceneforge/internal/artifact"
	"sceneforge/internal/config"
	"sceneforge/internal/prompt"
	"sceneforge/internal/render"
	"sceneforge/internal/repair"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// fakeRenderer replays scripted outcomes and records the scene source of
// every attempt.
type fakeRenderer struct {
	outcomes []*render.Outcome
	sources  []string
	calls    int
}

func (f *fakeRenderer) Render(_ context.Context, req render.Request) (*render.Outcome, error) {
	data, err := os.ReadFile(req.ScenePath)
	if err != nil {
		return nil, err
	}
	f.sources = append(f.sources, string(data))

	i := f.calls
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	f.calls++
	out := *f.outcomes[i]
	if out.OK && out.VideoPath == "" {
		out.VideoPath = filepath.Join("outputs", req.OutputID+".mp4")
	}
	return &out, nil
}

func ok() *render.Outcome {
	return &render.Outcome{OK: true, ExitCode: 0}
}

func fail(diag string) *render.Outcome {
	return &render.Outcome{ExitCode: 1, Output: diag, Diagnostic: diag}
}

const validScene = `from manim import *
import math

class CustomAnimation(Scene):
    def construct(self):
        title = Text("Hello")
        self.play(Write(title))
        self.wait(2)
`

func newSupervisor(t *testing.T, r render.Renderer, attempts int) *Supervisor {
	t.Helper()
	return &Supervisor{Renderer: r, WorkDir: t.TempDir(), MaxAttempts: attempts}
}

func TestSupervisorFirstAttemptSuccess(t *testing.T) {
	fr := &fakeRenderer{outcomes: []*render.Outcome{ok()}}
	s := newSupervisor(t, fr, 3)

	res, err := s.Run(context.Background(), "req1", "CustomAnimation", validScene)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d", res.Attempts)
	}
	if res.TierReached != repair.TierNone {
		t.Errorf("tier = %v, want none", res.TierReached)
	}
	if res.FinalSource != validScene {
		t.Error("source modified without any failure")
	}
}

func TestSupervisorEscalatesThenSucceeds(t *testing.T) {
	fr := &fakeRenderer{outcomes: []*render.Outcome{
		fail("NameError: name 'self' is not defined"),
		fail("SyntaxError: invalid syntax"),
		ok(),
	}}
	s := newSupervisor(t, fr, 3)

	broken := "from manim import *\n\nself.wait(1)\n\n" + validScene[len("from manim import *\n"):]
	res, err := s.Run(context.Background(), "req2", "CustomAnimation", broken)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d", res.Attempts)
	}
	// The final attempt always renders the guaranteed synthesis.
	if res.TierReached != repair.TierLastResort {
		t.Errorf("tier = %v, want last resort", res.TierReached)
	}
	if !strings.Contains(fr.sources[2], "Simplified Animation") {
		t.Errorf("final attempt did not use the synthesized body:\n%s", fr.sources[2])
	}
	if fr.sources[1] == fr.sources[0] {
		t.Error("second attempt rendered an unrepaired candidate")
	}
}

func TestSupervisorExhaustionIsFatal(t *testing.T) {
	fr := &fakeRenderer{outcomes: []*render.Outcome{fail("Segmentation fault")}}
	s := newSupervisor(t, fr, 3)

	_, err := s.Run(context.Background(), "req3", "CustomAnimation", validScene)
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	if fatal.Attempts != 3 {
		t.Errorf("attempts = %d", fatal.Attempts)
	}
	if fatal.Tier != repair.TierLastResort {
		t.Errorf("tier = %v", fatal.Tier)
	}
	// The failing candidate is kept for inspection.
	if _, statErr := os.Stat(filepath.Join(s.WorkDir, "debug_scene_req3.py")); statErr != nil {
		t.Errorf("debug snapshot missing: %v", statErr)
	}
}

// Tier escalation never steps back down, whatever the later failures claim.
func TestSupervisorTiersMonotonic(t *testing.T) {
	fr := &fakeRenderer{outcomes: []*render.Outcome{
		fail("IndentationError: unexpected indent"),
		fail("NameError: name 'self' is not defined"),
		fail("NameError: name 'self' is not defined"),
	}}
	s := newSupervisor(t, fr, 4)

	_, err := s.Run(context.Background(), "req4", "CustomAnimation", validScene)
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	// Indentation failure starts at the structural tier; the NameError after
	// it must escalate to the last resort rather than drop to tier 0.
	if !strings.Contains(fr.sources[2], "Simplified Animation") {
		t.Errorf("third attempt should have reached the last resort:\n%s", fr.sources[2])
	}
	if fatal.Tier != repair.TierLastResort {
		t.Errorf("tier = %v", fatal.Tier)
	}
}

// stub llm client for generator tests
type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Complete(ctx context.Context, p string) (string, error) {
	return s.CompleteWithSystem(ctx, "", p)
}

func (s *stubLLM) CompleteWithSystem(ctx context.Context, sys, user string) (string, error) {
	return s.response, s.err
}

func newGenerator(t *testing.T, client *stubLLM, fr render.Renderer) *Generator {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Generation.OptimizePrompt = false
	cfg.Generation.NarrationScript = false
	return &Generator{
		Client:     client,
		Supervisor: newSupervisor(t, fr, cfg.Pipeline.MaxAttempts),
		Config:     cfg,
	}
}

func TestGenerateHappyPath(t *testing.T) {
	raw := "Here is your animation:\n```python\nfrom manim import *\nimport math\n\nclass CustomAnimation(Scene):\n    def construct(self):\n        title = Text(“Hello”)\n        self.play(ShowCreation(title))\n        self.wait(2)\n```"
	fr := &fakeRenderer{outcomes: []*render.Outcome{ok()}}
	g := newGenerator(t, &stubLLM{response: raw}, fr)

	res, err := g.Generate(context.Background(), Request{Prompt: "explain gravity"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.VideoPath == "" {
		t.Error("no video path")
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d", res.Attempts)
	}
	if strings.Contains(res.Source, "```") {
		t.Error("fences survived the pipeline")
	}
	if strings.Contains(res.Source, "ShowCreation") {
		t.Error("deprecated call not rewritten")
	}
	if strings.Contains(res.Source, "“") {
		t.Error("curly quotes survived the pipeline")
	}
}

func TestGenerateRenamesMismatchedScene(t *testing.T) {
	raw := "from manim import *\nimport math\n\nclass GravityScene(Scene):\n    def construct(self):\n        title = Text(\"Hello\")\n        self.play(Write(title))\n        self.wait(2)\n"
	fr := &fakeRenderer{outcomes: []*render.Outcome{ok()}}
	g := newGenerator(t, &stubLLM{response: raw}, fr)

	res, err := g.Generate(context.Background(), Request{Prompt: "explain gravity"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(res.Source, "class CustomAnimation(Scene):") {
		t.Errorf("scene class not renamed:\n%s", res.Source)
	}
	if strings.Contains(res.Source, "GravityScene") {
		t.Error("original name survived")
	}
}

func TestGenerateReportsStructuralDefects(t *testing.T) {
	raw := strings.Repeat("This is just prose about gravity, no code at all. ", 3)
	g := newGenerator(t, &stubLLM{response: raw}, &fakeRenderer{outcomes: []*render.Outcome{ok()}})

	_, err := g.Generate(context.Background(), Request{Prompt: "explain gravity"})
	var defect *StructuralDefectError
	if !errors.As(err, &defect) {
		t.Fatalf("expected StructuralDefectError, got %v", err)
	}
	if len(defect.Missing) != 3 {
		t.Errorf("missing = %v, want all three markers", defect.Missing)
	}
}

func TestGenerateRejectsLaTeX(t *testing.T) {
	raw := "from manim import *\nimport math\n\nclass CustomAnimation(Scene):\n    def construct(self):\n        eq = MathTex(r\"E=mc^2\")\n        self.play(Write(eq))\n        self.wait(2)\n"
	g := newGenerator(t, &stubLLM{response: raw}, &fakeRenderer{outcomes: []*render.Outcome{ok()}})

	_, err := g.Generate(context.Background(), Request{Prompt: "explain relativity"})
	var defect *StructuralDefectError
	if !errors.As(err, &defect) {
		t.Fatalf("expected StructuralDefectError, got %v", err)
	}
	if len(defect.Unsupported) == 0 {
		t.Error("LaTeX constructs not reported")
	}
}

func TestGenerateShortOutputIsUnavailable(t *testing.T) {
	g := newGenerator(t, &stubLLM{response: "hi"}, &fakeRenderer{outcomes: []*render.Outcome{ok()}})

	_, err := g.Generate(context.Background(), Request{Prompt: "explain gravity"})
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerateScriptFailureIsUnavailable(t *testing.T) {
	fr := &fakeRenderer{outcomes: []*render.Outcome{ok()}}
	g := newGenerator(t, &stubLLM{response: validScene}, fr)
	g.Config.Generation.NarrationScript = true
	g.Scriptwriter = prompt.NewScriptwriter(&stubLLM{err: errors.New("down")}, 50)

	_, err := g.Generate(context.Background(), Request{Prompt: "explain gravity"})
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerateRecordsAudit(t *testing.T) {
	store, err := artifact.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	fr := &fakeRenderer{outcomes: []*render.Outcome{ok()}}
	g := newGenerator(t, &stubLLM{response: validScene}, fr)
	g.Store = store

	res, err := g.Generate(context.Background(), Request{Prompt: "explain gravity"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	rec, err := store.Get(res.RequestID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !rec.Succeeded {
		t.Error("success not recorded")
	}
	if rec.FinalSource == "" {
		t.Error("final source not recorded")
	}
}
