package safety

import (
	"strings"
	"testing"
)

func defaultOpts() Options {
	return Options{
		BoundaryThreshold: 6.0,
		ClampThreshold:    6.5,
		RegionScaffoldMin: 3,
	}
}

func TestApplyClampsOutOfBoundsOffsets(t *testing.T) {
	text := `from manim import *

class CustomAnimation(Scene):
    def construct(self):
        far = Text("Far Left").move_to(LEFT * 10)
        near = Text("Near").move_to(RIGHT * 2)
        self.play(Write(far))
`
	out, clamped := Apply(text, defaultOpts())
	if clamped != 1 {
		t.Fatalf("clamped = %d, want 1", clamped)
	}
	if !strings.Contains(out, "move_to("+HelperName+"(LEFT * 10))") {
		t.Errorf("risky call not wrapped:\n%s", out)
	}
	if strings.Contains(out, HelperName+"(RIGHT * 2)") {
		t.Errorf("safe call was wrapped:\n%s", out)
	}
	if !strings.Contains(out, "def "+HelperName) {
		t.Error("helper not injected")
	}
	if !strings.Contains(out, "import numpy as np") {
		t.Error("numpy import missing for helper")
	}
}

func TestApplyHandlesCompoundOffsets(t *testing.T) {
	text := `from manim import *
import numpy as np

class CustomAnimation(Scene):
    def construct(self):
        a = Text("A").shift(UP * 8 + RIGHT * 3)
        b = Text("B").shift(2 * DOWN)
        c = Text("C").move_to(np.array([9, -1, 0]))
`
	out, clamped := Apply(text, defaultOpts())
	if clamped != 2 {
		t.Fatalf("clamped = %d, want 2 (compound and vector)", clamped)
	}
	if !strings.Contains(out, "shift("+HelperName+"(UP * 8 + RIGHT * 3))") {
		t.Errorf("compound offset not wrapped:\n%s", out)
	}
	if !strings.Contains(out, "move_to("+HelperName+"(np.array([9, -1, 0])))") {
		t.Errorf("vector offset not wrapped:\n%s", out)
	}
	if strings.Contains(out, HelperName+"(2 * DOWN)") {
		t.Error("in-bounds reversed-order offset was wrapped")
	}
}

// Applying the injector twice must yield the same text as applying it once.
func TestApplyIdempotent(t *testing.T) {
	inputs := []string{
		`from manim import *

class CustomAnimation(Scene):
    def construct(self):
        t = Text("X").move_to(LEFT * 15)
        self.play(Write(t))
`,
		`from manim import *

class CustomAnimation(Scene):
    def construct(self):
        a = Text("a").move_to(LEFT * 9)
        b = Text("b").shift(UP * 12)
        c = Text("c")
        d = Text("d")
        self.play(Write(a), Write(b))
`,
		"no placements at all",
	}
	for _, in := range inputs {
		once, _ := Apply(in, defaultOpts())
		twice, n := Apply(once, defaultOpts())
		if once != twice {
			t.Errorf("not idempotent:\n once: %s\ntwice: %s", once, twice)
		}
		if n != 0 {
			t.Errorf("second pass clamped %d calls, want 0", n)
		}
	}
}

func TestRegionScaffoldingInjectedForTextHeavyScenes(t *testing.T) {
	text := `from manim import *

class CustomAnimation(Scene):
    def construct(self):
        a = Text("a")
        b = Text("b")
        c = Text("c")
        d = Text("d")
        self.play(Write(a))
`
	out, _ := Apply(text, defaultOpts())
	for _, region := range []string{"TITLE_REGION", "MAIN_REGION", "FOOTNOTE_REGION"} {
		if !strings.Contains(out, region) {
			t.Errorf("region %s not injected", region)
		}
	}
	// Scaffolding lands inside the construct body.
	if !strings.Contains(out, "        TITLE_REGION = UP * 3.2") {
		t.Errorf("scaffold indentation wrong:\n%s", out)
	}
}

func TestRegionScaffoldingSkippedWhenRegionsDeclared(t *testing.T) {
	text := `from manim import *

class CustomAnimation(Scene):
    def construct(self):
        HEADER_REGION = UP * 3
        a = Text("a")
        b = Text("b")
        c = Text("c")
        d = Text("d")
`
	out, _ := Apply(text, defaultOpts())
	if strings.Contains(out, "TITLE_REGION") {
		t.Error("scaffolding injected despite declared regions")
	}
}

func TestRegionScaffoldingSkippedForFewTexts(t *testing.T) {
	text := `from manim import *

class CustomAnimation(Scene):
    def construct(self):
        a = Text("a")
`
	out, _ := Apply(text, defaultOpts())
	if strings.Contains(out, "TITLE_REGION") {
		t.Error("scaffolding injected for a scene with few text elements")
	}
}

func TestMaxOffsetMagnitude(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"LEFT * 10", 10},
		{"10 * LEFT", 10},
		{"UP * 2.5 + RIGHT * 3", 3},
		{"ORIGIN", 0},
		{"UP", 1},
		{"np.array([7, -2, 0])", 7},
		{"np.array([-8.5, 1, 0])", 8.5},
	}
	for _, tc := range cases {
		if got := maxOffsetMagnitude(tc.expr); got != tc.want {
			t.Errorf("maxOffsetMagnitude(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}
