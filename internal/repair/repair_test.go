package repair

import (
	"strings"
	"testing"

	"sceneforge/internal/validate"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		diagnostic string
		want       ErrorClass
	}{
		{"NameError: name 'self' is not defined", ErrorUndefinedContextReference},
		{"  File \"scene.py\", line 3\nIndentationError: unexpected indent", ErrorIndentationOrSyntax},
		{"SyntaxError: invalid syntax", ErrorIndentationOrSyntax},
		{"Segmentation fault", ErrorUnknown},
		{"", ErrorUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.diagnostic); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.diagnostic, got, tc.want)
		}
	}
}

func TestEngineSelectsTierForClass(t *testing.T) {
	e := NewEngine()
	tier, ok := e.Next(ErrorUndefinedContextReference)
	if !ok || tier != TierSyntaxNormalize {
		t.Errorf("got %v/%v, want tier 0", tier, ok)
	}

	e = NewEngine()
	tier, ok = e.Next(ErrorIndentationOrSyntax)
	if !ok || tier != TierStructuralRebuild {
		t.Errorf("got %v/%v, want tier 1", tier, ok)
	}
}

// Unclassifiable failures walk the whole ladder in order.
func TestEngineEscalatesUnknownFailures(t *testing.T) {
	e := NewEngine()
	want := []Tier{TierSyntaxNormalize, TierStructuralRebuild, TierLastResort}
	for i, expected := range want {
		tier, ok := e.Next(ErrorUnknown)
		if !ok {
			t.Fatalf("step %d: ladder exhausted early", i)
		}
		if tier != expected {
			t.Fatalf("step %d: tier = %v, want %v", i, tier, expected)
		}
		e.MarkApplied(tier)
	}
	if _, ok := e.Next(ErrorUnknown); ok {
		t.Error("ladder should be exhausted after the last resort")
	}
}

// Tiers never regress, even when a later failure maps to a lower tier.
func TestEngineMonotonic(t *testing.T) {
	e := NewEngine()
	tier, _ := e.Next(ErrorIndentationOrSyntax) // tier 1
	e.MarkApplied(tier)

	next, ok := e.Next(ErrorUndefinedContextReference) // prefers tier 0
	if !ok {
		t.Fatal("expected a tier")
	}
	if next <= tier {
		t.Errorf("tier regressed: %v after %v", next, tier)
	}
}

func TestSyntaxNormalizeCommentsStrayContextRefs(t *testing.T) {
	text := `from manim import *

self.wait(1)

class CustomAnimation(Scene):
    def construct(self):
        title = Text("Hi")
        self.play(Write(title))
`
	out := SyntaxNormalize(text)
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "self.wait(1)") && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			t.Errorf("stray context reference not commented out: %q", line)
		}
	}
	if !strings.Contains(out, "        self.play(Write(title))") {
		t.Errorf("in-body reference damaged:\n%s", out)
	}
}

func TestSyntaxNormalizeRebuildsIndentation(t *testing.T) {
	text := "from manim import *\n\nclass CustomAnimation(Scene):\ndef construct(self):\ntitle = Text(\"Hi\")\nself.play(Write(title))\n"
	out := SyntaxNormalize(text)
	if !strings.Contains(out, "    def construct(self):") {
		t.Errorf("construct not indented one level:\n%s", out)
	}
	if !strings.Contains(out, "        title = Text(\"Hi\")") {
		t.Errorf("body not indented two levels:\n%s", out)
	}
	// Once reindented into the construct body, the context reference is
	// legitimate and must survive uncommented.
	if !strings.Contains(out, "        self.play(Write(title))") {
		t.Errorf("in-body reference lost:\n%s", out)
	}
}

func TestStructuralRebuildDropsPreamble(t *testing.T) {
	text := "Sure! Here is your animation:\n```python\nfrom manim import *\nclass CustomAnimation(Scene):\n  def construct(self):\n      title = Text(\"Hi\")\n```\n"
	out := StructuralRebuild(text)
	if strings.Contains(out, "Sure!") {
		t.Error("preamble survived")
	}
	if strings.Contains(out, "```") {
		t.Error("fence lines survived")
	}
	if !strings.HasPrefix(out, "from manim import *") {
		t.Errorf("output does not start at the import: %q", out[:30])
	}
	if !strings.Contains(out, "        title = Text(\"Hi\")") {
		t.Errorf("body indentation not rebuilt:\n%s", out)
	}
}

// The last resort must pass structural validation for any input at all.
func TestLastResortAlwaysValid(t *testing.T) {
	inputs := []string{
		"",
		"complete garbage %%% ]]] }}}",
		"from manim import *\nimport math\nclass Whatever(Scene):\n    def construct(self):\n        MathTex(r\"x\")",
		"```python\nnothing useful\n```",
		"from manim import *\nfrom manim import *\nimport numpy as np",
		"import os  # Tex( smuggled",
	}
	for _, in := range inputs {
		out := LastResortSynthesis(in, "CustomAnimation")
		res := validate.Check(out, "CustomAnimation")
		if !res.Valid {
			t.Errorf("last resort output invalid for %q: missing=%v unsupported=%v\n%s",
				in, res.Missing, res.Unsupported, out)
		}
	}
}

func TestLastResortKeepsDedupedImports(t *testing.T) {
	in := "from manim import *\nfrom manim import *\nimport numpy as np\nimport numpy as np\n"
	out := LastResortSynthesis(in, "CustomAnimation")
	if strings.Count(out, "import numpy as np") != 1 {
		t.Errorf("imports not deduplicated:\n%s", out)
	}
	if strings.Count(out, "from manim import *") != 1 {
		t.Errorf("manim import duplicated:\n%s", out)
	}
}

func TestApplyDispatch(t *testing.T) {
	in := "from manim import *"
	if got := Apply(TierNone, in, "CustomAnimation"); got != in {
		t.Error("TierNone must not modify the candidate")
	}
	out := Apply(TierLastResort, "", "CustomAnimation")
	if !validate.Check(out, "CustomAnimation").Valid {
		t.Error("dispatched last resort is invalid")
	}
}
