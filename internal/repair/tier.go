package repair

import "fmt"

// Tier is one level of the escalating repair ladder.
type Tier int

const (
	// TierNone marks the initial, unrepaired attempt.
	TierNone Tier = iota

	// TierSyntaxNormalize comments out stray context references and
	// rebuilds indentation from declaration nesting.
	TierSyntaxNormalize

	// TierStructuralRebuild discards everything before the first import
	// and reindents the whole artifact from scratch.
	TierStructuralRebuild

	// TierLastResort keeps only imports and declarations and synthesizes
	// a minimal guaranteed-valid body. Terminal.
	TierLastResort
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierSyntaxNormalize:
		return "syntax_normalize"
	case TierStructuralRebuild:
		return "structural_rebuild"
	case TierLastResort:
		return "last_resort_synthesis"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Engine selects the next repair tier for a classified failure. Selection is
// monotonic: the chosen tier is always strictly above every tier already
// applied in this run.
type Engine struct {
	highest Tier // highest tier applied so far; TierNone initially
}

// NewEngine returns an engine with no tiers attempted.
func NewEngine() *Engine {
	return &Engine{highest: TierNone}
}

// Highest returns the highest tier applied so far.
func (e *Engine) Highest() Tier {
	return e.highest
}

// Next picks the lowest not-yet-attempted tier known to address the error
// class. Returns false when the ladder is exhausted.
func (e *Engine) Next(class ErrorClass) (Tier, bool) {
	preferred := TierSyntaxNormalize
	if class == ErrorIndentationOrSyntax {
		preferred = TierStructuralRebuild
	}
	next := preferred
	if e.highest >= next {
		next = e.highest + 1
	}
	if next > TierLastResort {
		return TierNone, false
	}
	return next, true
}

// MarkApplied records that a tier was applied. Lower tiers than the current
// high-water mark are ignored, preserving monotonicity.
func (e *Engine) MarkApplied(t Tier) {
	if t > e.highest {
		e.highest = t
	}
}
