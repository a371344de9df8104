package classify

import "github.com/gretools/greharvest/internal/taxonomy"

// Tracker is the explicit state machine for the running category while an
// index page is scanned in document order. It starts in StateNoCategory;
// every classified block transitions it to StateCategory with that
// block's label, and the label then carries over to unclassified blocks
// until the next marker is seen.
type Tracker struct {
	state   State
	current Result
}

// NewTracker returns a tracker in StateNoCategory.
func NewTracker() *Tracker {
	return &Tracker{state: StateNoCategory}
}

// Observe transitions on a block classification. Blocks that did not
// classify leave the state unchanged (carry-over).
func (t *Tracker) Observe(res Result, ok bool) {
	if !ok {
		return
	}
	t.state = StateCategory
	t.current = res
}

// Current returns the active classification, if any.
func (t *Tracker) Current() (Result, bool) {
	if t.state == StateNoCategory {
		return Result{}, false
	}
	return t.current, true
}

// State returns the tracker's current state.
func (t *Tracker) State() State {
	return t.state
}

// CurrentLabel is a convenience accessor for the active label.
func (t *Tracker) CurrentLabel() (taxonomy.Label, bool) {
	res, ok := t.Current()
	return res.Label, ok
}
