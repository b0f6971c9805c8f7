package engine

import "venuehq.io/banquet/internal/domain"

// stepTransition is step 6: the bridge between an approved negotiation
// and final confirmation.
func (e *Engine) stepTransition(ts *turnState) *stepResult {
	if res := e.preStep(ts, domain.StepTransition); res != nil {
		return res
	}
	ev := ts.event
	ev.TransitionReady = true
	ev.MoveToStep(domain.StepConfirmation, "engine", "transition to confirmation")
	ts.persist = true
	return continueTurn
}
