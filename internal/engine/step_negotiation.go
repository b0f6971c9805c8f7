package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// stepNegotiation is step 5: classify the client's stance on the current
// offer and route it. Acceptance funnels through the confirmation gate.
func (e *Engine) stepNegotiation(_ context.Context, ts *turnState) *stepResult {
	if res := e.preStep(ts, domain.StepNegotiation); res != nil {
		return res
	}
	ev := ts.event
	e.promoteCaptured(ts, domain.StepNegotiation)

	// Re-entry while an acceptance is in flight: billing arrived, or the
	// deposit got paid out of band. Re-run the gate, nothing to classify.
	if ev.OfferAccepted &&
		(ts.billingCaptured || ts.det.DepositPaid || ts.msg.Extras.DepositJustPaid) {
		return e.runAcceptGate(ts)
	}

	switch e.classifyNegotiation(ts) {
	case "accept":
		ev.OfferAccepted = true
		ev.NegotiationPendingDecision = "accept"
		ts.persist = true
		return e.runAcceptGate(ts)

	case "decline":
		ev.NegotiationPendingDecision = ""
		ev.OfferStatus = domain.OfferDeclined
		if o := ev.CurrentOffer(); o != nil {
			o.Status = domain.OfferDeclined
		}
		ts.persist = true
		ev.MoveToStep(domain.StepConfirmation, "engine", "offer declined")
		return continueTurn

	case "counter":
		return e.handleCounter(ts)

	case "room_selection":
		ev.MoveToStep(domain.StepRoom, "engine", "room selection during negotiation")
		return continueTurn

	default:
		ts.addDraft("negotiation_clarify", e.clarifyPrompt(ts))
		ev.ThreadState = domain.ThreadAwaitingClient
		ts.persist = true
		return haltTurn
	}
}

// classifyNegotiation maps detection signals onto the step 5 decision set.
func (e *Engine) classifyNegotiation(ts *turnState) string {
	det := ts.det
	switch {
	case det.Acceptance.Match && det.Acceptance.Confidence >= e.cfg.Workflow.AcceptanceConfidence:
		return "accept"
	case det.Decline:
		return "decline"
	case det.Counter:
		return "counter"
	case det.RoomMention != "" && det.RoomMention != ts.event.LockedRoomID:
		return "room_selection"
	}
	return "clarification"
}

// handleCounter counts the round and escalates past the threshold.
func (e *Engine) handleCounter(ts *turnState) *stepResult {
	ev := ts.event
	ev.NegotiationState.CounterCount++
	ts.persist = true

	logger.Info("counter offer received",
		zap.String("event_id", ev.EventID),
		zap.Int("round", ev.NegotiationState.CounterCount),
	)

	if ev.NegotiationState.CounterCount >= e.cfg.Workflow.MaxCounterRounds {
		task := e.enqueueManualReview(ts, fmt.Sprintf(
			"counter-offer round %d reached the negotiation threshold", ev.NegotiationState.CounterCount))
		ev.NegotiationState.ManualReviewTaskID = task.TaskID
		ts.addDraft("counter_escalated",
			"Thank you for your patience. Our events manager is reviewing the pricing personally and will come back to you with a final proposal.")
		return haltTurn
	}

	ts.addDraft("counter_ack",
		"We hear you on the budget. The quoted rates already reflect our seasonal pricing, but we can look at trimming the extras or shifting to an off-peak slot. Which direction would you prefer?")
	ev.ThreadState = domain.ThreadAwaitingClient
	ts.persist = true
	return haltTurn
}

// clarifyPrompt builds the disambiguation question from whatever weak
// signals fired.
func (e *Engine) clarifyPrompt(ts *turnState) string {
	var options []string
	if ts.det.Acceptance.Match {
		options = append(options, "accept the offer as it stands")
	}
	if ts.det.RoomMention != "" {
		options = append(options, "switch to "+ts.det.RoomMention)
	}
	if len(ts.det.Dates) > 0 {
		options = append(options, "move the date to "+ts.det.Dates[0].Display)
	}
	if len(options) == 0 {
		return "Just so we get it right: would you like to accept the offer, adjust something, or do you have a question about it?"
	}
	return fmt.Sprintf("Just to be sure we understood you: would you like to %s?",
		strings.Join(options, ", or "))
}
