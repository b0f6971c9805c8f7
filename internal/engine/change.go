package engine

import (
	"fmt"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// ChangeType names what previously-captured fact moved.
type ChangeType string

const (
	ChangeDate         ChangeType = "date"
	ChangeRoom         ChangeType = "room"
	ChangeRequirements ChangeType = "requirements"
	ChangeProducts     ChangeType = "products"
)

// ChangeResult is the change detector output.
type ChangeResult struct {
	IsChange bool
	Type     ChangeType

	NewDate         *detect.Date
	NewRoom         string
	NewParticipants int
}

// RouteDecision is the DAG router output.
type RouteDecision struct {
	NextStep          int
	UpdatedCallerStep int
	SkipReason        string
}

// detectChange applies the dual-condition rule: a revision signal must be
// present AND a specific target bound. Suppressors: Q&A messages, active
// site-visit flows (for date changes), billing-capture mode, and
// high-confidence acceptances.
func (e *Engine) detectChange(ts *turnState, fromStep int) ChangeResult {
	det := ts.det
	ev := ts.event

	// Q&A never creates a detour. A question carrying a revision word
	// ("can we move it to...") is a request, not Q&A, and stays eligible.
	if det.IsGeneralQnA || det.Intent == detect.IntentGeneralQnA ||
		(det.IsQuestion && !det.RevisionSignal) {
		return ChangeResult{}
	}
	// Billing-capture mode suppresses all change detection.
	if ts.billingCaptured && ev.BillingRequirements.AwaitingBillingForAccept {
		return ChangeResult{}
	}
	// Acceptance-pattern messages short-circuit change detection entirely.
	if det.Acceptance.Match && det.Acceptance.Confidence >= e.cfg.Workflow.AcceptanceConfidence {
		return ChangeResult{}
	}
	if !det.RevisionSignal {
		return ChangeResult{}
	}

	siteVisitActive := ev.SiteVisitState.Status == domain.VisitDatePending ||
		ev.SiteVisitState.Status == domain.VisitScheduled

	// Date: different from chosen_date and textually present in the
	// message (hallucination guard: detect.Date carries its Raw fragment).
	if !siteVisitActive && ev.RequestedWindow != nil {
		for i := range det.Dates {
			d := &det.Dates[i]
			if d.Raw != "" && d.ISO != ev.RequestedWindow.DateISO {
				return ChangeResult{IsChange: true, Type: ChangeDate, NewDate: d}
			}
		}
	}

	if det.RoomMention != "" && ev.LockedRoomID != "" && det.RoomMention != ev.LockedRoomID {
		return ChangeResult{IsChange: true, Type: ChangeRoom, NewRoom: det.RoomMention}
	}

	if det.Participants > 0 && ev.Requirements.Participants > 0 &&
		det.Participants != ev.Requirements.Participants {
		return ChangeResult{IsChange: true, Type: ChangeRequirements, NewParticipants: det.Participants}
	}

	// Explicit product add/remove against the catalog.
	if fromStep >= domain.StepOffer {
		if matches := e.cat.MatchProducts(ts.messageText(), e.cfg.Workflow.ProductAutofillMin); len(matches) > 0 {
			return ChangeResult{IsChange: true, Type: ChangeProducts}
		}
	}

	return ChangeResult{}
}

// routeChange computes the detour target for a change type. Per-type
// state surgery: a detour never resets unrelated state.
func routeChange(ev *domain.EventRecord, changeType ChangeType, fromStep int) RouteDecision {
	d := RouteDecision{UpdatedCallerStep: ev.CallerStep}
	// Preserve the deepest caller across chained detours.
	if d.UpdatedCallerStep == 0 {
		d.UpdatedCallerStep = fromStep
	}

	switch changeType {
	case ChangeDate:
		if fromStep <= domain.StepIntake {
			d.SkipReason = "date change at intake is just intake"
			d.NextStep = fromStep
			return d
		}
		d.NextStep = domain.StepDate
	case ChangeRequirements:
		if ev.DateConfirmed {
			d.NextStep = domain.StepRoom
		} else {
			d.NextStep = domain.StepDate
		}
	case ChangeRoom:
		d.NextStep = domain.StepRoom
	case ChangeProducts:
		d.NextStep = domain.StepOffer
	default:
		d.SkipReason = "unknown change type"
		d.NextStep = fromStep
	}
	return d
}

// applyDetour performs the routed state surgery, emits the immediate
// detour-acknowledgment draft, and moves the cursor so the dispatcher's
// next iteration enters the target step.
func (e *Engine) applyDetour(ts *turnState, ch ChangeResult, fromStep int) {
	ev := ts.event
	decision := routeChange(ev, ch.Type, fromStep)
	if decision.SkipReason != "" {
		logger.Debug("change skipped", zap.String("reason", decision.SkipReason))
		return
	}

	switch ch.Type {
	case ChangeDate:
		// Preserve the lock; clear the eval hash so step 3 re-verifies.
		ev.RoomEvalHash = ""
		ev.DateConfirmed = false
		ev.PendingDateConfirmation = nil
		ev.PendingTimeRequest = nil
		ts.addDraft("change_ack", fmt.Sprintf(
			"Got it, updating your date to %s. Let me re-check the rooms for that day.",
			ch.NewDate.Display))
	case ChangeRequirements:
		ev.LockedRoomID = ""
		ev.RoomEvalHash = ""
		if ch.NewParticipants > 0 {
			ev.Requirements.Participants = ch.NewParticipants
			ev.RequirementsHash = ev.Requirements.Hash()
		}
		ts.addDraft("change_ack", "Got it, updating your requirements. Let me re-check which rooms fit.")
	case ChangeRoom:
		// Clear the lock, keep hashes.
		ev.LockedRoomID = ""
		ts.addDraft("change_ack", fmt.Sprintf("Got it, switching to %s. Let me verify availability.", ch.NewRoom))
	case ChangeProducts:
		ts.addDraft("change_ack", "Got it, updating the extras on your offer.")
	}

	// A backward detour invalidates an in-flight negotiation decision.
	if decision.NextStep < fromStep {
		ev.NegotiationPendingDecision = ""
	}

	ev.CallerStep = decision.UpdatedCallerStep
	ev.MoveToStep(decision.NextStep, "change_detector", fmt.Sprintf("%s change from step %d", ch.Type, fromStep))
	ts.setExtra("change_detour", string(ch.Type))
	ts.persist = true

	logger.Info("change detour",
		zap.String("event_id", ev.EventID),
		zap.String("change_type", string(ch.Type)),
		zap.Int("from_step", fromStep),
		zap.Int("next_step", decision.NextStep),
		zap.Int("caller_step", ev.CallerStep),
	)
}
