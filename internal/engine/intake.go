package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// intake is step 1: the nonsense gate, event location/creation, fact
// capture. Returns true when the turn halts here.
func (e *Engine) intake(_ context.Context, ts *turnState) (halt bool) {
	// Nonsense gate: low confidence and nothing the workflow can act on.
	// A low-signal reply inside a live thread still flows to the step
	// handler; only threadless messages get ignored or escalated.
	if ts.cls.Confidence < e.cfg.Workflow.NonsenseConfidence && !ts.det.HasWorkflowSignals() {
		if ts.det.Gibberish {
			// Silent ignore: no draft, no persistence.
			ts.action = "ignored_nonsense"
			ts.persist = false
			return true
		}
		if ts.locateEvent() == nil {
			if ts.cls.Label == detect.IntentNonEvent {
				ts.action = "ignored_non_event"
				ts.persist = false
				return true
			}
			e.enqueueManualReview(ts, "low-confidence off-topic message")
			ts.action = "manual_review"
			return true
		}
	}

	ts.event = ts.locateEvent()

	// Linking rules: a fresh inquiry against a closed or date-locked
	// thread warrants a new event record.
	if ts.event != nil && e.newEventWarranted(ts) {
		logger.Info("new event warranted despite existing thread",
			zap.String("prior_event", ts.event.EventID),
			zap.String("prior_status", string(ts.event.Status)),
		)
		ts.event = nil
	}

	if ts.event == nil {
		return e.intakeNewInquiry(ts)
	}
	return e.intakeExistingEvent(ts)
}

// locateEvent resolves the event the message belongs to: explicit
// extras.event_id, then thread match, then the client's most recent
// non-terminal event.
func (ts *turnState) locateEvent() *domain.EventRecord {
	if ts.msg.Extras.EventID != "" {
		if ev := ts.db.FindEvent(ts.msg.Extras.EventID); ev != nil {
			return ev
		}
	}
	for _, ev := range ts.db.EventsForClient(ts.msg.FromEmail) {
		if ev.ThreadID == ts.msg.ThreadID && ts.msg.ThreadID != "" {
			return ev
		}
	}
	for _, ev := range ts.db.EventsForClient(ts.msg.FromEmail) {
		if !ev.Terminal() {
			return ev
		}
	}
	// Terminal fallback so a follow-up on a closed event still links.
	events := ts.db.EventsForClient(ts.msg.FromEmail)
	if len(events) > 0 {
		return events[0]
	}
	return nil
}

// newEventWarranted applies the split rules: confirmed/cancelled prior,
// a different date on a fresh inquiry, or an inquiry while only a site
// visit is in progress.
func (e *Engine) newEventWarranted(ts *turnState) bool {
	ev := ts.event
	freshInquiry := ts.det.Intent == detect.IntentEventRequest && !ts.det.RevisionSignal

	if ev.Terminal() {
		return freshInquiry
	}
	if freshInquiry && ev.DateConfirmed && len(ts.det.Dates) > 0 {
		if ev.RequestedWindow != nil && ts.det.Dates[0].ISO != ev.RequestedWindow.DateISO {
			return true
		}
	}
	if freshInquiry && ev.SiteVisitState.Status == domain.VisitScheduled && ev.CurrentStep == domain.StepIntake {
		return true
	}
	return false
}

// intakeNewInquiry creates the event for a brand-new inquiry, or answers
// statelessly when the message doesn't warrant one.
func (e *Engine) intakeNewInquiry(ts *turnState) (halt bool) {
	// Pure Q&A without an event: answer from the catalogs, no record.
	if ts.det.Intent == detect.IntentGeneralQnA {
		e.answerQnA(ts)
		ts.action = "qna"
		return true
	}
	if ts.det.Intent == detect.IntentNonEvent {
		ts.action = "ignored_non_event"
		ts.persist = false
		return true
	}

	// Confidence gate for event creation.
	if ts.cls.Confidence < e.cfg.Workflow.IntakeConfidence {
		e.enqueueManualReview(ts, fmt.Sprintf("intake confidence %.2f below threshold", ts.cls.Confidence))
		ts.action = "manual_review"
		return true
	}

	ev := &domain.EventRecord{
		EventID:     NewID(),
		ThreadID:    ts.msg.ThreadID,
		ClientEmail: ts.msg.FromEmail,
		CreatedAt:   time.Now().UTC(),
		Status:      domain.EventOpen,
		CurrentStep: domain.StepIntake,
		ThreadState: domain.ThreadInProgress,
	}
	domain.BackfillEvent(ev)
	ts.db.Events = append(ts.db.Events, ev)
	ts.client.EventIDs = append(ts.client.EventIDs, ev.EventID)
	ts.event = ev
	ts.persist = true

	e.populateRequirements(ts)
	e.captureBilling(ts)
	e.captureFacts(ts)

	logger.Info("event created",
		zap.String("event_id", ev.EventID),
		zap.String("client", ev.ClientEmail),
		zap.String("intent", ts.cls.Label),
	)
	return false
}

// intakeExistingEvent refreshes capture state on a located event.
func (e *Engine) intakeExistingEvent(ts *turnState) (halt bool) {
	ev := ts.event

	if ev.Terminal() {
		// Frozen except audit appends.
		ev.Audit = append(ev.Audit, domain.AuditEntry{
			TS: time.Now().UTC(), Actor: "client", FromStep: ev.CurrentStep,
			ToStep: ev.CurrentStep, Reason: "message on closed event",
		})
		ts.addDraft("event_closed", fmt.Sprintf(
			"This booking is already %s. If you would like to plan a new event, just tell us the date and number of guests.",
			ev.Status))
		ts.action = "event_closed"
		return true
	}

	if ts.msg.Extras.DepositJustPaid && !ev.DepositInfo.Paid {
		now := time.Now().UTC()
		ev.DepositInfo.Paid = true
		ev.DepositInfo.PaidAt = &now
		ts.persist = true
	}

	e.captureBilling(ts)
	e.captureFacts(ts)
	return false
}

// populateRequirements fills the structured needs from statement facts at
// event creation.
func (e *Engine) populateRequirements(ts *turnState) {
	ev := ts.event
	statementText := joinStatements(ts)
	stDet := detect.Analyze(statementText, detect.Options{
		RoomNames:       e.cat.RoomNames(),
		RevisionLexicon: e.cfg.Workflow.RevisionLexicon,
		Now:             ts.msg.TS,
	})

	if stDet.Participants > 0 {
		ev.Requirements.Participants = stDet.Participants
	} else if p, ok := ts.userInfo["participants"].(int); ok {
		ev.Requirements.Participants = p
	}
	if stDet.RoomMention != "" {
		ev.Requirements.PreferredRoom = stDet.RoomMention
	}
	if tr := stDet.TimeRange; tr != nil && tr.End != "" {
		ev.Requirements.EventDuration = tr.Start + "-" + tr.End
	}
	ev.RequirementsHash = ev.Requirements.Hash()
	ts.persist = true
}

// captureBilling stores a recognized billing fragment from any message,
// even when embedded in a larger request.
func (e *Engine) captureBilling(ts *turnState) {
	frag := ts.det.Billing
	if frag == nil {
		return
	}
	b := &ts.event.BillingDetails
	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&b.Company, frag.Company)
	merge(&b.Street, frag.Street)
	merge(&b.PostalCode, frag.PostalCode)
	merge(&b.City, frag.City)
	merge(&b.Country, frag.Country)
	merge(&b.VATID, frag.VATID)

	ts.billingCaptured = true
	ts.persist = true
	e.capture(ts, "billing.address", fmt.Sprintf("%s, %s, %s %s, %s",
		b.Company, b.Street, b.PostalCode, b.City, b.Country), domain.StepNegotiation)
}

func joinStatements(ts *turnState) string {
	out := ""
	for _, s := range ts.det.Statements {
		out += s + " "
	}
	return out
}
