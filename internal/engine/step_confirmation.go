package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/calendar"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// stepConfirmation is step 7: the final yes/no. The message resolves to
// one of confirm, deposit_paid, reserve, decline, change or question;
// changes and questions were already mediated by the step preamble.
func (e *Engine) stepConfirmation(ts *turnState) *stepResult {
	if res := e.preStep(ts, domain.StepConfirmation); res != nil {
		return res
	}
	ev := ts.event
	det := ts.det

	switch {
	case ts.msg.Extras.DepositJustPaid || det.DepositPaid:
		return e.confirmDepositPaid(ts)

	case det.Decline:
		return e.confirmDecline(ts)

	case det.Reserve:
		return e.confirmReserve(ts)

	case det.FinalYes || (det.Acceptance.Match && det.Acceptance.Confidence >= e.cfg.Workflow.AcceptanceConfidence):
		return e.finalConfirm(ts)
	}

	ev.ConfirmationState.Pending = &domain.PendingConfirmation{Kind: "final_confirm"}
	display := ev.ChosenDate
	if ev.RequestedWindow != nil {
		display = displayISO(ev.RequestedWindow.DateISO)
	}
	ts.addDraft("confirm_prompt", fmt.Sprintf(
		"Shall we finalize your booking for %s in %s?", display, ev.LockedRoomID))
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// confirmDepositPaid acknowledges the deposit and asks for the final go.
func (e *Engine) confirmDepositPaid(ts *turnState) *stepResult {
	ev := ts.event
	if !ev.DepositInfo.Paid {
		now := time.Now().UTC()
		ev.DepositInfo.Paid = true
		ev.DepositInfo.PaidAt = &now
	}
	ev.ConfirmationState.LastResponseType = "deposit_paid"
	ev.ConfirmationState.Pending = &domain.PendingConfirmation{Kind: "final_confirm"}
	ts.addDraft("deposit_ack",
		"Thank you, the deposit is received. Shall we finalize the booking?")
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// confirmDecline cancels the event.
func (e *Engine) confirmDecline(ts *turnState) *stepResult {
	ev := ts.event
	ev.Status = domain.EventCancelled
	ev.ConfirmationState.LastResponseType = "decline"
	ev.ConfirmationState.Pending = nil
	ts.addDraft("booking_cancelled",
		"Understood, we have cancelled the booking. We would be delighted to host you another time.")
	ev.ThreadState = domain.ThreadAwaitingClient
	ts.persist = true
	logger.Info("booking cancelled",
		zap.String("event_id", ev.EventID),
		zap.String("client", ev.ClientEmail),
	)
	return haltTurn
}

// confirmReserve creates an Option held until the deposit due date.
func (e *Engine) confirmReserve(ts *turnState) *stepResult {
	ev := ts.event
	ev.Status = domain.EventOption
	ev.ConfirmationState.LastResponseType = "reserve"
	holdUntil := ts.msg.TS.AddDate(0, 0, e.cfg.Offer.OptionHoldDays).Format("2006-01-02")
	if ev.DepositInfo.DueDate == "" || ev.DepositInfo.DueDate > holdUntil {
		ev.DepositInfo.DueDate = holdUntil
	}
	display := ev.ChosenDate
	if ev.RequestedWindow != nil {
		display = displayISO(ev.RequestedWindow.DateISO)
	}
	ts.addDraft("option_created", fmt.Sprintf(
		"We have placed an option on %s for you until %s. Paying the deposit of %.2f %s by then turns it into a firm booking.",
		display, displayISO(ev.DepositInfo.DueDate), ev.DepositInfo.Amount, e.cfg.Offer.Currency))
	ev.ThreadState = domain.ThreadAwaitingClient
	ts.persist = true
	return haltTurn
}

// finalConfirm writes the calendar block and freezes the event.
func (e *Engine) finalConfirm(ts *turnState) *stepResult {
	ev := ts.event

	if ev.DepositInfo.Required && !ev.DepositInfo.Paid {
		ts.addDraft("deposit_reminder", fmt.Sprintf(
			"We are ready to confirm as soon as the deposit of %.2f %s arrives (due %s).",
			ev.DepositInfo.Amount, e.cfg.Offer.Currency, displayISO(ev.DepositInfo.DueDate)))
		ev.ThreadState = domain.ThreadAwaitingClient
		ts.persist = true
		return haltTurn
	}

	ev.Status = domain.EventConfirmed
	ev.TransitionReady = true
	ev.ConfirmationState.LastResponseType = "confirm"
	ev.ConfirmationState.Pending = nil
	ev.ThreadState = domain.ThreadAwaitingClient
	ts.persist = true

	var start, end, display string
	if ev.RequestedWindow != nil {
		start, end = ev.RequestedWindow.Start, ev.RequestedWindow.End
		display = displayISO(ev.RequestedWindow.DateISO)
	} else {
		display = displayISO(ev.ChosenDate)
	}

	e.fireCalendarBlock(ts, calendar.Block{
		TeamID:  ts.teamID,
		EventID: ev.EventID,
		DateISO: ev.ChosenDate,
		Start:   start,
		End:     end,
		Title:   fmt.Sprintf("%s (%d guests, %s)", ev.ClientEmail, ev.Requirements.Participants, ev.LockedRoomID),
	})
	e.notify.OnOfferConfirmed(ts.db, ev)

	// An event over a scheduled site visit is allowed but flagged.
	if visits := ts.db.ScheduledVisitDates(); visits[ev.ChosenDate] {
		e.notify.OnEventOverVisitDate(ts.db, ev, ev.ChosenDate)
	}

	ts.addDraft("booking_confirmed", fmt.Sprintf(
		"Your event on %s in %s is confirmed. We look forward to hosting you!",
		display, ev.LockedRoomID))

	logger.Info("booking confirmed",
		zap.String("event_id", ev.EventID),
		zap.String("date", ev.ChosenDate),
		zap.String("room", ev.LockedRoomID),
	)
	return haltTurn
}
