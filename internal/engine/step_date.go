package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// stepDate is step 2: resolve the event's date/time window. Outcomes: a
// pending one-word confirmation, a time prompt with loop-break to the
// default window, a candidate-date proposal, or finalization with an
// inline step 3 run.
func (e *Engine) stepDate(ts *turnState) *stepResult {
	if res := e.preStep(ts, domain.StepDate); res != nil {
		return res
	}
	ev := ts.event

	// A past-date proposal awaiting "yes, next year".
	if ev.PendingFutureConfirmation != nil {
		if res := e.resolvePendingFuture(ts); res != nil {
			return res
		}
	}

	// An explicit date proposal awaiting a one-word confirmation.
	if ev.PendingDateConfirmation != nil {
		if res := e.resolvePendingDate(ts); res != nil {
			return res
		}
	}

	// A "what time?" loop in flight. A message naming a different date
	// supersedes the pending one.
	if ev.PendingTimeRequest != nil {
		if len(ts.det.Dates) > 0 && ts.det.Dates[0].ISO != ev.PendingTimeRequest.DateISO {
			ev.PendingTimeRequest = nil
		} else {
			return e.resolvePendingTime(ts)
		}
	}

	var d *detect.Date
	if len(ts.det.Dates) > 0 {
		d = &ts.det.Dates[0]
	}

	if d == nil {
		// No new date in the message; an already-resolved window can be
		// re-finalized (requirements detours land here with the date kept).
		if ev.RequestedWindow != nil && ev.RequestedWindow.DateISO != "" {
			w := ev.RequestedWindow
			return e.finalizeDate(ts, w.DateISO, displayISO(w.DateISO), w.Start, w.End, "window unchanged")
		}
		return e.proposeDates(ts)
	}

	// Feasibility: the past is not bookable.
	if !d.Time.After(ts.msg.TS) {
		return e.proposeFutureDate(ts, d)
	}

	// Hard conflict with the locked room's calendar.
	if ev.LockedRoomID != "" && e.roomConflict(ts, ev.LockedRoomID, d.ISO) {
		ts.addDraft("date_conflict", fmt.Sprintf(
			"%s is already taken for %s. Here are alternatives:", d.Display, ev.LockedRoomID))
		return e.proposeDates(ts)
	}

	start, end := "", ""
	if tr := ts.det.TimeRange; tr != nil {
		start, end = tr.Start, tr.End
	}
	if start == "" && ev.RequestedWindow != nil {
		// A date-only revision inherits the window already agreed.
		start, end = ev.RequestedWindow.Start, ev.RequestedWindow.End
	}
	if start == "" {
		ev.PendingTimeRequest = &domain.PendingTimeRequest{DateISO: d.ISO, Display: d.Display, Rounds: 1}
		ts.addDraft("time_prompt", fmt.Sprintf(
			"%s works for us. What time would you like to start and end?", d.Display))
		ev.ThreadState = domain.ThreadAwaitingClientResponse
		ts.persist = true
		return haltTurn
	}
	if end == "" {
		end = e.cfg.Workflow.DefaultWindowEnd
	}

	// Auto-accept: the first offered date, or a date the adapter bound
	// explicitly from this message. Otherwise ask for a one-word yes.
	auto := ev.RequestedWindow == nil
	if iso, ok := ts.userInfo["date_iso"].(string); ok && iso == d.ISO && ts.dateFromAdapter {
		auto = true
	}
	if !auto {
		ev.PendingDateConfirmation = &domain.PendingDate{DateISO: d.ISO, Display: d.Display, Start: start, End: end}
		ts.addDraft("date_confirm_prompt", fmt.Sprintf(
			"Just to confirm: %s from %s to %s. Shall we lock that in?", d.Display, start, end))
		ev.ThreadState = domain.ThreadAwaitingClientResponse
		ts.persist = true
		return haltTurn
	}

	return e.finalizeDate(ts, d.ISO, d.Display, start, end, "explicit date")
}

// resolvePendingFuture handles the reply to a "move to next year?" prompt.
// Returns nil when a fresh date in the message supersedes the pending one.
func (e *Engine) resolvePendingFuture(ts *turnState) *stepResult {
	ev := ts.event
	if ts.det.FinalYes || ts.det.Acceptance.Match {
		pd := ev.PendingFutureConfirmation
		ev.PendingFutureConfirmation = nil
		return e.finalizeDate(ts, pd.DateISO, pd.Display, pd.Start, pd.End, "future date confirmed")
	}
	if len(ts.det.Dates) > 0 {
		ev.PendingFutureConfirmation = nil
		return nil
	}
	ts.addDraft("date_future_prompt", fmt.Sprintf(
		"Shall we go ahead with %s, or would another date suit you better?",
		ev.PendingFutureConfirmation.Display))
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// resolvePendingDate handles the one-word confirmation of a proposed
// window. Returns nil when new date/time facts supersede the proposal.
func (e *Engine) resolvePendingDate(ts *turnState) *stepResult {
	ev := ts.event
	if ts.det.FinalYes || ts.det.Acceptance.Match {
		pd := ev.PendingDateConfirmation
		ev.PendingDateConfirmation = nil
		return e.finalizeDate(ts, pd.DateISO, pd.Display, pd.Start, pd.End, "client confirmed date")
	}
	if len(ts.det.Dates) > 0 || ts.det.TimeRange != nil {
		ev.PendingDateConfirmation = nil
		return nil
	}
	ts.addDraft("date_confirm_prompt", fmt.Sprintf(
		"Shall we lock in %s from %s to %s?",
		ev.PendingDateConfirmation.Display,
		ev.PendingDateConfirmation.Start,
		ev.PendingDateConfirmation.End))
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// resolvePendingTime continues the time-prompt loop, breaking to the
// default window after the configured rounds.
func (e *Engine) resolvePendingTime(ts *turnState) *stepResult {
	ev := ts.event
	req := ev.PendingTimeRequest

	if tr := ts.det.TimeRange; tr != nil {
		end := tr.End
		if end == "" {
			end = e.cfg.Workflow.DefaultWindowEnd
		}
		ev.PendingTimeRequest = nil
		return e.finalizeDate(ts, req.DateISO, req.Display, tr.Start, end, "time provided")
	}

	if req.Rounds >= e.cfg.Workflow.TimePromptRounds {
		ev.PendingTimeRequest = nil
		logger.Debug("time prompt loop-break to default window",
			zap.String("event_id", ev.EventID), zap.Int("rounds", req.Rounds))
		return e.finalizeDate(ts, req.DateISO, req.Display,
			e.cfg.Workflow.DefaultWindowStart, e.cfg.Workflow.DefaultWindowEnd,
			"default window applied")
	}

	req.Rounds++
	ts.addDraft("time_prompt", fmt.Sprintf(
		"Could you let us know the start and end time for %s? Otherwise we will plan %s to %s.",
		req.Display, e.cfg.Workflow.DefaultWindowStart, e.cfg.Workflow.DefaultWindowEnd))
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// proposeFutureDate offers the next matching weekday next year for a date
// that already passed.
func (e *Engine) proposeFutureDate(ts *turnState, d *detect.Date) *stepResult {
	ev := ts.event
	// A mention can lie arbitrarily far back; keep adding years until the
	// proposal lands ahead of the message clock.
	target := d.Time.AddDate(1, 0, 0)
	for !target.After(ts.msg.TS) {
		target = target.AddDate(1, 0, 0)
	}
	for target.Weekday() != d.Time.Weekday() {
		target = target.AddDate(0, 0, 1)
	}
	start, end := "", ""
	if tr := ts.det.TimeRange; tr != nil {
		start, end = tr.Start, tr.End
	}
	ev.PendingFutureConfirmation = &domain.PendingDate{
		DateISO: target.Format("2006-01-02"),
		Display: target.Format("02.01.2006"),
		Start:   start,
		End:     end,
	}
	ts.addDraft("date_past", fmt.Sprintf(
		"%s is already in the past. The next %s would be %s. Shall we plan for that instead?",
		d.Display, target.Weekday(), ev.PendingFutureConfirmation.Display))
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// finalizeDate locks the window, acknowledges it, and hands off to step 3
// inline so the date ack and the room result land in one reply.
func (e *Engine) finalizeDate(ts *turnState, iso, display, start, end, reason string) *stepResult {
	ev := ts.event
	if start == "" {
		start = e.cfg.Workflow.DefaultWindowStart
	}
	if end == "" {
		end = e.cfg.Workflow.DefaultWindowEnd
	}

	ev.ChosenDate = iso
	ev.DateConfirmed = true
	ev.RequestedWindow = &domain.RequestedWindow{
		DateISO: iso,
		Start:   start,
		End:     end,
		Hash:    domain.RoomEvalHash(iso, start+"-"+end),
	}
	ev.PendingDateConfirmation = nil
	ev.PendingFutureConfirmation = nil
	ev.PendingTimeRequest = nil
	ev.CandidateDates = nil
	ev.DateProposalAttempts = 0

	ts.addDraft("date_ack", fmt.Sprintf(
		"%s from %s to %s is confirmed for your event.", display, start, end))
	ev.MoveToStep(domain.StepRoom, "engine", "date finalized: "+reason)
	ts.persist = true

	logger.Info("date finalized",
		zap.String("event_id", ev.EventID),
		zap.String("date", iso),
		zap.String("window", start+"-"+end),
		zap.String("reason", reason),
	)
	return continueTurn
}

// roomConflict reports whether another live event already holds the room
// on the given date.
func (e *Engine) roomConflict(ts *turnState, roomID, dateISO string) bool {
	for _, other := range ts.db.Events {
		if other.EventID == ts.event.EventID || other.Status == domain.EventCancelled {
			continue
		}
		if other.LockedRoomID == roomID && other.ChosenDate == dateISO && other.DateConfirmed {
			return true
		}
	}
	return false
}

func displayISO(iso string) string {
	if t, err := time.Parse("2006-01-02", iso); err == nil {
		return t.Format("02.01.2006")
	}
	return iso
}
