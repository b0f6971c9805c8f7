package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// maxVisitSlots caps one proposal round.
const maxVisitSlots = 5

var ordinalWords = map[string]int{
	"first": 0, "second": 1, "third": 2, "fourth": 3, "fifth": 4,
}

var ordinalSlotRe = regexp.MustCompile(`(?i)\b(?:option|slot|number)\s*([1-5])\b`)

// runSiteVisit is the interceptor target: an active date_pending flow
// consumes the message, a fresh site-visit intent starts one.
func (e *Engine) runSiteVisit(ts *turnState) *stepResult {
	ev := ts.event

	switch ev.SiteVisitState.Status {
	case domain.VisitDatePending:
		return e.siteVisitSelect(ts)
	case domain.VisitScheduled:
		if ts.det.Decline {
			ev.SiteVisitState.Status = domain.VisitCancelled
			ev.SiteVisitState.ProposedSlots = nil
			ts.addDraft("site_visit_cancelled",
				"No problem, we have cancelled the site visit. Your booking itself is unaffected.")
			ev.ThreadState = domain.ThreadAwaitingClient
			ts.persist = true
			return haltTurn
		}
		if ts.det.SiteVisitIntent && len(ts.det.Dates) > 0 {
			// Reschedule request.
			return e.siteVisitPropose(ts)
		}
		return continueTurn
	default:
		return e.siteVisitPropose(ts)
	}
}

// siteVisitPropose starts (or restarts) the flow from the requested date,
// applying the hard block against the tenant's event dates.
func (e *Engine) siteVisitPropose(ts *turnState) *stepResult {
	ev := ts.event
	sv := &ev.SiteVisitState
	booked := ts.db.BookedEventDates()

	var requested *detect.Date
	if len(ts.det.Dates) > 0 {
		requested = &ts.det.Dates[0]
	}

	// A free requested date with a usable hour schedules directly.
	if requested != nil && !booked[requested.ISO] && requested.Time.After(ts.msg.TS) &&
		e.visitWeekdayAllowed(requested.Time.Weekday()) {
		if hour := e.visitHourFrom(ts); hour != "" {
			return e.scheduleVisit(ts, requested.ISO, hour)
		}
		// Free date, no time: propose this date's hour slots.
		sv.Status = domain.VisitDatePending
		sv.HasEventConflict = false
		sv.InitiatedAtStep = ev.CurrentStep
		sv.ProposedSlots = e.hourSlotsFor(requested.ISO)
		ts.addDraft("site_visit_slots", e.renderVisitSlots(
			fmt.Sprintf("%s works for a visit. Which time suits you?", requested.Display),
			sv.ProposedSlots), slotRows(sv.ProposedSlots)...)
		ev.ThreadState = domain.ThreadAwaitingClientResponse
		ts.persist = true
		return haltTurn
	}

	// Conflict or no usable date: propose alternative days around the
	// anchor, excluding every booked event date.
	anchor := ts.msg.TS.AddDate(0, 0, 1)
	conflicted := false
	if requested != nil {
		conflicted = booked[requested.ISO]
		if requested.Time.After(ts.msg.TS) {
			anchor = requested.Time.AddDate(0, 0, 1)
		}
	}

	slots := e.visitSlotsAround(anchor, booked)
	if len(slots) == 0 {
		e.enqueueManualReview(ts, "no site-visit slots available")
		ts.addDraft("site_visit_unavailable",
			"We could not find an open slot for a visit; our events team will reach out with options.")
		return haltTurn
	}

	sv.Status = domain.VisitDatePending
	sv.HasEventConflict = conflicted
	sv.InitiatedAtStep = ev.CurrentStep
	sv.ProposedSlots = slots

	intro := "We would love to show you the venue. These slots are open:"
	if conflicted {
		intro = fmt.Sprintf(
			"%s is fully booked with an event, so a visit is not possible that day. These slots are open instead:",
			requested.Display)
	}
	ts.addDraft("site_visit_slots", e.renderVisitSlots(intro, slots), slotRows(slots)...)
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true

	logger.Info("site visit slots proposed",
		zap.String("event_id", ev.EventID),
		zap.Bool("conflict", conflicted),
		zap.Int("slots", len(slots)),
	)
	return haltTurn
}

// siteVisitSelect resolves the client's reply while date_pending: ordinal
// pick, slot match, or a fresh natural date.
func (e *Engine) siteVisitSelect(ts *turnState) *stepResult {
	ev := ts.event
	sv := &ev.SiteVisitState
	lower := strings.ToLower(ts.messageText())

	if ts.det.Decline {
		sv.Status = domain.VisitIdle
		sv.ProposedSlots = nil
		ts.addDraft("site_visit_dropped",
			"Alright, no site visit for now. We can always arrange one later.")
		ev.ThreadState = domain.ThreadAwaitingClient
		ts.persist = true
		return haltTurn
	}

	// Ordinal selection against the proposed list.
	if idx, ok := parseOrdinal(lower); ok && idx < len(sv.ProposedSlots) {
		iso, hour := splitSlot(sv.ProposedSlots[idx])
		return e.scheduleVisit(ts, iso, hour)
	}

	// Date (and optionally time) matched against the proposals.
	if len(ts.det.Dates) > 0 {
		d := ts.det.Dates[0]
		wantHour := e.visitHourFrom(ts)
		for _, slot := range sv.ProposedSlots {
			iso, hour := splitSlot(slot)
			if iso == d.ISO && (wantHour == "" || wantHour == hour) {
				return e.scheduleVisit(ts, iso, hour)
			}
		}
		// A natural date outside the proposals restarts the flow.
		return e.siteVisitPropose(ts)
	}

	// A bare time against a single-day proposal.
	if hour := e.visitHourFrom(ts); hour != "" {
		for _, slot := range sv.ProposedSlots {
			iso, slotHour := splitSlot(slot)
			if slotHour == hour {
				return e.scheduleVisit(ts, iso, hour)
			}
		}
	}

	ts.addDraft("site_visit_slots", e.renderVisitSlots(
		"Which of these slots shall we note down for your visit?", sv.ProposedSlots),
		slotRows(sv.ProposedSlots)...)
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}

// scheduleVisit finalizes the visit after a last conflict check.
func (e *Engine) scheduleVisit(ts *turnState, iso, hour string) *stepResult {
	ev := ts.event
	sv := &ev.SiteVisitState

	if ts.db.BookedEventDates()[iso] {
		// The day filled up since the proposal; start over.
		sv.ProposedSlots = nil
		return e.siteVisitPropose(ts)
	}

	sv.Status = domain.VisitScheduled
	sv.DateISO = iso
	sv.TimeSlot = hour
	sv.ProposedSlots = nil
	e.notify.OnSiteVisitScheduled(ts.db, ev, iso, hour)

	ts.addDraft("site_visit_scheduled", fmt.Sprintf(
		"Your site visit is set for %s at %s. We look forward to showing you around!",
		displayISO(iso), hour))
	ev.ThreadState = domain.ThreadAwaitingClient
	ts.persist = true

	logger.Info("site visit scheduled",
		zap.String("event_id", ev.EventID),
		zap.String("date", iso),
		zap.String("slot", hour),
	)
	return haltTurn
}

// visitSlotsAround walks forward from the anchor collecting allowed
// weekday slots, skipping booked event dates.
func (e *Engine) visitSlotsAround(anchor time.Time, booked map[string]bool) []string {
	var slots []string
	day := anchor
	for i := 0; i < 60 && len(slots) < maxVisitSlots; i++ {
		iso := day.Format("2006-01-02")
		if e.visitWeekdayAllowed(day.Weekday()) && !booked[iso] {
			for _, h := range e.cfg.SiteVisit.Hours {
				if len(slots) >= maxVisitSlots {
					break
				}
				slots = append(slots, fmt.Sprintf("%s %02d:00", iso, h))
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return slots
}

func (e *Engine) hourSlotsFor(iso string) []string {
	slots := make([]string, 0, len(e.cfg.SiteVisit.Hours))
	for _, h := range e.cfg.SiteVisit.Hours {
		slots = append(slots, fmt.Sprintf("%s %02d:00", iso, h))
	}
	return slots
}

func (e *Engine) visitWeekdayAllowed(d time.Weekday) bool {
	short := d.String()[:3]
	for _, w := range e.cfg.SiteVisit.Weekdays {
		if strings.EqualFold(w, short) || strings.EqualFold(w, d.String()) {
			return true
		}
	}
	return false
}

// visitHourFrom extracts a usable visit hour from the message, snapped to
// the configured slot hours.
func (e *Engine) visitHourFrom(ts *turnState) string {
	tr := ts.det.TimeRange
	if tr == nil || tr.Start == "" {
		return ""
	}
	for _, h := range e.cfg.SiteVisit.Hours {
		if tr.Start == fmt.Sprintf("%02d:00", h) {
			return tr.Start
		}
	}
	return ""
}

func (e *Engine) renderVisitSlots(intro string, slots []string) string {
	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n")
	for _, slot := range slots {
		iso, hour := splitSlot(slot)
		if t, err := time.Parse("2006-01-02", iso); err == nil {
			fmt.Fprintf(&b, "- %s, %s at %s\n", t.Weekday(), displayISO(iso), hour)
		} else {
			fmt.Fprintf(&b, "- %s\n", slot)
		}
	}
	b.WriteString("Just reply with the one that suits you.")
	return b.String()
}

func slotRows(slots []string) []ActionRow {
	rows := make([]ActionRow, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, ActionRow{Label: s, Value: s})
	}
	return rows
}

func splitSlot(slot string) (iso, hour string) {
	parts := strings.SplitN(slot, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return slot, ""
}

func parseOrdinal(lower string) (int, bool) {
	for word, idx := range ordinalWords {
		if strings.Contains(lower, word+" one") || strings.Contains(lower, "the "+word) {
			return idx, true
		}
	}
	if m := ordinalSlotRe.FindStringSubmatch(lower); m != nil {
		return int(m[1][0]-'0') - 1, true
	}
	return 0, false
}
