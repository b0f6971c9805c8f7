package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"venuehq.io/banquet/internal/domain"
)

// weekdayNames maps preference words to weekdays.
var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

var weekScopeRe = regexp.MustCompile(`(?i)\b(first|second|third|fourth|last)\s+week\s+of\s+(january|february|march|april|may|june|july|august|september|october|november|december)\b`)

// parseWeekdayPrefs extracts preferred weekdays from free text
// ("a Friday", "prefer weekends").
func parseWeekdayPrefs(lower string) []time.Weekday {
	var out []time.Weekday
	seen := map[time.Weekday]bool{}
	add := func(d time.Weekday) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	for name, d := range weekdayNames {
		if strings.Contains(lower, name) {
			add(d)
		}
	}
	if strings.Contains(lower, "weekend") {
		add(time.Saturday)
		add(time.Sunday)
	}
	return out
}

// parseWeekScope resolves "first week of March" into a date range
// relative to now (future occurrence).
func parseWeekScope(text string, now time.Time) (start, end time.Time, ok bool) {
	m := weekScopeRe.FindStringSubmatch(text)
	if m == nil {
		return start, end, false
	}
	month := monthFromName(strings.ToLower(m[2]))
	year := now.Year()
	if month < now.Month() || (month == now.Month() && now.Day() > 21) {
		year++
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var weekIndex int
	switch strings.ToLower(m[1]) {
	case "first":
		weekIndex = 0
	case "second":
		weekIndex = 1
	case "third":
		weekIndex = 2
	case "fourth":
		weekIndex = 3
	case "last":
		weekIndex = 3 // approximation; clipped to the month below
	}
	start = first.AddDate(0, 0, weekIndex*7)
	end = start.AddDate(0, 0, 6)
	lastOfMonth := first.AddDate(0, 1, -1)
	if end.After(lastOfMonth) {
		end = lastOfMonth
	}
	return start, end, true
}

func monthFromName(name string) time.Month {
	for i := time.January; i <= time.December; i++ {
		if strings.ToLower(i.String()) == name {
			return i
		}
	}
	return time.January
}

// generateCandidates produces up to five ISO candidates honoring weekday
// and week-scope preferences and a forbidden set (booked dates plus
// already-proposed dates). The search horizon expands per attempt.
func (e *Engine) generateCandidates(ts *turnState) []domain.CandidateDate {
	ev := ts.event
	now := ts.msg.TS
	lower := strings.ToLower(ts.messageText())

	forbidden := ts.db.BookedEventDates()
	for _, iso := range ev.DateProposalHistory {
		forbidden[iso] = true
	}

	prefDays := parseWeekdayPrefs(lower)
	scopeStart, scopeEnd, hasScope := parseWeekScope(ts.messageText(), now)

	slotStart, slotEnd := e.cfg.Dates.DefaultSlotStart, e.cfg.Dates.DefaultSlotEnd
	if ev.RequestedWindow != nil && ev.RequestedWindow.Start != "" {
		slotStart = ev.RequestedWindow.Start
		if ev.RequestedWindow.End != "" {
			slotEnd = ev.RequestedWindow.End
		}
	}

	const maxCandidates = 5
	var out []domain.CandidateDate
	seen := map[string]bool{}
	add := func(t time.Time) bool {
		iso := t.Format("2006-01-02")
		if seen[iso] || forbidden[iso] || !t.After(now) {
			return len(out) >= maxCandidates
		}
		seen[iso] = true
		out = append(out, domain.CandidateDate{
			DateISO:   iso,
			Display:   t.Format("02.01.2006"),
			Weekday:   t.Weekday().String(),
			SlotStart: slotStart,
			SlotEnd:   slotEnd,
		})
		return len(out) >= maxCandidates
	}

	// 1. Dates already mentioned in the message rank first.
	for _, d := range ts.det.Dates {
		if add(d.Time) {
			return out
		}
	}

	// 2. Week-scope-bounded, preferred weekdays first.
	if hasScope {
		for day := scopeStart; !day.After(scopeEnd); day = day.AddDate(0, 0, 1) {
			if matchesPref(day.Weekday(), prefDays) && add(day) {
				return out
			}
		}
		for day := scopeStart; !day.After(scopeEnd); day = day.AddDate(0, 0, 1) {
			if add(day) {
				return out
			}
		}
	}

	// 3. Expanding horizon fallback: the window grows per attempt.
	horizonDays := e.cfg.Dates.HorizonMinDays + ev.DateProposalAttempts*45
	if horizonDays > e.cfg.Dates.HorizonMaxDays {
		horizonDays = e.cfg.Dates.HorizonMaxDays
	}
	anchor := now.AddDate(0, 0, 14)
	if ev.RequestedWindow != nil && ev.RequestedWindow.DateISO != "" {
		if t, err := time.Parse("2006-01-02", ev.RequestedWindow.DateISO); err == nil && t.After(now) {
			anchor = t
		}
	}
	for offset := 0; offset < horizonDays; offset++ {
		day := anchor.AddDate(0, 0, offset)
		if matchesPref(day.Weekday(), prefDays) && add(day) {
			return out
		}
	}
	if len(prefDays) > 0 {
		// Relax the weekday preference before giving up.
		for offset := 0; offset < horizonDays; offset++ {
			day := anchor.AddDate(0, 0, offset)
			if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday && add(day) {
				return out
			}
		}
	}
	return out
}

func matchesPref(d time.Weekday, prefs []time.Weekday) bool {
	if len(prefs) == 0 {
		return d != time.Saturday && d != time.Sunday
	}
	for _, p := range prefs {
		if p == d {
			return true
		}
	}
	return false
}

// proposeDates runs the candidate date engine and emits the proposal
// draft: a prose list plus one machine-readable action row per date.
// Attempt three and beyond marks the case for HIL escalation.
func (e *Engine) proposeDates(ts *turnState) *stepResult {
	ev := ts.event
	ev.DateProposalAttempts++

	candidates := e.generateCandidates(ts)
	if len(candidates) == 0 {
		e.enqueueManualReview(ts, "no candidate dates available")
		ts.addDraft("date_proposal_exhausted",
			"We could not find a fitting date automatically; our events team will come back to you shortly with options.")
		return haltTurn
	}

	ev.CandidateDates = candidates
	var rows []ActionRow
	var b strings.Builder
	b.WriteString("Here are dates we could offer:\n")
	for _, c := range candidates {
		ev.DateProposalHistory = append(ev.DateProposalHistory, c.DateISO)
		fmt.Fprintf(&b, "- %s, %s (%s-%s)\n", c.Weekday, c.Display, c.SlotStart, c.SlotEnd)
		rows = append(rows, ActionRow{Label: fmt.Sprintf("%s %s", c.Weekday, c.Display), Value: c.DateISO})
	}
	b.WriteString("Would one of these work for you?")

	if ev.DateProposalAttempts >= e.cfg.Workflow.MaxDateAttempts {
		e.enqueueManualReview(ts, fmt.Sprintf("date proposal attempt %d without agreement", ev.DateProposalAttempts))
		ts.setExtra("hil_escalated", true)
	}

	ts.addDraft("date_proposal", strings.TrimRight(b.String(), "\n"), rows...)
	ev.ThreadState = domain.ThreadAwaitingClientResponse
	ts.persist = true
	return haltTurn
}
