package detect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is one extracted calendar date. Display is the client-facing
// DD.MM.YYYY form; Raw is the text fragment it was parsed from (used by
// the hallucination guard: a detour date must be present in the message).
type Date struct {
	ISO     string
	Display string
	Raw     string
	Time    time.Time
}

// TimeRange is an extracted start/end time pair, 24h HH:MM.
type TimeRange struct {
	Start string
	End   string
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	// 17.06.2026 or 17.06. (year optional)
	dottedDateRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})?\b`)
	// May 15 2026 | May 15, 2026 | May 15th | June 17
	monthDayRe = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	// 15 May 2026 | 15th of May
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?(?:\s+of)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?(?:,?\s*(\d{4}))?\b`)
)

// ExtractDates finds all calendar dates in the text, de-duplicated by ISO
// value, in order of appearance. Dates without a year resolve to the next
// occurrence relative to now.
func ExtractDates(text string, now time.Time) []Date {
	var out []Date
	seen := map[string]bool{}
	add := func(t time.Time, raw string) {
		iso := t.Format("2006-01-02")
		if seen[iso] {
			return
		}
		seen[iso] = true
		out = append(out, Date{
			ISO:     iso,
			Display: t.Format("02.01.2006"),
			Raw:     raw,
			Time:    t,
		})
	}

	for _, m := range isoDateRe.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if valid := validYMD(y, mo, d); valid {
			add(time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), m[0])
		}
	}

	for _, m := range dottedDateRe.FindAllStringSubmatch(text, -1) {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y := 0
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
		}
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			continue
		}
		if y == 0 {
			add(nextOccurrence(time.Month(mo), d, now), m[0])
		} else if validYMD(y, mo, d) {
			add(time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), m[0])
		}
	}

	for _, m := range monthDayRe.FindAllStringSubmatch(text, -1) {
		mo, ok := monthNames[strings.ToLower(strings.TrimSuffix(m[1], "."))]
		if !ok {
			continue
		}
		d, _ := strconv.Atoi(m[2])
		if d < 1 || d > 31 {
			continue
		}
		if m[3] != "" {
			y, _ := strconv.Atoi(m[3])
			if validYMD(y, int(mo), d) {
				add(time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), m[0])
			}
		} else {
			add(nextOccurrence(mo, d, now), m[0])
		}
	}

	for _, m := range dayMonthRe.FindAllStringSubmatch(text, -1) {
		mo, ok := monthNames[strings.ToLower(strings.TrimSuffix(m[2], "."))]
		if !ok {
			continue
		}
		d, _ := strconv.Atoi(m[1])
		if d < 1 || d > 31 {
			continue
		}
		if m[3] != "" {
			y, _ := strconv.Atoi(m[3])
			if validYMD(y, int(mo), d) {
				add(time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), m[0])
			}
		} else {
			add(nextOccurrence(mo, d, now), m[0])
		}
	}

	return out
}

func validYMD(y, mo, d int) bool {
	if y < 1970 || y > 2200 || mo < 1 || mo > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d && int(t.Month()) == mo
}

// nextOccurrence resolves a month/day without a year to its next future
// occurrence (today counts as future).
func nextOccurrence(mo time.Month, d int, now time.Time) time.Time {
	t := time.Date(now.Year(), mo, d, 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if t.Before(today) {
		t = time.Date(now.Year()+1, mo, d, 0, 0, 0, 0, time.UTC)
	}
	return t
}

var (
	// 14:00–18:00, 14:00-18:00, 14.00 - 18.00
	clockRangeRe = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\s*(?:–|—|-|to|until|bis)\s*(\d{1,2})[:.](\d{2})\b`)
	// 2pm-6pm, 2 pm to 6 pm
	amPmRangeRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\s*(?:–|—|-|to|until)\s*(\d{1,2})\s*(am|pm)\b`)
	// single "at 18:00" / "from 18:00"
	singleClockRe = regexp.MustCompile(`(?i)\b(?:at|from|ab)\s+(\d{1,2})[:.](\d{2})\b`)
)

// ExtractTimeRange finds a start/end time pair; a lone "at HH:MM" yields a
// range with an empty End.
func ExtractTimeRange(text string) *TimeRange {
	if m := clockRangeRe.FindStringSubmatch(text); m != nil {
		sh, sm := atoi(m[1]), m[2]
		eh, em := atoi(m[3]), m[4]
		if sh < 24 && eh < 24 {
			return &TimeRange{
				Start: fmt.Sprintf("%02d:%s", sh, sm),
				End:   fmt.Sprintf("%02d:%s", eh, em),
			}
		}
	}
	if m := amPmRangeRe.FindStringSubmatch(text); m != nil {
		sh := to24(atoi(m[1]), m[2])
		eh := to24(atoi(m[3]), m[4])
		return &TimeRange{
			Start: fmt.Sprintf("%02d:00", sh),
			End:   fmt.Sprintf("%02d:00", eh),
		}
	}
	if m := singleClockRe.FindStringSubmatch(text); m != nil {
		h := atoi(m[1])
		if h < 24 {
			return &TimeRange{Start: fmt.Sprintf("%02d:%s", h, m[2])}
		}
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func to24(h int, suffix string) int {
	suffix = strings.ToLower(suffix)
	if suffix == "pm" && h < 12 {
		return h + 12
	}
	if suffix == "am" && h == 12 {
		return 0
	}
	return h
}

var participantsRe = regexp.MustCompile(`\b(?:for\s+)?(\d{1,4})\s*(?:guests|people|persons|person|participants|attendees|pax|delegates)\b`)

func extractParticipants(lower string) int {
	if m := participantsRe.FindStringSubmatch(lower); m != nil {
		return atoi(m[1])
	}
	// Bare "for 25." is too ambiguous; require the noun.
	return 0
}
