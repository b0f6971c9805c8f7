package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
)

func candidateState(body string, ev *domain.EventRecord) *turnState {
	return &turnState{
		teamID: testTeam,
		msg:    &InboundMessage{Body: body, TS: testTS},
		db:     &domain.Database{},
		event:  ev,
		det:    detect.Analyze(body, detect.Options{Now: testTS}),
	}
}

func TestGenerateCandidatesHonorsWeekdayPreference(t *testing.T) {
	eng, _ := newTestEngine(t)
	ts := candidateState("We would prefer a Friday evening.", &domain.EventRecord{})

	got := eng.generateCandidates(ts)
	require.Len(t, got, 5)
	for _, c := range got {
		require.Equal(t, "Friday", c.Weekday)
		day, err := time.Parse("2006-01-02", c.DateISO)
		require.NoError(t, err)
		require.True(t, day.After(testTS))
		require.Equal(t, "18:00", c.SlotStart)
		require.Equal(t, "22:00", c.SlotEnd)
	}
}

func TestGenerateCandidatesSkipsForbiddenDates(t *testing.T) {
	eng, _ := newTestEngine(t)
	ev := &domain.EventRecord{DateProposalHistory: []string{"2026-01-30", "2026-02-06"}}
	ts := candidateState("We would prefer a Friday evening.", ev)

	for _, c := range eng.generateCandidates(ts) {
		require.NotEqual(t, "2026-01-30", c.DateISO)
		require.NotEqual(t, "2026-02-06", c.DateISO)
	}
}

func TestGenerateCandidatesDefaultsToBusinessDays(t *testing.T) {
	eng, _ := newTestEngine(t)
	ts := candidateState("Any date would suit us.", &domain.EventRecord{})

	got := eng.generateCandidates(ts)
	require.Len(t, got, 5)
	for _, c := range got {
		day, err := time.Parse("2006-01-02", c.DateISO)
		require.NoError(t, err)
		require.NotEqual(t, time.Saturday, day.Weekday())
		require.NotEqual(t, time.Sunday, day.Weekday())
	}
}

func TestGenerateCandidatesInheritsAgreedWindow(t *testing.T) {
	eng, _ := newTestEngine(t)
	ev := &domain.EventRecord{
		RequestedWindow: &domain.RequestedWindow{DateISO: "2026-03-03", Start: "15:00", End: "19:00"},
	}
	ts := candidateState("Any date would suit us.", ev)

	got := eng.generateCandidates(ts)
	require.NotEmpty(t, got)
	for _, c := range got {
		require.Equal(t, "15:00", c.SlotStart)
		require.Equal(t, "19:00", c.SlotEnd)
	}
}

func TestParseWeekScope(t *testing.T) {
	start, end, ok := parseWeekScope("the first week of March would suit us", testTS)
	require.True(t, ok)
	require.Equal(t, "2026-03-01", start.Format("2006-01-02"))
	require.Equal(t, "2026-03-07", end.Format("2006-01-02"))

	start, end, ok = parseWeekScope("the last week of February", testTS)
	require.True(t, ok)
	require.Equal(t, "2026-02-22", start.Format("2006-01-02"))
	require.Equal(t, "2026-02-28", end.Format("2006-01-02"), "clipped to the month")

	// Past months roll over into the next year.
	december := time.Date(2026, 12, 25, 12, 0, 0, 0, time.UTC)
	start, _, ok = parseWeekScope("first week of January", december)
	require.True(t, ok)
	require.Equal(t, 2027, start.Year())

	_, _, ok = parseWeekScope("sometime in spring", testTS)
	require.False(t, ok)
}

func TestParseWeekdayPrefs(t *testing.T) {
	require.ElementsMatch(t,
		[]time.Weekday{time.Friday, time.Saturday},
		parseWeekdayPrefs("a friday or saturday works"))
	require.ElementsMatch(t,
		[]time.Weekday{time.Saturday, time.Sunday},
		parseWeekdayPrefs("we prefer the weekend"))
	require.Empty(t, parseWeekdayPrefs("any day is fine"))
}

func TestDisplayISO(t *testing.T) {
	require.Equal(t, "17.06.2026", displayISO("2026-06-17"))
	require.Equal(t, "not-a-date", displayISO("not-a-date"))
}
