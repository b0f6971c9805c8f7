package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		in   string
		idx  int
		ok   bool
	}{
		{"we'll take the second one", 1, true},
		{"the first works", 0, true},
		{"option 3 please", 2, true},
		{"slot 5", 4, true},
		{"number 1 looks good", 0, true},
		{"none of these fit", 0, false},
	}
	for _, tt := range tests {
		idx, ok := parseOrdinal(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			require.Equal(t, tt.idx, idx, tt.in)
		}
	}
}

func TestSplitSlot(t *testing.T) {
	iso, hour := splitSlot("2026-02-16 10:00")
	require.Equal(t, "2026-02-16", iso)
	require.Equal(t, "10:00", hour)

	iso, hour = splitSlot("2026-02-16")
	require.Equal(t, "2026-02-16", iso)
	require.Empty(t, hour)
}

func TestVisitSlotsAroundSkipsBookedAndWeekends(t *testing.T) {
	eng, _ := newTestEngine(t)
	anchor := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC) // Friday
	booked := map[string]bool{"2026-02-13": true}

	slots := eng.visitSlotsAround(anchor, booked)
	require.Len(t, slots, maxVisitSlots)
	for _, slot := range slots {
		iso, hour := splitSlot(slot)
		require.NotEqual(t, "2026-02-13", iso)
		day, err := time.Parse("2006-01-02", iso)
		require.NoError(t, err)
		require.True(t, eng.visitWeekdayAllowed(day.Weekday()))
		require.Contains(t, []string{"10:00", "14:00", "16:00"}, hour)
	}
}
