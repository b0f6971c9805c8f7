package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequirementsHash_Stable(t *testing.T) {
	a := Requirements{Participants: 25, Layout: "theater", PreferredRoom: "Room A"}
	b := Requirements{Participants: 25, Layout: "Theater", PreferredRoom: "room a"}
	require.Equal(t, a.Hash(), b.Hash(), "hash must be case-insensitive and stable")

	c := Requirements{Participants: 30, Layout: "theater", PreferredRoom: "Room A"}
	require.NotEqual(t, a.Hash(), c.Hash(), "participant change must move the hash")
}

func TestRoomEvalHash_MovesWithDate(t *testing.T) {
	req := Requirements{Participants: 25}
	h1 := RoomEvalHash(req.Hash(), "2026-05-15")
	h2 := RoomEvalHash(req.Hash(), "2026-05-16")
	require.NotEqual(t, h1, h2)
	require.Equal(t, h1, RoomEvalHash(req.Hash(), "2026-05-15"))
}

func TestBillingDetails_Missing(t *testing.T) {
	var b BillingDetails
	require.Equal(t, []string{"company", "street", "postal_code", "city", "country"}, b.Missing())
	require.False(t, b.Complete())

	b = BillingDetails{
		Company:    "Acme GmbH",
		Street:     "Bahnhofstr 1",
		PostalCode: "8001",
		City:       "Zurich",
		Country:    "Switzerland",
	}
	require.True(t, b.Complete(), "VAT must be optional")
}

func TestMoveToStep_AppendsAuditAndClamps(t *testing.T) {
	e := &EventRecord{CurrentStep: StepNegotiation}
	e.MoveToStep(StepDate, "engine", "date change detour")

	require.Equal(t, StepDate, e.CurrentStep)
	require.Len(t, e.Audit, 1)
	require.Equal(t, StepNegotiation, e.Audit[0].FromStep)
	require.Equal(t, StepDate, e.Audit[0].ToStep)

	e.MoveToStep(99, "engine", "clamped")
	require.Equal(t, StepConfirmation, e.CurrentStep)
	e.MoveToStep(0, "engine", "clamped")
	require.Equal(t, StepIntake, e.CurrentStep)
	require.Len(t, e.Audit, 3, "audit is append-only, one entry per transition")
}

func TestPendingHIL_DedupHelpers(t *testing.T) {
	e := &EventRecord{}
	BackfillEvent(e)

	e.PendingHILRequests = append(e.PendingHILRequests, HILRequestRef{
		TaskID: "t1", Signature: "step5:OF-1-v1", Step: 5,
	})
	require.True(t, e.HasPendingHIL("step5:OF-1-v1"))
	require.False(t, e.HasPendingHIL("step4:OF-1-v1"))

	e.RemovePendingHIL("t1")
	require.False(t, e.HasPendingHIL("step5:OF-1-v1"))
	require.Empty(t, e.PendingHILRequests)
}

func TestBackfillEvent_Idempotent(t *testing.T) {
	e := &EventRecord{ThreadState: ThreadAwaitingClient, CurrentStep: 4}
	BackfillEvent(e)
	BackfillEvent(e)

	require.Equal(t, ThreadAwaitingClient, e.ThreadState, "existing state preserved")
	require.Equal(t, 4, e.CurrentStep)
	require.Equal(t, VisitIdle, e.SiteVisitState.Status)
	require.NotNil(t, e.Captured)
	require.NotNil(t, e.Offers)
}

func TestBackfill_LoadedDocumentRoundTrip(t *testing.T) {
	// Simulate an older document missing containers entirely.
	raw := `{"events":[{"event_id":"ev-1","client_email":"a@b.c","current_step":3}],"clients":{"a@b.c":{"email":"a@b.c"}}}`
	var db Database
	require.NoError(t, json.Unmarshal([]byte(raw), &db))
	Backfill(&db)

	e := db.FindEvent("ev-1")
	require.NotNil(t, e)
	require.Equal(t, ThreadInProgress, e.ThreadState)
	require.Equal(t, EventOpen, e.Status)
	require.NotNil(t, db.Tasks)
	require.NotNil(t, db.Clients["a@b.c"].History)

	// Round-trip: semantics survive a save/load cycle.
	out, err := json.Marshal(&db)
	require.NoError(t, err)
	var db2 Database
	require.NoError(t, json.Unmarshal(out, &db2))
	Backfill(&db2)
	require.Equal(t, e.EventID, db2.FindEvent("ev-1").EventID)
	require.Equal(t, e.ThreadState, db2.FindEvent("ev-1").ThreadState)
}

func TestDatabase_UpsertClient(t *testing.T) {
	db := NewDatabase()
	c1 := db.UpsertClient("kim@acme.test", "Kim")
	c2 := db.UpsertClient("kim@acme.test", "")
	require.Same(t, c1, c2)
	require.Equal(t, "Kim", c2.Profile.Name)

	// Name fills in later when it was unknown at first contact.
	c3 := db.UpsertClient("alex@acme.test", "")
	db.UpsertClient("alex@acme.test", "Alex")
	require.Equal(t, "Alex", c3.Profile.Name)
}

func TestDatabase_BookedEventDates(t *testing.T) {
	db := NewDatabase()
	db.Events = append(db.Events,
		&EventRecord{
			EventID: "ev-1", Status: EventConfirmed, DateConfirmed: true,
			RequestedWindow: &RequestedWindow{DateISO: "2026-02-15"},
		},
		&EventRecord{
			EventID: "ev-2", Status: EventCancelled, DateConfirmed: true,
			RequestedWindow: &RequestedWindow{DateISO: "2026-03-01"},
		},
		&EventRecord{
			EventID: "ev-3", Status: EventOpen,
			RequestedWindow: &RequestedWindow{DateISO: "2026-04-01"},
		},
	)

	dates := db.BookedEventDates()
	require.True(t, dates["2026-02-15"])
	require.False(t, dates["2026-03-01"], "cancelled events release their date")
	require.False(t, dates["2026-04-01"], "unconfirmed open events do not block")
}

func TestThreadState_Valid(t *testing.T) {
	for _, s := range []ThreadState{
		ThreadInProgress, ThreadAwaitingClient, ThreadAwaitingClientResponse,
		ThreadWaitingOnHIL, ThreadAwaitingManagerReview,
	} {
		require.True(t, s.Valid(), string(s))
	}
	require.False(t, ThreadState("Closed").Valid())
}
