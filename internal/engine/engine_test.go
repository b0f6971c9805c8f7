package engine

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"venuehq.io/banquet/internal/calendar"
	"venuehq.io/banquet/internal/catalog"
	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/llm"
	"venuehq.io/banquet/internal/pkg/logger"
	"venuehq.io/banquet/internal/store"
)

func init() {
	_ = logger.Init("error", "json")
}

// testTS anchors every test turn so relative dates resolve the same way
// regardless of when the suite runs.
var testTS = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

const testTeam = "demo"

func testConfig() *config.Config {
	return &config.Config{
		Workflow: config.WorkflowConfig{
			NonsenseConfidence:   0.5,
			IntakeConfidence:     0.85,
			AcceptanceConfidence: 0.7,
			MaxCounterRounds:     3,
			MaxDateAttempts:      3,
			MaxStepIterations:    6,
			TimePromptRounds:     2,
			DefaultWindowStart:   "14:00",
			DefaultWindowEnd:     "18:00",
			RevisionLexicon: []string{
				"actually", "switch", "change", "instead", "rather", "update",
				"make it", "move it", "move to", "reschedule", "postpone",
			},
			ProductAutofillMin: 0.8,
		},
		Offer: config.OfferConfig{
			Currency: "EUR", DepositRate: 0.3, DepositDueDays: 14, OptionHoldDays: 7,
		},
		SiteVisit: config.SiteVisitConfig{
			Weekdays: []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
			Hours:    []int{10, 14, 16},
		},
		Dates: config.DatesConfig{
			HorizonMinDays: 45, HorizonMaxDays: 180,
			DefaultSlotStart: "18:00", DefaultSlotEnd: "22:00",
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, context.Context) {
	t.Helper()
	catalog.Clear()
	cat, err := catalog.Load(t.TempDir())
	require.NoError(t, err)

	st := store.New(store.Options{
		Dir:               t.TempDir(),
		LockTimeout:       2 * time.Second,
		LockRetryInterval: 10 * time.Millisecond,
		StaleLockAge:      time.Minute,
	})
	cfg := testConfig()
	adapter := &llm.RuleAdapter{RevisionLexicon: cfg.Workflow.RevisionLexicon}
	eng := New(cfg, st, cat, adapter, calendar.LogClient{}, nil)
	return eng, store.WithTeam(context.Background(), testTeam)
}

func send(t *testing.T, eng *Engine, ctx context.Context, thread, from, body string) *TurnResult {
	t.Helper()
	res, err := eng.RunTurn(ctx, &InboundMessage{
		FromEmail: from,
		Body:      body,
		TS:        testTS,
		ThreadID:  thread,
	})
	require.NoError(t, err)
	return res
}

func loadEvent(t *testing.T, eng *Engine, eventID string) *domain.EventRecord {
	t.Helper()
	db, err := eng.store.Load(testTeam)
	require.NoError(t, err)
	ev := db.FindEvent(eventID)
	require.NotNil(t, ev, "event %s not found", eventID)
	return ev
}

func draftTopics(res *TurnResult) []string {
	topics := make([]string, 0, len(res.DraftMessages))
	for _, d := range res.DraftMessages {
		topics = append(topics, d.Topic)
	}
	return topics
}

func allDraftText(res *TurnResult) string {
	var b strings.Builder
	for _, d := range res.DraftMessages {
		b.WriteString(d.Body)
		b.WriteString("\n")
	}
	return b.String()
}

func TestHappyPathThroughHIL(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "client@example.com"

	// Turn 1: date + time + participants in one message.
	r1 := send(t, eng, ctx, "th-1", client, "Book May 15 2026 14:00-18:00 for 25 guests.")
	require.NotEmpty(t, r1.EventID)
	require.Contains(t, draftTopics(r1), "date_ack")
	require.Contains(t, draftTopics(r1), "room_options")

	ev := loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.StepRoom, ev.CurrentStep)
	require.True(t, ev.DateConfirmed)
	require.Equal(t, "2026-05-15", ev.ChosenDate)
	require.Equal(t, 25, ev.Requirements.Participants)

	// Turn 2: explicit room pick runs through to the extras prompt.
	r2 := send(t, eng, ctx, "th-1", client, "Room A please.")
	ev = loadEvent(t, eng, r2.EventID)
	require.Equal(t, "Room A", ev.LockedRoomID)
	require.Equal(t, domain.StepOffer, ev.CurrentStep)
	require.Contains(t, draftTopics(r2), "extras_prompt")

	// Turn 3: skipping extras yields the offer.
	r3 := send(t, eng, ctx, "th-1", client, "No extras needed, we just want the room.")
	ev = loadEvent(t, eng, r3.EventID)
	require.Equal(t, domain.StepNegotiation, ev.CurrentStep)
	require.Equal(t, domain.ThreadAwaitingClient, ev.ThreadState)
	require.True(t, ev.ProductsSkipped)
	require.True(t, strings.HasPrefix(ev.CurrentOfferID, "OF-"))
	require.Contains(t, allDraftText(r3), "deposit")

	offer := ev.CurrentOffer()
	require.NotNil(t, offer)
	require.Equal(t, 1200.0, offer.Subtotal)
	require.Equal(t, 360.0, offer.DepositAmount)

	// Turn 4: acceptance hits the gate; billing is missing.
	r4 := send(t, eng, ctx, "th-1", client, "I accept.")
	ev = loadEvent(t, eng, r4.EventID)
	require.True(t, ev.OfferAccepted)
	require.True(t, ev.BillingRequirements.AwaitingBillingForAccept)
	require.Contains(t, draftTopics(r4), "billing_request")
	require.Contains(t, allDraftText(r4), "company")

	// Turn 5: billing arrives; only the deposit is outstanding.
	r5 := send(t, eng, ctx, "th-1", client, "Acme GmbH, Bahnhofstr. 1, 8001 Zurich, Switzerland")
	ev = loadEvent(t, eng, r5.EventID)
	require.True(t, ev.BillingDetails.Complete())
	require.False(t, ev.BillingRequirements.AwaitingBillingForAccept)
	require.Contains(t, draftTopics(r5), "deposit_reminder")

	// Pay-deposit endpoint: the gate goes green and HIL takes over.
	_, err := eng.PayDeposit(ctx, r1.EventID)
	require.NoError(t, err)
	ev = loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.ThreadWaitingOnHIL, ev.ThreadState)

	tasks, err := eng.PendingHILTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "step5:"+ev.CurrentOfferID, tasks[0].PayloadString("signature"))

	// A second injection is a no-op: still exactly one outstanding task.
	_, err = eng.PayDeposit(ctx, r1.EventID)
	require.NoError(t, err)
	tasks, err = eng.PendingHILTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	// Approve: acceptance effects plus the transition bridge.
	dec, err := eng.ApproveTask(ctx, tasks[0].TaskID, ApproveInput{})
	require.NoError(t, err)
	require.False(t, dec.Skipped)
	require.NotNil(t, dec.Draft)
	require.Contains(t, dec.Draft.Body, "approved")

	ev = loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.StepConfirmation, ev.CurrentStep)
	require.Equal(t, domain.OfferAccepted, ev.OfferStatus)
	require.Equal(t, domain.VisitProposed, ev.SiteVisitState.Status)
	require.True(t, ev.TransitionReady)
	require.Len(t, ev.HILHistory, 1)

	// Replaying the approval is idempotent.
	dec2, err := eng.ApproveTask(ctx, tasks[0].TaskID, ApproveInput{})
	require.NoError(t, err)
	require.True(t, dec2.Skipped)
	require.Nil(t, dec2.Draft)
	ev = loadEvent(t, eng, r1.EventID)
	require.Len(t, ev.HILHistory, 1)
}

func TestDateChangeMidNegotiationPreservesCaller(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "planner@example.com"

	r1 := send(t, eng, ctx, "th-2", client, "Book June 10 2026 15:00-19:00 for 20 guests.")
	send(t, eng, ctx, "th-2", client, "Room B please.")
	send(t, eng, ctx, "th-2", client, "No extras needed, we just want the room.")
	ev := loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.StepNegotiation, ev.CurrentStep)

	res := send(t, eng, ctx, "th-2", client, "Actually can we move it to June 17?")
	require.Equal(t, "date", res.Extras["change_detour"])

	topics := draftTopics(res)
	require.Contains(t, topics, "change_ack")
	require.Contains(t, topics, "room_recheck")
	require.Contains(t, allDraftText(res), "17.06.2026")

	ev = loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.StepNegotiation, ev.CurrentStep, "fast-skip must land back at the caller")
	require.Zero(t, ev.CallerStep)
	require.Equal(t, "2026-06-17", ev.ChosenDate)
	require.True(t, ev.DateConfirmed)
	require.Equal(t, "Room B", ev.LockedRoomID, "room lock survives a date change")
	require.NotEmpty(t, ev.RoomEvalHash, "step 3 re-verified the lock")
	require.Equal(t, "15:00", ev.RequestedWindow.Start, "date-only change inherits the agreed window")
}

func TestNonsenseIsIgnoredWithoutPersistence(t *testing.T) {
	eng, ctx := newTestEngine(t)

	res := send(t, eng, ctx, "", "noise@example.com", "asdfgh qwertyuiop")
	require.Equal(t, "ignored_nonsense", res.Action)
	require.Empty(t, res.DraftMessages)
	require.Empty(t, res.EventID)

	_, err := os.Stat(eng.store.FileFor(testTeam))
	require.True(t, os.IsNotExist(err), "nonsense must not create the state file")
}

func TestSiteVisitConflictProposesAlternatives(t *testing.T) {
	eng, ctx := newTestEngine(t)

	// An existing confirmed event blocks its date for visits.
	require.NoError(t, eng.store.WithLock(ctx, testTeam, func(db *domain.Database) (bool, error) {
		db.Events = append(db.Events, &domain.EventRecord{
			EventID:       "ev-a",
			ClientEmail:   "first@example.com",
			CreatedAt:     testTS,
			Status:        domain.EventConfirmed,
			CurrentStep:   domain.StepConfirmation,
			ThreadState:   domain.ThreadAwaitingClient,
			ChosenDate:    "2026-02-15",
			DateConfirmed: true,
			RequestedWindow: &domain.RequestedWindow{
				DateISO: "2026-02-15", Start: "18:00", End: "22:00",
			},
		})
		return true, nil
	}))

	res := send(t, eng, ctx, "th-3", "visitor@example.com", "Can we do a site visit on Feb 15?")
	require.NotEmpty(t, res.EventID)
	require.Contains(t, draftTopics(res), "site_visit_slots")

	ev := loadEvent(t, eng, res.EventID)
	require.Equal(t, domain.VisitDatePending, ev.SiteVisitState.Status)
	require.True(t, ev.SiteVisitState.HasEventConflict)
	require.NotEmpty(t, ev.SiteVisitState.ProposedSlots)

	for _, slot := range ev.SiteVisitState.ProposedSlots {
		iso, _ := splitSlot(slot)
		require.NotEqual(t, "2026-02-15", iso, "the booked date must be excluded")
		day, err := time.Parse("2006-01-02", iso)
		require.NoError(t, err)
		require.NotEqual(t, time.Saturday, day.Weekday())
		require.NotEqual(t, time.Sunday, day.Weekday())
	}
}

func TestSequentialWorkflowDefersQnATail(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "hybrid@example.com"

	// Park the event at step 2 waiting for a time.
	r1 := send(t, eng, ctx, "th-4", client, "Book March 3 2026 for 30 people.")
	ev := loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.StepDate, ev.CurrentStep)
	require.NotNil(t, ev.PendingTimeRequest)

	// Forward motion and a question in one message.
	res := send(t, eng, ctx, "th-4", client, "Book Feb 14 18:00-22:00 for 30. Also, what catering do you offer?")
	require.Equal(t, true, res.Extras["hybrid_qna_response"])
	require.NotEmpty(t, res.DraftMessages)
	require.Contains(t, res.DraftMessages[0].Body, "confirmed")
	require.Contains(t, res.DraftMessages[0].Body, "Buffet", "the catering answer rides as a tail section")

	ev = loadEvent(t, eng, r1.EventID)
	require.Equal(t, "2026-02-14", ev.ChosenDate)
	require.Equal(t, domain.StepRoom, ev.CurrentStep)
	require.Nil(t, ev.PendingTimeRequest)
}

func TestTimePromptLoopBreaksToDefaultWindow(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "slow@example.com"

	r1 := send(t, eng, ctx, "th-5", client, "Book March 3 2026 for 30 people.")
	send(t, eng, ctx, "th-5", client, "Whenever works for us.")
	ev := loadEvent(t, eng, r1.EventID)
	require.NotNil(t, ev.PendingTimeRequest)
	require.Equal(t, 2, ev.PendingTimeRequest.Rounds)

	send(t, eng, ctx, "th-5", client, "Really, anything is fine.")
	ev = loadEvent(t, eng, r1.EventID)
	require.Nil(t, ev.PendingTimeRequest)
	require.True(t, ev.DateConfirmed)
	require.Equal(t, "14:00", ev.RequestedWindow.Start)
	require.Equal(t, "18:00", ev.RequestedWindow.End)
	require.Equal(t, domain.StepRoom, ev.CurrentStep)
}

func TestCounterOffersEscalateAtThreshold(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "haggler@example.com"

	r1 := send(t, eng, ctx, "th-6", client, "Book June 10 2026 15:00-19:00 for 20 guests.")
	send(t, eng, ctx, "th-6", client, "Room C please.")
	send(t, eng, ctx, "th-6", client, "No extras needed, we just want the room.")

	send(t, eng, ctx, "th-6", client, "That is too expensive for us.")
	send(t, eng, ctx, "th-6", client, "Still too expensive, any discount?")
	res := send(t, eng, ctx, "th-6", client, "We need a better price.")
	require.Contains(t, draftTopics(res), "counter_escalated")

	ev := loadEvent(t, eng, r1.EventID)
	require.Equal(t, 3, ev.NegotiationState.CounterCount)
	require.NotEmpty(t, ev.NegotiationState.ManualReviewTaskID)
	require.Equal(t, domain.ThreadAwaitingManagerReview, ev.ThreadState)

	db, err := eng.store.Load(testTeam)
	require.NoError(t, err)
	require.Len(t, db.PendingTasks(domain.TaskManualReview), 1)
}

func TestDeclineAtNegotiationCancelsViaConfirmation(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "leaver@example.com"

	r1 := send(t, eng, ctx, "th-7", client, "Book June 10 2026 15:00-19:00 for 20 guests.")
	send(t, eng, ctx, "th-7", client, "Room C please.")
	send(t, eng, ctx, "th-7", client, "No extras needed, we just want the room.")

	res := send(t, eng, ctx, "th-7", client, "We found another venue, we have to cancel.")
	require.Contains(t, draftTopics(res), "booking_cancelled")

	ev := loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.EventCancelled, ev.Status)
	require.Equal(t, domain.OfferDeclined, ev.OfferStatus)

	// The record is frozen: a follow-up only gets the closed-event notice.
	res2 := send(t, eng, ctx, "th-7", client, "Wait, what rooms do you have again?")
	require.Equal(t, "event_closed", res2.Action)
}

func TestTurnAuditAndThreadStateInvariants(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "audit@example.com"

	r1 := send(t, eng, ctx, "th-8", client, "Book May 15 2026 14:00-18:00 for 25 guests.")
	ev := loadEvent(t, eng, r1.EventID)

	require.NotEmpty(t, ev.Audit)
	for _, entry := range ev.Audit {
		require.GreaterOrEqual(t, entry.FromStep, domain.StepIntake)
		require.LessOrEqual(t, entry.ToStep, domain.StepConfirmation)
	}
	require.True(t, ev.ThreadState.Valid())
	require.GreaterOrEqual(t, ev.CurrentStep, domain.StepIntake)
	require.LessOrEqual(t, ev.CurrentStep, domain.StepConfirmation)
}

func TestPastDateRollsForwardToFutureWeekday(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "retro@example.com"

	// 2024-05-15 is a Wednesday more than a year gone; one added year is
	// still in the past, so the proposal must keep rolling forward.
	r1 := send(t, eng, ctx, "th-9", client,
		"We would like to book 2024-05-15 from 18:00 to 22:00 for 20 people.")
	require.Contains(t, draftTopics(r1), "date_past")
	require.Contains(t, allDraftText(r1), "20.05.2026")

	ev := loadEvent(t, eng, r1.EventID)
	require.False(t, ev.DateConfirmed)
	require.NotNil(t, ev.PendingFutureConfirmation)
	require.Equal(t, "2026-05-20", ev.PendingFutureConfirmation.DateISO)

	proposed, err := time.Parse("2006-01-02", ev.PendingFutureConfirmation.DateISO)
	require.NoError(t, err)
	require.True(t, proposed.After(testTS), "proposed replacement must be bookable")
	require.Equal(t, time.Wednesday, proposed.Weekday())

	// The one-word confirmation finalizes the rolled-forward window.
	r2 := send(t, eng, ctx, "th-9", client, "That works.")
	require.Contains(t, draftTopics(r2), "date_ack")

	ev = loadEvent(t, eng, r2.EventID)
	require.True(t, ev.DateConfirmed)
	require.Equal(t, "2026-05-20", ev.ChosenDate)
	require.Equal(t, "18:00", ev.RequestedWindow.Start)
	require.Equal(t, "22:00", ev.RequestedWindow.End)
	require.Nil(t, ev.PendingFutureConfirmation)
	require.Equal(t, domain.StepRoom, ev.CurrentStep)
}

func TestDateRevisionWithoutAdapterBindingAsksForConfirmation(t *testing.T) {
	eng, ctx := newTestEngine(t)
	const client = "careful@example.com"

	r1 := send(t, eng, ctx, "th-10", client, "Book June 10 2026 15:00-19:00 for 20 guests.")
	send(t, eng, ctx, "th-10", client, "Room B please.")
	send(t, eng, ctx, "th-10", client, "No extras needed, we just want the room.")
	ev := loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.StepNegotiation, ev.CurrentStep)

	// A high-signal revision skips the adapter, so the new date is only a
	// cheap-tier extraction and needs the client to confirm it.
	res := send(t, eng, ctx, "th-10", client,
		"Let's book 2026-06-20 from 15:00 to 19:00 instead.")
	require.Equal(t, "date", res.Extras["change_detour"])
	require.Contains(t, draftTopics(res), "change_ack")
	require.Contains(t, draftTopics(res), "date_confirm_prompt")
	require.Contains(t, allDraftText(res), "20.06.2026")

	ev = loadEvent(t, eng, r1.EventID)
	require.Equal(t, domain.StepDate, ev.CurrentStep)
	require.Equal(t, domain.StepNegotiation, ev.CallerStep)
	require.False(t, ev.DateConfirmed)
	require.Equal(t, "2026-06-10", ev.ChosenDate, "the old date holds until confirmation")
	require.NotNil(t, ev.PendingDateConfirmation)
	require.Equal(t, "2026-06-20", ev.PendingDateConfirmation.DateISO)

	// The bare yes locks the window and fast-skips back to the caller.
	send(t, eng, ctx, "th-10", client, "Yes.")
	ev = loadEvent(t, eng, r1.EventID)
	require.True(t, ev.DateConfirmed)
	require.Equal(t, "2026-06-20", ev.ChosenDate)
	require.Equal(t, "15:00", ev.RequestedWindow.Start)
	require.Equal(t, "19:00", ev.RequestedWindow.End)
	require.Equal(t, "Room B", ev.LockedRoomID, "room lock survives the confirmed change")
	require.Nil(t, ev.PendingDateConfirmation)
	require.Zero(t, ev.CallerStep)
	require.Equal(t, domain.StepNegotiation, ev.CurrentStep)
}

func TestClipRunesKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("ü", 80)
	got := clipRunes(long, 121)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("ü", 60), got)

	require.Equal(t, "short", clipRunes("short", 120))
	require.Equal(t, "abc", clipRunes("abcdef", 3))
}
