// Package domain defines the persisted data model of the booking engine:
// EventRecord, ClientRecord, Task and the per-tenant Database document.
//
// Everything here serializes to a single JSON document per tenant. Schema
// evolution is backwards-compatible additions only; BackfillEvent fills
// missing fields on load.
package domain

// ThreadState describes where a conversation thread stands.
// The display string is the serialized form.
type ThreadState string

const (
	ThreadInProgress             ThreadState = "InProgress"
	ThreadAwaitingClient         ThreadState = "AwaitingClient"
	ThreadAwaitingClientResponse ThreadState = "AwaitingClientResponse"
	ThreadWaitingOnHIL           ThreadState = "WaitingOnHIL"
	ThreadAwaitingManagerReview  ThreadState = "AwaitingManagerReview"
)

// Valid reports whether s is a member of the closed thread-state set.
func (s ThreadState) Valid() bool {
	switch s {
	case ThreadInProgress, ThreadAwaitingClient, ThreadAwaitingClientResponse,
		ThreadWaitingOnHIL, ThreadAwaitingManagerReview:
		return true
	}
	return false
}

// EventStatus is the booking lifecycle status of an event.
type EventStatus string

const (
	EventOpen      EventStatus = "Open"
	EventOption    EventStatus = "Option"
	EventConfirmed EventStatus = "Confirmed"
	EventCancelled EventStatus = "Cancelled"
)

// Terminal reports whether the status freezes further mutation
// (audit appends excepted).
func (s EventStatus) Terminal() bool {
	return s == EventConfirmed || s == EventCancelled
}

// OfferStatus is set by HIL or manager decision, never by the client directly.
type OfferStatus string

const (
	OfferPending  OfferStatus = "Pending"
	OfferAccepted OfferStatus = "Accepted"
	OfferDeclined OfferStatus = "Declined"
)

// SiteVisitStatus tracks the venue-wide site-visit flow.
type SiteVisitStatus string

const (
	VisitIdle        SiteVisitStatus = "idle"
	VisitDatePending SiteVisitStatus = "date_pending"
	VisitProposed    SiteVisitStatus = "proposed"
	VisitScheduled   SiteVisitStatus = "scheduled"
	VisitCompleted   SiteVisitStatus = "completed"
	VisitCancelled   SiteVisitStatus = "cancelled"
)

// TaskStatus is the lifecycle of a queued task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskApproved TaskStatus = "approved"
	TaskRejected TaskStatus = "rejected"
	TaskDone     TaskStatus = "done"
)

// TaskType distinguishes the queues sharing db.tasks.
type TaskType string

const (
	TaskHILApproval         TaskType = "hil_approval"
	TaskManualReview        TaskType = "manual_review"
	TaskManagerNotification TaskType = "manager_notification"
)

// Workflow step numbers. The seven-step pipeline is fixed; detours move
// the cursor backward but never outside 1..7.
const (
	StepIntake       = 1
	StepDate         = 2
	StepRoom         = 3
	StepOffer        = 4
	StepNegotiation  = 5
	StepTransition   = 6
	StepConfirmation = 7
)

// StepName returns the human label used in audit entries and logs.
func StepName(step int) string {
	switch step {
	case StepIntake:
		return "intake"
	case StepDate:
		return "date_confirmation"
	case StepRoom:
		return "room_availability"
	case StepOffer:
		return "offer"
	case StepNegotiation:
		return "negotiation"
	case StepTransition:
		return "transition"
	case StepConfirmation:
		return "confirmation"
	}
	return "unknown"
}
