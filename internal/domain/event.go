package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// EventRecord is the central aggregate: one booking inquiry through its
// full lifecycle. Mutated only inside a turn while the tenant database
// lock is held.
type EventRecord struct {
	EventID     string    `json:"event_id"`
	ThreadID    string    `json:"thread_id,omitempty"`
	ClientEmail string    `json:"client_email"`
	CreatedAt   time.Time `json:"created_at"`
	Status      EventStatus `json:"status"`

	// Workflow cursor.
	CurrentStep  int         `json:"current_step"`
	CallerStep   int         `json:"caller_step,omitempty"`
	SubflowGroup string      `json:"subflow_group,omitempty"`
	ThreadState  ThreadState `json:"thread_state"`

	// Requested facts.
	ChosenDate       string           `json:"chosen_date,omitempty"`
	DateConfirmed    bool             `json:"date_confirmed"`
	RequestedWindow  *RequestedWindow `json:"requested_window,omitempty"`
	LockedRoomID     string           `json:"locked_room_id,omitempty"`
	Requirements     Requirements     `json:"requirements"`
	RequirementsHash string           `json:"requirements_hash,omitempty"`
	RoomEvalHash     string           `json:"room_eval_hash,omitempty"`

	// Commerce.
	Offers              []Offer             `json:"offers"`
	CurrentOfferID      string              `json:"current_offer_id,omitempty"`
	OfferSequence       int                 `json:"offer_sequence"`
	OfferAccepted       bool                `json:"offer_accepted"`
	OfferStatus         OfferStatus         `json:"offer_status,omitempty"`
	Products            []ProductLine       `json:"products"`
	ProductsSkipped     bool                `json:"products_skipped"`
	SelectedCatering    []string            `json:"selected_catering"`
	PricingInputs       map[string]any      `json:"pricing_inputs,omitempty"`
	DepositInfo         DepositInfo         `json:"deposit_info"`
	BillingDetails      BillingDetails      `json:"billing_details"`
	BillingRequirements BillingRequirements `json:"billing_requirements"`

	// Out-of-order capture.
	Captured        map[string]any `json:"captured"`
	CapturedSources []string       `json:"captured_sources"`
	DeferredIntents []string       `json:"deferred_intents"`

	// Negotiation.
	NegotiationState           NegotiationState `json:"negotiation_state"`
	NegotiationPendingDecision string           `json:"negotiation_pending_decision,omitempty"`

	// Site visit + confirmation.
	SiteVisitState    SiteVisitState    `json:"site_visit_state"`
	ConfirmationState ConfirmationState `json:"confirmation_state"`
	TransitionReady   bool              `json:"transition_ready"`

	// HIL.
	PendingHILRequests []HILRequestRef   `json:"pending_hil_requests"`
	HILHistory         []HILHistoryEntry `json:"hil_history"`

	// Audit. Append-only; one entry per step transition.
	Audit []AuditEntry `json:"audit"`
	Logs  []string     `json:"logs"`

	// Date proposals.
	CandidateDates            []CandidateDate     `json:"candidate_dates"`
	DateProposalAttempts      int                 `json:"date_proposal_attempts"`
	DateProposalHistory       []string            `json:"date_proposal_history"`
	PendingDateConfirmation   *PendingDate        `json:"pending_date_confirmation,omitempty"`
	PendingFutureConfirmation *PendingDate        `json:"pending_future_confirmation,omitempty"`
	PendingTimeRequest        *PendingTimeRequest `json:"pending_time_request,omitempty"`
}

// RequestedWindow is the resolved date/time window for the event.
type RequestedWindow struct {
	DateISO string `json:"date"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Hash    string `json:"hash,omitempty"`
}

// Requirements holds the structured needs captured during intake and room
// evaluation. RequirementsHash is computed over this struct.
type Requirements struct {
	Participants        int    `json:"participants,omitempty"`
	Layout              string `json:"layout,omitempty"`
	PreferredRoom       string `json:"preferred_room,omitempty"`
	SpecialRequirements string `json:"special_requirements,omitempty"`
	EventDuration       string `json:"event_duration,omitempty"`
}

// Hash returns a stable hash of the requirements. Field order is fixed so
// the hash survives round-trips through JSON.
func (r Requirements) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "p=%d|l=%s|r=%s|s=%s|d=%s",
		r.Participants,
		strings.ToLower(r.Layout),
		strings.ToLower(r.PreferredRoom),
		strings.ToLower(r.SpecialRequirements),
		strings.ToLower(r.EventDuration),
	)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// RoomEvalHash combines the requirements hash with the event date; a room
// lock is re-evaluated whenever either moves.
func RoomEvalHash(requirementsHash, dateISO string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", requirementsHash, dateISO)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Offer is one composed offer version. Offers are append-only history;
// CurrentOfferID points at the live one.
type Offer struct {
	OfferID       string      `json:"offer_id"`
	Version       int         `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	Status        OfferStatus `json:"status"`
	DateISO       string      `json:"date"`
	RoomID        string      `json:"room_id"`
	Items         []OfferLine `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Currency      string      `json:"currency"`
	DepositAmount float64     `json:"deposit_amount"`
	DepositDue    string      `json:"deposit_due,omitempty"`
}

// OfferLine is one line item. Unit is "per_person" or "per_event".
type OfferLine struct {
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// ProductLine is a selected catalog product on the event.
type ProductLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// DepositInfo tracks the deposit attached to the current offer.
type DepositInfo struct {
	Required bool       `json:"required"`
	Amount   float64    `json:"amount,omitempty"`
	Paid     bool       `json:"paid"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
	DueDate  string     `json:"due_date,omitempty"`
}

// BillingDetails is the invoice address. Company, street, postal code,
// city and country are required for the confirmation gate; VAT is optional.
type BillingDetails struct {
	Company    string `json:"company,omitempty"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	VATID      string `json:"vat_id,omitempty"`
}

// Missing returns the required billing fields that are still empty,
// in a stable order.
func (b BillingDetails) Missing() []string {
	var missing []string
	if b.Company == "" {
		missing = append(missing, "company")
	}
	if b.Street == "" {
		missing = append(missing, "street")
	}
	if b.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if b.City == "" {
		missing = append(missing, "city")
	}
	if b.Country == "" {
		missing = append(missing, "country")
	}
	return missing
}

// Complete reports whether all required billing fields are present.
func (b BillingDetails) Complete() bool {
	return len(b.Missing()) == 0
}

// BillingRequirements tracks the billing side of an in-flight acceptance.
type BillingRequirements struct {
	AwaitingBillingForAccept bool     `json:"awaiting_billing_for_accept"`
	LastMissing              []string `json:"last_missing,omitempty"`
}

// NegotiationState tracks counter-offer rounds.
type NegotiationState struct {
	CounterCount       int    `json:"counter_count"`
	ManualReviewTaskID string `json:"manual_review_task_id,omitempty"`
}

// SiteVisitState is the venue-wide site-visit flow. No room is held.
type SiteVisitState struct {
	Status           SiteVisitStatus `json:"status"`
	DateISO          string          `json:"date_iso,omitempty"`
	TimeSlot         string          `json:"time_slot,omitempty"`
	ProposedSlots    []string        `json:"proposed_slots,omitempty"`
	InitiatedAtStep  int             `json:"initiated_at_step,omitempty"`
	HasEventConflict bool            `json:"has_event_conflict"`
}

// ConfirmationState tracks what step 7 is waiting on.
type ConfirmationState struct {
	Pending          *PendingConfirmation `json:"pending,omitempty"`
	LastResponseType string               `json:"last_response_type,omitempty"`
}

// PendingConfirmation names the kind of yes/no the thread is waiting for.
type PendingConfirmation struct {
	Kind string `json:"kind"`
}

// PendingDate is a date proposal awaiting a one-word confirmation.
type PendingDate struct {
	DateISO string `json:"date_iso"`
	Display string `json:"display"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

// PendingTimeRequest tracks the "what time?" loop of step 2. Rounds is
// incremented per prompt; the handler loop-breaks to a default window
// after the configured number of rounds.
type PendingTimeRequest struct {
	DateISO string `json:"date_iso"`
	Display string `json:"display"`
	Rounds  int    `json:"rounds"`
}

// HILRequestRef is the event-side reference to an outstanding HIL task.
type HILRequestRef struct {
	TaskID    string `json:"task_id"`
	Signature string `json:"signature"`
	Step      int    `json:"step"`
	Draft     string `json:"draft"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// HILHistoryEntry records a decided HIL task.
type HILHistoryEntry struct {
	TaskID    string    `json:"task_id"`
	Signature string    `json:"signature"`
	Decision  string    `json:"decision"`
	DecidedBy string    `json:"decided_by,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
	Notes     string    `json:"notes,omitempty"`
}

// AuditEntry records one step transition. The audit slice is append-only.
type AuditEntry struct {
	TS       time.Time `json:"ts"`
	Actor    string    `json:"actor"`
	FromStep int       `json:"from_step"`
	ToStep   int       `json:"to_step"`
	Reason   string    `json:"reason"`
}

// CandidateDate is one proposed date with its default slot.
type CandidateDate struct {
	DateISO   string `json:"date_iso"`
	Display   string `json:"display"`
	Weekday   string `json:"weekday"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
}

// Terminal reports whether the event is frozen (Confirmed or Cancelled).
func (e *EventRecord) Terminal() bool {
	return e.Status.Terminal()
}

// MoveToStep advances or detours the workflow cursor and appends the
// mandatory audit entry. Out-of-range targets are clamped into 1..7.
func (e *EventRecord) MoveToStep(step int, actor, reason string) {
	if step < StepIntake {
		step = StepIntake
	}
	if step > StepConfirmation {
		step = StepConfirmation
	}
	from := e.CurrentStep
	e.CurrentStep = step
	e.Audit = append(e.Audit, AuditEntry{
		TS:       time.Now().UTC(),
		Actor:    actor,
		FromStep: from,
		ToStep:   step,
		Reason:   reason,
	})
}

// AppendLog records a non-fatal note (external side-effect failures and
// similar) on the event.
func (e *EventRecord) AppendLog(note string) {
	e.Logs = append(e.Logs, fmt.Sprintf("%s %s", time.Now().UTC().Format(time.RFC3339), note))
}

// CurrentOffer returns the offer pointed at by CurrentOfferID, or nil.
func (e *EventRecord) CurrentOffer() *Offer {
	for i := range e.Offers {
		if e.Offers[i].OfferID == e.CurrentOfferID {
			return &e.Offers[i]
		}
	}
	return nil
}

// PendingHILSignatures returns the set of outstanding HIL signatures,
// sorted for deterministic iteration.
func (e *EventRecord) PendingHILSignatures() []string {
	sigs := make([]string, 0, len(e.PendingHILRequests))
	for _, r := range e.PendingHILRequests {
		sigs = append(sigs, r.Signature)
	}
	sort.Strings(sigs)
	return sigs
}

// HasPendingHIL reports whether a HIL request with the given signature is
// already outstanding on this event.
func (e *EventRecord) HasPendingHIL(signature string) bool {
	for _, r := range e.PendingHILRequests {
		if r.Signature == signature {
			return true
		}
	}
	return false
}

// RemovePendingHIL drops the pending reference for a decided task.
func (e *EventRecord) RemovePendingHIL(taskID string) {
	kept := e.PendingHILRequests[:0]
	for _, r := range e.PendingHILRequests {
		if r.TaskID != taskID {
			kept = append(kept, r)
		}
	}
	e.PendingHILRequests = kept
}
