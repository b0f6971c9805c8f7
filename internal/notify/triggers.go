// Package notify encapsulates manager-notification triggers. Triggers
// enqueue manager_notification tasks into the tenant document so the
// manager UI surfaces them alongside HIL approvals; they never fail the
// calling turn.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// Triggers creates manager-facing notification tasks. All methods mutate
// the passed document; the caller owns persistence (they run inside the
// turn's lock).
type Triggers struct{}

// NewTriggers creates the trigger service.
func NewTriggers() *Triggers {
	return &Triggers{}
}

func (t *Triggers) enqueue(db *domain.Database, eventID, clientID, notes string, payload map[string]any) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	db.Tasks = append(db.Tasks, &domain.Task{
		TaskID:    id.String(),
		Type:      domain.TaskManagerNotification,
		Status:    domain.TaskPending,
		ClientID:  clientID,
		EventID:   eventID,
		Payload:   payload,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	})
	logger.Info("manager notification enqueued",
		zap.String("event_id", eventID),
		zap.String("notes", notes),
	)
}

// OnEventOverVisitDate fires when an event books a day that already holds
// a scheduled site visit. Allowed, but the manager should know.
func (t *Triggers) OnEventOverVisitDate(db *domain.Database, e *domain.EventRecord, dateISO string) {
	t.enqueue(db, e.EventID, e.ClientEmail,
		fmt.Sprintf("event booked on %s which holds a scheduled site visit", dateISO),
		map[string]any{"date_iso": dateISO, "kind": "event_over_visit"},
	)
}

// OnOfferConfirmed fires when an event reaches final confirmation.
func (t *Triggers) OnOfferConfirmed(db *domain.Database, e *domain.EventRecord) {
	t.enqueue(db, e.EventID, e.ClientEmail,
		fmt.Sprintf("event %s confirmed for %s", e.EventID, e.ChosenDate),
		map[string]any{"kind": "event_confirmed"},
	)
}

// OnSiteVisitScheduled fires when a visit date is locked in.
func (t *Triggers) OnSiteVisitScheduled(db *domain.Database, e *domain.EventRecord, dateISO, slot string) {
	t.enqueue(db, e.EventID, e.ClientEmail,
		fmt.Sprintf("site visit scheduled on %s at %s", dateISO, slot),
		map[string]any{"date_iso": dateISO, "slot": slot, "kind": "site_visit_scheduled"},
	)
}
