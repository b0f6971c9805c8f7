package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	apperrors "venuehq.io/banquet/internal/pkg/errors"
	"venuehq.io/banquet/internal/pkg/logger"
	"venuehq.io/banquet/internal/store"
)

// StartConversation seeds a new thread from a first email and runs the
// initial turn.
func (e *Engine) StartConversation(ctx context.Context, fromEmail, fromName, body string) (*TurnResult, error) {
	return e.RunTurn(ctx, &InboundMessage{
		FromEmail: fromEmail,
		FromName:  fromName,
		Body:      body,
	})
}

// PendingHILTasks lists the outstanding approval tasks for the tenant.
// Read-only; no lock is taken.
func (e *Engine) PendingHILTasks(ctx context.Context) ([]*domain.Task, error) {
	db, err := e.store.Load(store.TeamFrom(ctx))
	if err != nil {
		return nil, err
	}
	tasks := db.PendingTasks(domain.TaskHILApproval)
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// GetEvent returns the event snapshot. Read-only.
func (e *Engine) GetEvent(ctx context.Context, eventID string) (*domain.EventRecord, error) {
	db, err := e.store.Load(store.TeamFrom(ctx))
	if err != nil {
		return nil, err
	}
	ev := db.FindEvent(eventID)
	if ev == nil {
		return nil, apperrors.ErrEventNotFoundf(eventID)
	}
	return ev, nil
}

// ListEvents returns the tenant's events, optionally filtered by status.
func (e *Engine) ListEvents(ctx context.Context, status string) ([]*domain.EventRecord, error) {
	db, err := e.store.Load(store.TeamFrom(ctx))
	if err != nil {
		return nil, err
	}
	out := []*domain.EventRecord{}
	for _, ev := range db.Events {
		if status != "" && string(ev.Status) != status {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// PayDeposit marks the deposit paid under the tenant lock, then injects a
// synthetic deposit_just_paid message so the workflow re-evaluates the
// confirmation gate in its own turn.
func (e *Engine) PayDeposit(ctx context.Context, eventID string) (*TurnResult, error) {
	var clientEmail string
	err := e.store.WithLock(ctx, store.TeamFrom(ctx), func(db *domain.Database) (bool, error) {
		ev := db.FindEvent(eventID)
		if ev == nil {
			return false, apperrors.ErrEventNotFoundf(eventID)
		}
		clientEmail = ev.ClientEmail
		if ev.DepositInfo.Paid {
			return false, nil
		}
		now := time.Now().UTC()
		ev.DepositInfo.Paid = true
		ev.DepositInfo.PaidAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("deposit marked paid", zap.String("event_id", eventID))

	return e.RunTurn(ctx, &InboundMessage{
		FromEmail: clientEmail,
		Body:      "I have paid the deposit.",
		Extras: MessageExtras{
			EventID:         eventID,
			DepositJustPaid: true,
		},
	})
}
