package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	apperrors "venuehq.io/banquet/internal/pkg/errors"
	"venuehq.io/banquet/internal/pkg/logger"
	"venuehq.io/banquet/internal/store"
)

// HIL payload kinds.
const (
	hilKindOfferAcceptance = "offer_acceptance"
	hilKindAIReply         = "ai_reply"
)

// HILDecision is the result of approving or rejecting a HIL task.
type HILDecision struct {
	TaskID  string `json:"task_id"`
	EventID string `json:"event_id,omitempty"`
	Skipped bool   `json:"skipped"`
	Draft   *Draft `json:"draft,omitempty"`
}

// enqueueAcceptanceHIL creates the step 5 approval task once the gate is
// green. Dedup by signature; older step drafts are superseded to done.
func (e *Engine) enqueueAcceptanceHIL(ts *turnState) *stepResult {
	ev := ts.event
	sig := e.offerSignature(domain.StepNegotiation, ev.CurrentOfferID)

	if ev.HasPendingHIL(sig) {
		// Already waiting on the manager; nothing new to enqueue.
		ev.ThreadState = domain.ThreadWaitingOnHIL
		ts.persist = true
		ts.setExtra("hil_pending", sig)
		return haltTurn
	}

	// Step 5 owns acceptance: supersede approval drafts from other steps.
	for _, ref := range append([]domain.HILRequestRef(nil), ev.PendingHILRequests...) {
		if ref.Step == domain.StepNegotiation {
			continue
		}
		if task := ts.db.FindTask(ref.TaskID); task != nil && task.Status == domain.TaskPending {
			task.Status = domain.TaskDone
			now := time.Now().UTC()
			task.DecidedAt = &now
			task.Notes = "superseded by acceptance flow"
		}
		ev.RemovePendingHIL(ref.TaskID)
	}

	task := &domain.Task{
		TaskID:   NewID(),
		Type:     domain.TaskHILApproval,
		Status:   domain.TaskPending,
		ClientID: ev.ClientEmail,
		EventID:  ev.EventID,
		Payload: map[string]any{
			"kind":       hilKindOfferAcceptance,
			"signature":  sig,
			"step_id":    domain.StepNegotiation,
			"offer_id":   ev.CurrentOfferID,
			"thread_id":  ev.ThreadID,
			"draft_body": e.acceptanceSummary(ts),
		},
		CreatedAt: time.Now().UTC(),
	}
	ts.db.Tasks = append(ts.db.Tasks, task)
	ev.PendingHILRequests = append(ev.PendingHILRequests, domain.HILRequestRef{
		TaskID:    task.TaskID,
		Signature: sig,
		Step:      domain.StepNegotiation,
		Draft:     task.PayloadString("draft_body"),
		ThreadID:  ev.ThreadID,
	})
	ev.ThreadState = domain.ThreadWaitingOnHIL
	ts.persist = true
	ts.setExtra("hil_enqueued", sig)

	ts.addDraft("acceptance_received",
		"Thank you, everything is in place on your side. Our events manager will send the final confirmation shortly.")

	logger.Info("hil approval enqueued",
		zap.String("task_id", task.TaskID),
		zap.String("event_id", ev.EventID),
		zap.String("signature", sig),
	)
	return haltTurn
}

// acceptanceSummary is the manager-facing digest attached to the task.
func (e *Engine) acceptanceSummary(ts *turnState) string {
	ev := ts.event
	var b strings.Builder
	fmt.Fprintf(&b, "Client %s accepted offer %s", ev.ClientEmail, ev.CurrentOfferID)
	if o := ev.CurrentOffer(); o != nil {
		fmt.Fprintf(&b, " (%.2f %s, %s in %s)", o.Subtotal, o.Currency, displayISO(o.DateISO), o.RoomID)
	}
	fmt.Fprintf(&b, ". Billing: %s, %s, %s %s, %s.",
		ev.BillingDetails.Company, ev.BillingDetails.Street,
		ev.BillingDetails.PostalCode, ev.BillingDetails.City, ev.BillingDetails.Country)
	if ev.DepositInfo.Paid {
		b.WriteString(" Deposit paid.")
	} else {
		fmt.Fprintf(&b, " Deposit of %.2f outstanding.", ev.DepositInfo.Amount)
	}
	return b.String()
}

// ApproveInput carries the manager's approval payload.
type ApproveInput struct {
	ManagerNotes  string `json:"manager_notes,omitempty"`
	EditedMessage string `json:"edited_message,omitempty"`
}

// ApproveTask approves a pending HIL task under the tenant lock.
// Re-approving an already-approved task is a no-op with Skipped=true.
func (e *Engine) ApproveTask(ctx context.Context, taskID string, in ApproveInput) (*HILDecision, error) {
	var out *HILDecision
	err := e.store.WithLock(ctx, store.TeamFrom(ctx), func(db *domain.Database) (bool, error) {
		task := db.FindTask(taskID)
		if task == nil {
			return false, apperrors.ErrTaskNotFoundf(taskID)
		}
		if task.Type != domain.TaskHILApproval {
			return false, apperrors.BadRequest(apperrors.CodeTaskWrongType,
				fmt.Sprintf("task %s is %s, not %s", taskID, task.Type, domain.TaskHILApproval))
		}
		if task.Status == domain.TaskApproved {
			out = &HILDecision{TaskID: taskID, EventID: task.EventID, Skipped: true}
			return false, nil
		}
		if task.Status != domain.TaskPending {
			return false, apperrors.Conflict(apperrors.CodeTaskNotPending,
				fmt.Sprintf("task %s is already %s", taskID, task.Status))
		}
		ev := db.FindEvent(task.EventID)
		if ev == nil {
			return false, apperrors.ErrEventNotFoundf(task.EventID)
		}

		now := time.Now().UTC()
		manager := store.ManagerFrom(ctx)
		task.Status = domain.TaskApproved
		task.DecidedAt = &now
		task.DecidedBy = manager
		if in.ManagerNotes != "" {
			task.Notes = in.ManagerNotes
		}
		ev.RemovePendingHIL(taskID)
		ev.HILHistory = append(ev.HILHistory, domain.HILHistoryEntry{
			TaskID:    taskID,
			Signature: task.PayloadString("signature"),
			Decision:  "approved",
			DecidedBy: manager,
			DecidedAt: now,
			Notes:     in.ManagerNotes,
		})

		body := in.EditedMessage
		if body == "" {
			body = task.PayloadString("draft_body")
		}

		if task.PayloadString("kind") == hilKindOfferAcceptance {
			body = e.applyOfferApproval(db, ev, body)
		} else {
			ev.ThreadState = domain.ThreadAwaitingClient
		}

		out = &HILDecision{
			TaskID:  taskID,
			EventID: ev.EventID,
			Draft:   &Draft{Topic: "hil_approved", Body: body},
		}
		logger.Info("hil task approved",
			zap.String("task_id", taskID),
			zap.String("event_id", ev.EventID),
			zap.String("manager", manager),
		)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applyOfferApproval runs the acceptance effects: offer Accepted, the
// transition bridge, and the site-visit proposal. Returns the outbound
// body: a client-facing confirmation when the gate is green, otherwise
// the manager-only summary unchanged.
func (e *Engine) applyOfferApproval(db *domain.Database, ev *domain.EventRecord, summary string) string {
	if o := ev.CurrentOffer(); o != nil {
		o.Status = domain.OfferAccepted
	}
	ev.OfferStatus = domain.OfferAccepted
	ev.NegotiationPendingDecision = ""
	if ev.SiteVisitState.Status == domain.VisitIdle {
		ev.SiteVisitState.Status = domain.VisitProposed
	}
	ev.MoveToStep(domain.StepTransition, "hil", "offer acceptance approved")
	ev.TransitionReady = true
	ev.MoveToStep(domain.StepConfirmation, "engine", "transition complete")
	ev.ThreadState = domain.ThreadAwaitingClient

	if ev.BillingDetails.Complete() && (!ev.DepositInfo.Required || ev.DepositInfo.Paid) {
		display := ev.ChosenDate
		if ev.RequestedWindow != nil {
			display = displayISO(ev.RequestedWindow.DateISO)
		}
		body := fmt.Sprintf(
			"Wonderful news: your booking for %s in %s is approved. We will send the final confirmation and invoice shortly. We are also happy to show you the venue beforehand if you would like a site visit.",
			display, ev.LockedRoomID)
		e.notify.OnOfferConfirmed(db, ev)
		return body
	}
	return summary
}

// RejectTask rejects a pending HIL task: the pending decision is cleared
// and a polite decline is composed for the client.
func (e *Engine) RejectTask(ctx context.Context, taskID, managerNotes string) (*HILDecision, error) {
	var out *HILDecision
	err := e.store.WithLock(ctx, store.TeamFrom(ctx), func(db *domain.Database) (bool, error) {
		task := db.FindTask(taskID)
		if task == nil {
			return false, apperrors.ErrTaskNotFoundf(taskID)
		}
		if task.Type != domain.TaskHILApproval {
			return false, apperrors.BadRequest(apperrors.CodeTaskWrongType,
				fmt.Sprintf("task %s is %s, not %s", taskID, task.Type, domain.TaskHILApproval))
		}
		if task.Status == domain.TaskRejected {
			out = &HILDecision{TaskID: taskID, EventID: task.EventID, Skipped: true}
			return false, nil
		}
		if task.Status != domain.TaskPending {
			return false, apperrors.Conflict(apperrors.CodeTaskNotPending,
				fmt.Sprintf("task %s is already %s", taskID, task.Status))
		}
		ev := db.FindEvent(task.EventID)
		if ev == nil {
			return false, apperrors.ErrEventNotFoundf(task.EventID)
		}

		now := time.Now().UTC()
		manager := store.ManagerFrom(ctx)
		task.Status = domain.TaskRejected
		task.DecidedAt = &now
		task.DecidedBy = manager
		if managerNotes != "" {
			task.Notes = managerNotes
		}
		ev.RemovePendingHIL(taskID)
		ev.HILHistory = append(ev.HILHistory, domain.HILHistoryEntry{
			TaskID:    taskID,
			Signature: task.PayloadString("signature"),
			Decision:  "rejected",
			DecidedBy: manager,
			DecidedAt: now,
			Notes:     managerNotes,
		})

		ev.NegotiationPendingDecision = ""
		if task.PayloadString("kind") == hilKindOfferAcceptance {
			ev.OfferAccepted = false
			if o := ev.CurrentOffer(); o != nil {
				o.Status = domain.OfferPending
			}
			ev.OfferStatus = domain.OfferPending
		}
		ev.ThreadState = domain.ThreadAwaitingClient

		out = &HILDecision{
			TaskID:  taskID,
			EventID: ev.EventID,
			Draft: &Draft{Topic: "hil_rejected", Body: "Thank you for your patience. " +
				"Our events manager could not approve the booking in its current form. " +
				"We would be glad to work out an alternative that fits; just let us know what matters most to you."},
		}
		logger.Info("hil task rejected",
			zap.String("task_id", taskID),
			zap.String("event_id", ev.EventID),
			zap.String("manager", manager),
		)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
