package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/pkg/logger"
)

// dispatch loops through step handlers starting from the event's current
// step. Bounded iteration; the site-visit interceptor runs before each
// handler; a halt or nil result ends the turn.
func (e *Engine) dispatch(ctx context.Context, ts *turnState) {
	for i := 0; i < e.cfg.Workflow.MaxStepIterations; i++ {
		// Site-visit interceptor: an active date_pending flow or fresh
		// site-visit intent takes priority over the step handler.
		if !ts.visitIntercepted &&
			(ts.event.SiteVisitState.Status == domain.VisitDatePending || ts.det.SiteVisitIntent) {
			ts.visitIntercepted = true
			if res := e.runSiteVisit(ts); res.halt {
				return
			}
		}

		res := e.safeRunStep(ctx, ts)
		if e.cfg.Debug {
			e.logStepSnapshot(ts, i)
		}
		if res == nil || res.halt {
			return
		}
	}
	logger.Warn("dispatcher iteration bound reached",
		zap.String("event_id", ts.event.EventID),
		zap.Int("step", ts.event.CurrentStep),
	)
}

// safeRunStep runs one step handler with panic/error escalation: the
// event goes to AwaitingManagerReview and a manual-review task carries
// the message preview.
func (e *Engine) safeRunStep(ctx context.Context, ts *turnState) (res *stepResult) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("step handler panic",
				zap.Any("panic", p),
				zap.Int("step", ts.event.CurrentStep),
				zap.String("event_id", ts.event.EventID),
			)
			e.enqueueManualReview(ts, fmt.Sprintf("step %d handler panic: %v", ts.event.CurrentStep, p))
			res = haltTurn
		}
	}()

	switch ts.event.CurrentStep {
	case domain.StepIntake:
		// Intake already ran; a cursor still at 1 means it wants the
		// date step next.
		ts.event.MoveToStep(domain.StepDate, "engine", "intake complete")
		return continueTurn
	case domain.StepDate:
		return e.stepDate(ts)
	case domain.StepRoom:
		return e.stepRoom(ts)
	case domain.StepOffer:
		return e.stepOffer(ts)
	case domain.StepNegotiation:
		return e.stepNegotiation(ctx, ts)
	case domain.StepTransition:
		return e.stepTransition(ts)
	case domain.StepConfirmation:
		return e.stepConfirmation(ts)
	}
	logger.Error("dispatch on invalid step", zap.Int("step", ts.event.CurrentStep))
	return haltTurn
}

// preStep is the shared step preamble: change detection with detour
// routing, then Q&A mediation. Returns a non-nil result when the step's
// business logic must not run this iteration.
func (e *Engine) preStep(ts *turnState, step int) *stepResult {
	// One detour per turn: the target step consumes the change, it must
	// not re-trigger on the same message.
	if _, detoured := ts.extras["change_detour"]; !detoured {
		if ch := e.detectChange(ts, step); ch.IsChange {
			e.applyDetour(ts, ch, step)
			return continueTurn // dispatcher re-enters at the target step
		}
	}

	if ts.det.IsGeneralQnA {
		if ts.det.SequentialWorkflow {
			// Accept-and-ask-next: forward motion wins, the Q&A response
			// is appended after the step's primary response.
			ts.qnaTail = e.qnaBody(ts)
			return nil
		}
		e.answerQnA(ts)
		return haltTurn
	}
	return nil
}

func (e *Engine) logStepSnapshot(ts *turnState, iteration int) {
	logger.Debug("step snapshot",
		zap.Int("iteration", iteration),
		zap.String("event_id", ts.event.EventID),
		zap.Int("current_step", ts.event.CurrentStep),
		zap.Int("caller_step", ts.event.CallerStep),
		zap.String("thread_state", string(ts.event.ThreadState)),
		zap.String("chosen_date", ts.event.ChosenDate),
		zap.String("locked_room", ts.event.LockedRoomID),
		zap.Bool("offer_accepted", ts.event.OfferAccepted),
	)
}
