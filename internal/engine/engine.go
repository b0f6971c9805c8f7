// Package engine is the workflow orchestration kernel: the per-turn state
// machine that classifies a message, detects fact changes, dispatches to
// step handlers, routes detours, mediates Q&A, and manages HIL approvals
// and the order-independent confirmation gate.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"venuehq.io/banquet/internal/calendar"
	"venuehq.io/banquet/internal/catalog"
	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/llm"
	"venuehq.io/banquet/internal/notify"
	apperrors "venuehq.io/banquet/internal/pkg/errors"
	"venuehq.io/banquet/internal/pkg/logger"
	"venuehq.io/banquet/internal/pkg/worker"
	"venuehq.io/banquet/internal/store"
)

// Engine is the kernel. Dependencies are injected at construction; there
// is no module-level mutability.
type Engine struct {
	cfg     *config.Config
	store   *store.Store
	cat     *catalog.Catalog
	adapter llm.Adapter
	cal     calendar.Client
	notify  *notify.Triggers
	pools   *worker.Pools // nil in tests; side effects run inline then
}

// New wires the engine. pools may be nil (side effects run synchronously).
func New(cfg *config.Config, st *store.Store, cat *catalog.Catalog, adapter llm.Adapter, cal calendar.Client, pools *worker.Pools) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   st,
		cat:     cat,
		adapter: adapter,
		cal:     cal,
		notify:  notify.NewTriggers(),
		pools:   pools,
	}
}

// NewID returns a v7 UUID string, falling back to v4.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// RunTurn processes one inbound message under the tenant lock and returns
// the turn result. Recoverable failures become drafts or manual-review
// tasks; only transport-level problems (malformed input, lock timeout)
// surface as errors.
func (e *Engine) RunTurn(ctx context.Context, msg *InboundMessage) (*TurnResult, error) {
	if msg == nil || msg.FromEmail == "" || strings.TrimSpace(msg.Body) == "" {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "from_email and body are required").
			WithParams(map[string]any{"body": bodyEcho(msg)})
	}
	if msg.MsgID == "" {
		msg.MsgID = NewID()
	}
	if msg.TS.IsZero() {
		msg.TS = time.Now().UTC()
	}
	if msg.ThreadID == "" {
		msg.ThreadID = NewID()
	}

	teamID := store.TeamFrom(ctx)
	var result *TurnResult
	err := e.store.WithLock(ctx, teamID, func(db *domain.Database) (bool, error) {
		ts := &turnState{teamID: teamID, msg: msg, db: db}
		e.runLocked(ctx, ts)
		result = ts.result()
		return ts.persist, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func bodyEcho(msg *InboundMessage) string {
	if msg == nil {
		return ""
	}
	return clipRunes(msg.Body, 200)
}

// clipRunes truncates s to at most n bytes without splitting a rune, so
// persisted previews and error params stay valid UTF-8.
func clipRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// runLocked is the turn body: classify, intake, dispatch, finalize.
func (e *Engine) runLocked(ctx context.Context, ts *turnState) {
	e.classify(ctx, ts)
	e.recordHistory(ts)

	if halt := e.intake(ctx, ts); halt {
		e.finalizeTurn(ts)
		return
	}

	e.dispatch(ctx, ts)
	e.finalizeTurn(ts)
}

// classify runs the tiered classification: cheap detection first, the LLM
// adapter only when inconclusive, degraded fallback on adapter failure.
func (e *Engine) classify(ctx context.Context, ts *turnState) {
	ts.det = detect.Analyze(ts.messageText(), detect.Options{
		RoomNames:       e.cat.RoomNames(),
		RevisionLexicon: e.cfg.Workflow.RevisionLexicon,
		Now:             ts.msg.TS,
	})

	// Strong cheap-tier signals short-circuit the adapter call.
	if ts.det.Confidence >= 0.8 && ts.det.Intent != detect.IntentNonEvent {
		ts.cls = llm.Classification{
			Label:      ts.det.Intent,
			Confidence: ts.det.Confidence,
			Fields:     map[string]any{},
		}
	} else {
		lctx := llm.Context{RoomNames: e.cat.RoomNames(), Now: ts.msg.TS}
		if ts.event != nil {
			lctx.HasEvent = true
			lctx.CurrentStep = ts.event.CurrentStep
			lctx.ChosenDate = ts.event.ChosenDate
		}
		cls, err := e.adapter.Classify(ctx, llm.Message{Subject: ts.msg.Subject, Body: ts.msg.Body}, lctx)
		if err != nil {
			// Degraded tier: keyword/regex results only.
			logger.Warn("llm adapter unavailable, degrading to keyword tier", zap.Error(err))
			cls = llm.Classification{Label: detect.IntentNonEvent, Confidence: 0, Fields: map[string]any{}}
		}
		ts.cls = cls
	}

	ts.userInfo = ts.cls.Fields
	if ts.userInfo == nil {
		ts.userInfo = map[string]any{}
	}
	// Dates extracted from the message text always feed user_info; the
	// hallucination guard elsewhere requires textual presence anyway.
	_, ts.dateFromAdapter = ts.userInfo["date_iso"]
	if !ts.dateFromAdapter && len(ts.det.Dates) > 0 {
		ts.userInfo["date_iso"] = ts.det.Dates[0].ISO
		ts.userInfo["date_display"] = ts.det.Dates[0].Display
	}
}

// recordHistory upserts the client and appends the message history entry.
func (e *Engine) recordHistory(ts *turnState) {
	ts.client = ts.db.UpsertClient(ts.msg.FromEmail, ts.msg.FromName)
	if name, ok := ts.userInfo["name"].(string); ok && ts.client.Profile.Name == "" {
		ts.client.Profile.Name = name
	}
	preview := clipRunes(ts.msg.Body, 120)
	ts.client.History = append(ts.client.History, domain.HistoryEntry{
		MsgID:      ts.msg.MsgID,
		TS:         ts.msg.TS,
		Subject:    ts.msg.Subject,
		Preview:    preview,
		Intent:     ts.cls.Label,
		Confidence: ts.cls.Confidence,
		UserInfo:   ts.userInfo,
	})
	ts.persist = true
}

// finalizeTurn assembles drafts: the deferred Q&A tail is appended to the
// primary draft so accept-and-ask-next messages get one combined reply.
func (e *Engine) finalizeTurn(ts *turnState) {
	if ts.qnaTail != "" {
		if len(ts.drafts) > 0 {
			ts.drafts[0].Body += "\n\n" + ts.qnaTail
			ts.setExtra("hybrid_qna_response", true)
		} else {
			ts.addDraft("qna", ts.qnaTail)
		}
	}
	if ts.action == "" {
		if len(ts.drafts) > 0 {
			ts.action = "reply"
		} else {
			ts.action = "none"
		}
	}
}

// enqueueManualReview creates a manual_review task with a message preview
// and moves the event (when present) to AwaitingManagerReview.
func (e *Engine) enqueueManualReview(ts *turnState, reason string) *domain.Task {
	preview := clipRunes(ts.msg.Body, 200)
	task := &domain.Task{
		TaskID:   NewID(),
		Type:     domain.TaskManualReview,
		Status:   domain.TaskPending,
		ClientID: ts.msg.FromEmail,
		Payload: map[string]any{
			"reason":          reason,
			"message_preview": preview,
			"msg_id":          ts.msg.MsgID,
		},
		Notes:     reason,
		CreatedAt: time.Now().UTC(),
	}
	if ts.event != nil {
		task.EventID = ts.event.EventID
		ts.event.ThreadState = domain.ThreadAwaitingManagerReview
	}
	ts.db.Tasks = append(ts.db.Tasks, task)
	ts.persist = true
	logger.Info("manual review task enqueued",
		zap.String("task_id", task.TaskID),
		zap.String("reason", reason),
	)
	return task
}

// fireCalendarBlock dispatches the external calendar write. Best-effort:
// failures are logged on the event and never fail the turn.
func (e *Engine) fireCalendarBlock(ts *turnState, b calendar.Block) {
	run := func(ctx context.Context) {
		if err := e.cal.BlockDate(ctx, b); err != nil {
			logger.Warn("calendar block failed", zap.String("event_id", b.EventID), zap.Error(err))
		}
	}
	if e.pools != nil {
		if err := e.pools.SubmitDetached("external", run); err == nil {
			return
		}
		ts.event.AppendLog("calendar dispatch fell back to inline execution")
	}
	run(context.Background())
}

func (e *Engine) offerSignature(step int, offerID string) string {
	return fmt.Sprintf("step%d:%s", step, offerID)
}
