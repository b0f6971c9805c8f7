package engine

import (
	"time"

	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/llm"
)

// InboundMessage is one client message delivered into the kernel.
type InboundMessage struct {
	MsgID     string        `json:"msg_id"`
	FromEmail string        `json:"from_email"`
	FromName  string        `json:"from_name,omitempty"`
	Subject   string        `json:"subject,omitempty"`
	Body      string        `json:"body"`
	TS        time.Time     `json:"ts"`
	ThreadID  string        `json:"thread_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Extras    MessageExtras `json:"extras,omitempty"`
}

// MessageExtras carries the known out-of-band flags a message may bear.
type MessageExtras struct {
	EventID         string `json:"event_id,omitempty"`
	DepositJustPaid bool   `json:"deposit_just_paid,omitempty"`
	HILApproveStep  int    `json:"hil_approve_step,omitempty"`
	HILDecision     string `json:"hil_decision,omitempty"`
}

// ActionRow is one machine-readable action attached to a draft (one row
// per proposed date, for example). It flows to the UI unchanged.
type ActionRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Draft is one outbound reply candidate. Topic is a string at this
// boundary because it flows to the UI.
type Draft struct {
	Topic   string      `json:"topic"`
	Body    string      `json:"body"`
	Actions []ActionRow `json:"actions,omitempty"`
}

// TurnResult is what one RunTurn surfaces to the transport layer.
type TurnResult struct {
	Action        string             `json:"action"`
	EventID       string             `json:"event_id,omitempty"`
	ThreadState   domain.ThreadState `json:"thread_state,omitempty"`
	DraftMessages []Draft            `json:"draft_messages"`
	Extras        map[string]any     `json:"extras,omitempty"`
}

// turnState is the in-flight state of one turn. It lives only while the
// tenant lock is held.
type turnState struct {
	teamID string
	msg    *InboundMessage

	db     *domain.Database
	client *domain.ClientRecord
	event  *domain.EventRecord

	det      *detect.Result
	cls      llm.Classification
	userInfo map[string]any
	// dateFromAdapter marks user_info["date_iso"] as bound by the adapter
	// itself rather than backfilled from cheap-tier extraction.
	dateFromAdapter bool

	drafts  []Draft
	qnaTail string // deferred Q&A appended after the primary response

	action  string
	extras  map[string]any
	persist bool

	// billingCaptured marks in-memory billing capture this turn; the
	// confirmation gate then refreshes only deposit fields from disk.
	billingCaptured bool
	// visitIntercepted guards the site-visit interceptor against firing
	// twice within one dispatcher loop.
	visitIntercepted bool
}

// stepResult is what one step handler returns to the dispatcher.
// halt finalizes the turn; otherwise the loop re-enters at the (possibly
// detoured) current step.
type stepResult struct {
	halt bool
}

var (
	haltTurn     = &stepResult{halt: true}
	continueTurn = &stepResult{halt: false}
)

func (ts *turnState) addDraft(topic, body string, actions ...ActionRow) {
	ts.drafts = append(ts.drafts, Draft{Topic: topic, Body: body, Actions: actions})
}

func (ts *turnState) setExtra(key string, val any) {
	if ts.extras == nil {
		ts.extras = map[string]any{}
	}
	ts.extras[key] = val
}

func (ts *turnState) result() *TurnResult {
	res := &TurnResult{
		Action:        ts.action,
		DraftMessages: ts.drafts,
		Extras:        ts.extras,
	}
	if res.DraftMessages == nil {
		res.DraftMessages = []Draft{}
	}
	if ts.event != nil {
		res.EventID = ts.event.EventID
		res.ThreadState = ts.event.ThreadState
	}
	return res
}

// messageText is the analyzed text: subject folded into the body.
func (ts *turnState) messageText() string {
	if ts.msg.Subject == "" {
		return ts.msg.Body
	}
	return ts.msg.Subject + "\n" + ts.msg.Body
}
