package domain

import (
	"time"
)

// ClientRecord is the per-client profile plus message history.
type ClientRecord struct {
	Email    string         `json:"email"`
	Profile  Profile        `json:"profile"`
	History  []HistoryEntry `json:"history"`
	EventIDs []string       `json:"event_ids"`
}

// Profile is the known contact info of a client.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Org   string `json:"org,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// HistoryEntry is appended once per inbound message.
type HistoryEntry struct {
	MsgID      string         `json:"msg_id"`
	TS         time.Time      `json:"ts"`
	Subject    string         `json:"subject,omitempty"`
	Preview    string         `json:"preview,omitempty"`
	Intent     string         `json:"intent,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	UserInfo   map[string]any `json:"user_info,omitempty"`
}

// Task is an opaque kind-tagged record for the HIL and routing queues.
type Task struct {
	TaskID    string         `json:"task_id"`
	Type      TaskType       `json:"type"`
	Status    TaskStatus     `json:"status"`
	ClientID  string         `json:"client_id,omitempty"`
	EventID   string         `json:"event_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
	DecidedBy string         `json:"decided_by,omitempty"`
}

// PayloadString reads a string payload field, empty when absent.
func (t *Task) PayloadString(key string) string {
	if t.Payload == nil {
		return ""
	}
	if v, ok := t.Payload[key].(string); ok {
		return v
	}
	return ""
}

// Database is the single per-tenant document.
type Database struct {
	Events  []*EventRecord           `json:"events"`
	Clients map[string]*ClientRecord `json:"clients"`
	Tasks   []*Task                  `json:"tasks"`
	Config  map[string]any           `json:"config,omitempty"`
}

// NewDatabase returns an empty document with allocated containers.
func NewDatabase() *Database {
	return &Database{
		Events:  []*EventRecord{},
		Clients: map[string]*ClientRecord{},
		Tasks:   []*Task{},
	}
}

// FindEvent returns the event with the given ID, or nil.
func (db *Database) FindEvent(eventID string) *EventRecord {
	for _, e := range db.Events {
		if e.EventID == eventID {
			return e
		}
	}
	return nil
}

// FindTask returns the task with the given ID, or nil.
func (db *Database) FindTask(taskID string) *Task {
	for _, t := range db.Tasks {
		if t.TaskID == taskID {
			return t
		}
	}
	return nil
}

// PendingTasks returns tasks in status pending, optionally filtered by type.
func (db *Database) PendingTasks(kind TaskType) []*Task {
	var out []*Task
	for _, t := range db.Tasks {
		if t.Status != TaskPending {
			continue
		}
		if kind != "" && t.Type != kind {
			continue
		}
		out = append(out, t)
	}
	return out
}

// UpsertClient returns the client record for email, creating it on first
// contact.
func (db *Database) UpsertClient(email, name string) *ClientRecord {
	if db.Clients == nil {
		db.Clients = map[string]*ClientRecord{}
	}
	if c, ok := db.Clients[email]; ok {
		if c.Profile.Name == "" && name != "" {
			c.Profile.Name = name
		}
		return c
	}
	c := &ClientRecord{Email: email, EventIDs: []string{}}
	c.Profile.Name = name
	db.Clients[email] = c
	return c
}

// EventsForClient returns events owned by the client, newest first.
func (db *Database) EventsForClient(email string) []*EventRecord {
	var out []*EventRecord
	for i := len(db.Events) - 1; i >= 0; i-- {
		if db.Events[i].ClientEmail == email {
			out = append(out, db.Events[i])
		}
	}
	return out
}

// BookedEventDates returns the set of ISO dates holding a confirmed or
// date-confirmed event. Used by the site-visit conflict check and the
// candidate date engine's forbidden set.
func (db *Database) BookedEventDates() map[string]bool {
	dates := map[string]bool{}
	for _, e := range db.Events {
		if e.Status == EventCancelled {
			continue
		}
		if e.RequestedWindow != nil && e.RequestedWindow.DateISO != "" && (e.DateConfirmed || e.Status == EventConfirmed || e.Status == EventOption) {
			dates[e.RequestedWindow.DateISO] = true
		}
	}
	return dates
}

// ScheduledVisitDates returns the set of ISO dates holding a scheduled
// site visit.
func (db *Database) ScheduledVisitDates() map[string]bool {
	dates := map[string]bool{}
	for _, e := range db.Events {
		if e.SiteVisitState.Status == VisitScheduled && e.SiteVisitState.DateISO != "" {
			dates[e.SiteVisitState.DateISO] = true
		}
	}
	return dates
}
