// Package llm defines the language-model adapter the kernel consumes for
// intent labels, confidence and structured field extraction.
//
// The adapter is a pure function of (message, context). The kernel only
// consults it when the cheap detection tiers are inconclusive, and treats
// any failure as the degraded tier: label non_event, confidence 0.
package llm

import (
	"context"
	"time"
)

// Message is the inbound text handed to the adapter.
type Message struct {
	Subject string
	Body    string
}

// Context is the workflow situation the adapter may condition on.
type Context struct {
	HasEvent    bool
	CurrentStep int
	ChosenDate  string
	RoomNames   []string
	// Now anchors relative date resolution to the message timestamp.
	Now time.Time
}

// Classification is the adapter output. Fields carries extracted
// user_info: date_iso, date_display, start, end, participants, room,
// name, org, phone, whichever the message supports.
type Classification struct {
	Label      string
	Confidence float64
	Fields     map[string]any
}

// Adapter classifies a message. Implementations must be safe for
// concurrent use; calls are blocking I/O from the kernel's point of view.
type Adapter interface {
	Classify(ctx context.Context, msg Message, c Context) (Classification, error)
}
