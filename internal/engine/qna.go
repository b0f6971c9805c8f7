package engine

import (
	"fmt"
	"strings"

	"venuehq.io/banquet/internal/detect"
	"venuehq.io/banquet/internal/domain"
)

// qnaBody renders the answer for the message's Q&A sub-type from the
// read-only catalogs. Used both for standalone Q&A replies and for the
// deferred tail of accept-and-ask-next messages.
func (e *Engine) qnaBody(ts *turnState) string {
	switch ts.det.QnAType {
	case "catering":
		return e.cat.CateringSummary()
	case "rooms", "capacity":
		return e.roomsSummary(ts.det.Participants)
	case "pricing":
		return e.pricingSummary()
	case "availability":
		return e.availabilitySummary(ts)
	case "site_visit":
		return "We would be happy to show you around. Just name a weekday that suits you and we will propose time slots."
	case "logistics":
		return "The venue is centrally located with parking on site and step-free access. Wifi is included in every room. Let us know if you need anything specific."
	}
	return "Happy to help. Could you tell us a bit more about what you would like to know?"
}

// answerQnA emits a standalone Q&A draft without advancing the workflow.
func (e *Engine) answerQnA(ts *turnState) {
	ts.addDraft("qna", e.qnaBody(ts))
	ts.action = "qna"
	if ts.event != nil {
		ts.event.ThreadState = domain.ThreadAwaitingClient
		ts.persist = true
	}
}

func (e *Engine) roomsSummary(participants int) string {
	rooms := e.cat.RankRooms(participants, nil)
	if len(rooms) == 0 {
		return fmt.Sprintf("None of our rooms holds %d guests on its own; for groups that size we combine rooms. Shall we put together a proposal?", participants)
	}
	var b strings.Builder
	if participants > 0 {
		fmt.Fprintf(&b, "For %d guests these rooms work well:\n", participants)
	} else {
		b.WriteString("Our rooms:\n")
	}
	for _, r := range rooms {
		fmt.Fprintf(&b, "- %s (up to %d guests", r.Name, r.Capacity)
		if len(r.Features) > 0 {
			fmt.Fprintf(&b, ", %s", strings.Join(r.Features, ", "))
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) pricingSummary() string {
	var b strings.Builder
	b.WriteString("Room rates per event day:\n")
	for _, r := range e.cat.Rooms {
		fmt.Fprintf(&b, "- %s: %.2f %s\n", r.Name, r.DayRate, e.cfg.Offer.Currency)
	}
	b.WriteString("Catering and equipment are quoted per person or per event in the offer.")
	return b.String()
}

func (e *Engine) availabilitySummary(ts *turnState) string {
	booked := ts.db.BookedEventDates()
	if len(ts.det.Dates) > 0 {
		d := ts.det.Dates[0]
		if booked[d.ISO] {
			return fmt.Sprintf("%s is unfortunately already taken. Nearby dates are still open; shall we propose a few?", d.Display)
		}
		return fmt.Sprintf("%s is currently available. Shall we pencil it in for you?", d.Display)
	}
	return "Most dates in the coming months are still open. Tell us your preferred date and we will check it right away."
}

// AnswerStateless serves the /api/qna endpoint: catalog Q&A with no event
// mutation and no persistence.
func (e *Engine) AnswerStateless(text string) (topic, body string) {
	det := detect.Analyze(text, detect.Options{
		RoomNames:       e.cat.RoomNames(),
		RevisionLexicon: e.cfg.Workflow.RevisionLexicon,
	})
	ts := &turnState{det: det, db: domain.NewDatabase(), msg: &InboundMessage{Body: text}}
	t := det.QnAType
	if t == "" {
		t = "general"
	}
	return t, e.qnaBody(ts)
}
