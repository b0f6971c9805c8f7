package detect

import "strings"

// Intent labels produced by the deterministic classifier (tier 2).
const (
	IntentNonsense     = "nonsense"
	IntentNonEvent     = "non_event"
	IntentEventRequest = "event_request"
	IntentGeneralQnA   = "general_qna"
	IntentAccept       = "accept"
	IntentDecline      = "decline"
	IntentCounter      = "counter"
	IntentReserve      = "reserve"
	IntentDepositPaid  = "deposit_paid"
	IntentSiteVisit    = "site_visit"
	IntentChange       = "change"
)

// qnaStepAnchor maps Q&A sub-types to the workflow step that owns the
// answer material.
var qnaStepAnchor = map[string]int{
	"catering":     4,
	"pricing":      4,
	"rooms":        3,
	"capacity":     3,
	"availability": 2,
	"site_visit":   0,
	"logistics":    0,
}

// classifyIntent fills Intent, Confidence, StepAnchor and the Q&A fields
// on an otherwise-populated result. Precedence mirrors how step handlers
// consume the signals: hard workflow verbs beat booking facts beat Q&A.
func classifyIntent(r *Result, lower string) {
	// Q&A sub-type from the question parts.
	if len(r.Questions) > 0 {
		r.QnAType = classifyQnA(strings.ToLower(strings.Join(r.Questions, " ")))
		if r.QnAType != "" {
			r.IsGeneralQnA = true
			r.StepAnchor = qnaStepAnchor[r.QnAType]
		}
	}

	// Accept-and-ask-next: forward motion plus a question in one message.
	hasAction := len(r.Dates) > 0 || r.TimeRange != nil || r.Participants > 0 ||
		r.RoomMention != "" || r.Acceptance.Match || matchAny(lower, bookingPhrases) ||
		r.DepositPaid || r.Reserve || r.NoExtras
	if hasAction && r.IsGeneralQnA && len(r.Statements) > 0 {
		r.SequentialWorkflow = true
	}

	switch {
	case r.Gibberish:
		r.Intent = IntentNonsense
		r.Confidence = 0.2
	case r.DepositPaid:
		r.Intent = IntentDepositPaid
		r.Confidence = 0.9
	case r.Acceptance.Match && r.Acceptance.Confidence >= 0.7:
		r.Intent = IntentAccept
		r.Confidence = r.Acceptance.Confidence
	case r.Decline:
		r.Intent = IntentDecline
		r.Confidence = 0.85
	case r.Counter:
		r.Intent = IntentCounter
		r.Confidence = 0.8
	case r.SiteVisitIntent:
		r.Intent = IntentSiteVisit
		r.Confidence = 0.85
	case r.Reserve:
		r.Intent = IntentReserve
		r.Confidence = 0.8
	case hasAction:
		r.Intent = IntentEventRequest
		r.Confidence = eventRequestConfidence(r, lower)
	case r.IsGeneralQnA:
		r.Intent = IntentGeneralQnA
		r.Confidence = 0.75
	default:
		r.Intent = IntentNonEvent
		r.Confidence = 0.3
	}
}

// eventRequestConfidence scores a booking-shaped message by how many
// concrete facts it binds.
func eventRequestConfidence(r *Result, lower string) float64 {
	score := 0.5
	if len(r.Dates) > 0 {
		score += 0.2
	}
	if r.Participants > 0 {
		score += 0.15
	}
	if r.TimeRange != nil {
		score += 0.1
	}
	if matchAny(lower, bookingPhrases) {
		score += 0.1
	}
	if score > 0.99 {
		score = 0.99
	}
	return score
}

func classifyQnA(questions string) string {
	switch {
	case strings.Contains(questions, "catering") || strings.Contains(questions, "food") ||
		strings.Contains(questions, "menu") || strings.Contains(questions, "drink") ||
		strings.Contains(questions, "buffet"):
		return "catering"
	case strings.Contains(questions, "price") || strings.Contains(questions, "cost") ||
		strings.Contains(questions, "how much") || strings.Contains(questions, "rate"):
		return "pricing"
	case strings.Contains(questions, "capacity") || strings.Contains(questions, "how many people") ||
		strings.Contains(questions, "fit"):
		return "capacity"
	case strings.Contains(questions, "room") || strings.Contains(questions, "space") ||
		strings.Contains(questions, "hall"):
		return "rooms"
	case strings.Contains(questions, "available") || strings.Contains(questions, "free on") ||
		strings.Contains(questions, "availability"):
		return "availability"
	case strings.Contains(questions, "visit") || strings.Contains(questions, "tour") ||
		strings.Contains(questions, "viewing"):
		return "site_visit"
	case strings.Contains(questions, "parking") || strings.Contains(questions, "wifi") ||
		strings.Contains(questions, "access") || strings.Contains(questions, "get there"):
		return "logistics"
	}
	return ""
}
