// Package detect implements the cheap classification tiers: keyword and
// regex gates for dates, times, rooms, acceptance, billing tokens,
// gibberish and question shape, plus the deterministic intent classifier.
//
// Everything here is pure string work; the LLM adapter (internal/llm) is
// only consulted when these tiers are inconclusive.
package detect

import (
	"strings"
	"time"
)

// Options parameterize a single analysis run.
type Options struct {
	// RoomNames from the catalog drive the room-mention gate.
	RoomNames []string
	// RevisionLexicon is the tenant-configurable change-signal word list.
	RevisionLexicon []string
	// Now anchors relative date resolution ("June 17" without a year).
	Now time.Time
}

// Result is the unified detection output for one message.
type Result struct {
	Intent     string
	Confidence float64
	StepAnchor int

	IsQuestion         bool
	IsGeneralQnA       bool
	QnAType            string
	SequentialWorkflow bool

	Acceptance AcceptanceMatch
	Decline    bool
	Counter    bool
	Reserve    bool
	FinalYes   bool

	DepositPaid     bool
	SiteVisitIntent bool
	RevisionSignal  bool
	NoExtras        bool

	Dates        []Date
	TimeRange    *TimeRange
	RoomMention  string
	Participants int
	Billing      *BillingFragment

	Gibberish bool

	Statements []string
	Questions  []string
}

// HasWorkflowSignals reports whether the message carries anything the
// workflow can act on. The nonsense gate fires only when this is false.
func (r *Result) HasWorkflowSignals() bool {
	return len(r.Dates) > 0 ||
		r.TimeRange != nil ||
		r.RoomMention != "" ||
		r.Participants > 0 ||
		r.Billing != nil ||
		r.Acceptance.Match ||
		r.Decline || r.Counter || r.Reserve ||
		r.DepositPaid || r.SiteVisitIntent || r.NoExtras ||
		r.IsGeneralQnA
}

// Analyze runs every cheap tier over the message.
func Analyze(text string, opts Options) *Result {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	r := &Result{}
	lower := strings.ToLower(text)

	r.Statements, r.Questions = SplitSentences(text)
	r.IsQuestion = len(r.Questions) > 0 && len(strings.TrimSpace(strings.Join(r.Statements, " "))) == 0

	r.Dates = ExtractDates(text, opts.Now)
	r.TimeRange = ExtractTimeRange(text)
	r.RoomMention = matchRoom(lower, opts.RoomNames)
	r.Participants = extractParticipants(lower)
	r.Billing = ExtractBilling(text)

	r.Acceptance = MatchAcceptance(text, r.RoomMention)
	r.Decline = matchAny(lower, declinePhrases)
	r.Counter = matchAny(lower, counterPhrases)
	r.Reserve = matchAny(lower, reservePhrases)
	r.DepositPaid = matchAny(lower, depositPaidPhrases)
	r.SiteVisitIntent = matchAny(lower, siteVisitPhrases)
	r.NoExtras = matchAny(lower, noExtrasPhrases)
	r.RevisionSignal = matchAny(lower, opts.RevisionLexicon)
	r.FinalYes = matchFinalYes(lower)

	r.Gibberish = IsGibberish(text) && !r.HasWorkflowSignals()

	classifyIntent(r, lower)
	return r
}

var (
	declinePhrases = []string{
		"decline", "we have to cancel", "cancel the event", "cancel our booking",
		"not interested", "no longer need", "won't be needing", "call it off",
		"found another venue", "have to pass",
	}
	counterPhrases = []string{
		"too expensive", "discount", "lower the price", "cheaper", "reduce the price",
		"can you do it for", "better price", "negotiate", "price is too high",
		"match the price", "bring the price down",
	}
	reservePhrases = []string{
		"reserve the date", "put an option", "hold the date", "pencil us in",
		"option on the date", "reserve it for now",
	}
	depositPaidPhrases = []string{
		"paid the deposit", "deposit has been paid", "deposit is paid",
		"transferred the deposit", "deposit payment went through",
	}
	siteVisitPhrases = []string{
		"site visit", "visit the venue", "venue tour", "come by and see",
		"view the venue", "viewing", "see the rooms in person", "look around the venue",
		"come see the space",
	}
	noExtrasPhrases = []string{
		"no extras", "nothing else", "no catering", "no additional",
		"just the room", "without catering", "no add-ons",
	}
	bookingPhrases = []string{
		"book", "booking", "reserve a room", "host an event", "plan an event",
		"organize", "organise", "we need a room", "we need a venue", "looking for a venue",
		"celebration", "conference", "workshop", "party", "offsite",
	}
)

func matchAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func matchRoom(lower string, roomNames []string) string {
	for _, name := range roomNames {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

// matchFinalYes recognizes the bare one-word confirmation a pending
// date/future proposal waits on.
func matchFinalYes(lower string) bool {
	t := strings.TrimSpace(strings.Trim(lower, ".!"))
	switch t {
	case "yes", "yes please", "ok", "okay", "sure", "sounds good", "perfect",
		"that works", "works for us", "confirmed", "go ahead":
		return true
	}
	return false
}
