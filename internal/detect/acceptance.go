package detect

import (
	"regexp"
	"strings"
)

// AcceptanceMatch is the scored result of the offer-acceptance matcher.
type AcceptanceMatch struct {
	Match      bool
	Confidence float64
	Reason     string
}

// acceptancePatterns are scored phrase matchers. Strong phrases carry the
// full score; weak ones only fire on short messages where they are the
// whole point.
var acceptancePatterns = []struct {
	re     *regexp.Regexp
	score  float64
	reason string
}{
	{regexp.MustCompile(`(?i)\b(?:i|we)\s+(?:hereby\s+)?accept\b`), 0.95, "explicit accept"},
	{regexp.MustCompile(`(?i)\baccept\s+(?:the|your)\s+offer\b`), 0.95, "accept the offer"},
	{regexp.MustCompile(`(?i)\bwe(?:'d| would)?\s+like\s+to\s+(?:accept|proceed|go ahead)\b`), 0.85, "like to proceed"},
	{regexp.MustCompile(`(?i)\bthe\s+offer\s+(?:looks|sounds)\s+(?:good|great|fine)\b`), 0.8, "offer looks good"},
	{regexp.MustCompile(`(?i)\b(?:deal|agreed)\b`), 0.75, "deal"},
	{regexp.MustCompile(`(?i)\bgo\s+ahead\b`), 0.7, "go ahead"},
	{regexp.MustCompile(`(?i)\b(?:sounds|looks)\s+good\b`), 0.7, "sounds good"},
	{regexp.MustCompile(`(?i)\blet'?s\s+(?:do\s+it|book\s+it)\b`), 0.8, "let's do it"},
	{regexp.MustCompile(`(?i)\bplease\s+proceed\b`), 0.7, "please proceed"},
}

var proceedWithRoomRe = regexp.MustCompile(`(?i)\b(?:proceed|go)\s+(?:ahead\s+)?with\s+(?:the\s+)?room\b`)

// MatchAcceptance runs the scored acceptance matcher. Guardrail: phrases
// that merely select a room ("proceed with Room E") are room selection,
// not offer acceptance.
func MatchAcceptance(text, roomMention string) AcceptanceMatch {
	lower := strings.ToLower(text)

	// Room-selection guardrail.
	if roomMention != "" {
		if proceedWithRoomRe.MatchString(text) ||
			strings.Contains(lower, "proceed with "+strings.ToLower(roomMention)) ||
			strings.Contains(lower, "go with "+strings.ToLower(roomMention)) ||
			strings.Contains(lower, "take "+strings.ToLower(roomMention)) {
			return AcceptanceMatch{Reason: "room selection, not acceptance"}
		}
	}

	best := AcceptanceMatch{}
	for _, p := range acceptancePatterns {
		if p.re.MatchString(text) && p.score > best.Confidence {
			best = AcceptanceMatch{Match: true, Confidence: p.score, Reason: p.reason}
		}
	}
	if best.Match {
		return best
	}

	// A bare "yes"/"ok" only counts when the message is essentially just that.
	if matchFinalYes(lower) && len(strings.Fields(lower)) <= 3 {
		return AcceptanceMatch{Match: true, Confidence: 0.6, Reason: "bare affirmative"}
	}
	return AcceptanceMatch{}
}
