package llm

import (
	"context"
	"regexp"
	"strings"

	"venuehq.io/banquet/internal/detect"
)

// RuleAdapter is the deterministic in-repo adapter. It reuses the
// detection tiers for labels and field extraction, so the engine behaves
// identically with or without a remote model. It also serves as the
// degraded fallback implementation.
type RuleAdapter struct {
	// RevisionLexicon mirrors the workflow config so labels match the
	// change detector's view of the message.
	RevisionLexicon []string
}

var signatureNameRe = regexp.MustCompile(`(?im)^(?:best regards|kind regards|regards|thanks|cheers|mit freundlichen grüßen),?\s*\n+\s*([\p{L} .'-]{2,40})$`)

// Classify implements Adapter.
func (a *RuleAdapter) Classify(_ context.Context, msg Message, c Context) (Classification, error) {
	text := msg.Body
	if msg.Subject != "" {
		text = msg.Subject + "\n" + msg.Body
	}
	r := detect.Analyze(text, detect.Options{
		RoomNames:       c.RoomNames,
		RevisionLexicon: a.RevisionLexicon,
		Now:             c.Now,
	})

	fields := map[string]any{}
	if len(r.Dates) > 0 {
		fields["date_iso"] = r.Dates[0].ISO
		fields["date_display"] = r.Dates[0].Display
	}
	if r.TimeRange != nil {
		fields["start"] = r.TimeRange.Start
		if r.TimeRange.End != "" {
			fields["end"] = r.TimeRange.End
		}
	}
	if r.Participants > 0 {
		fields["participants"] = r.Participants
	}
	if r.RoomMention != "" {
		fields["room"] = r.RoomMention
	}
	if m := signatureNameRe.FindStringSubmatch(msg.Body); m != nil {
		fields["name"] = strings.TrimSpace(m[1])
	}

	return Classification{
		Label:      r.Intent,
		Confidence: r.Confidence,
		Fields:     fields,
	}, nil
}
