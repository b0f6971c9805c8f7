package detect

import (
	"regexp"
	"strings"
)

var sentenceSplitRe = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

var interrogativeRe = regexp.MustCompile(`(?i)^\s*(?:what|when|where|which|who|why|how|can you|could you|would you|do you|does|is there|are there|any chance)\b`)

// SplitSentences splits incoming text into statement and question parts.
// Only facts in statement parts are persisted to requirements; question
// parts feed the Q&A response for the current turn only.
func SplitSentences(text string) (statements, questions []string) {
	for _, raw := range sentenceSplitRe.FindAllString(text, -1) {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if strings.HasSuffix(s, "?") || interrogativeRe.MatchString(s) {
			questions = append(questions, s)
		} else {
			statements = append(statements, s)
		}
	}
	return statements, questions
}
