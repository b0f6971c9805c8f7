package detect

import (
	"regexp"
	"strings"
	"unicode"
)

var consonantRunRe = regexp.MustCompile(`(?i)[bcdfghjklmnpqrstvwxz]{5,}`)

// IsGibberish applies token-shape heuristics: alphabetic tokens with an
// implausible vowel ratio or long consonant runs. A message is gibberish
// when the majority of its meaningful tokens are.
func IsGibberish(text string) bool {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return true
	}

	checked, bad := 0, 0
	for _, tok := range tokens {
		tok = strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) })
		if len(tok) < 4 {
			continue
		}
		alpha := true
		for _, r := range tok {
			if !unicode.IsLetter(r) {
				alpha = false
				break
			}
		}
		if !alpha {
			continue
		}
		checked++
		if tokenGibberish(tok) {
			bad++
		}
	}
	if checked == 0 {
		return false
	}
	return bad*2 > checked
}

// keyboardWalks are row fragments typed by mashing; any hit marks the token.
var keyboardWalks = []string{"qwert", "werty", "rtyui", "tyuio", "yuiop", "asdf", "sdfg", "dfgh", "fghj", "ghjk", "hjkl", "zxcv", "xcvb", "cvbn", "vbnm"}

func tokenGibberish(tok string) bool {
	lower := strings.ToLower(tok)
	if consonantRunRe.MatchString(lower) {
		return true
	}
	for _, walk := range keyboardWalks {
		if strings.Contains(lower, walk) {
			return true
		}
	}
	vowels := 0
	for _, r := range lower {
		switch r {
		case 'a', 'e', 'i', 'o', 'u', 'y', 'ä', 'ö', 'ü':
			vowels++
		}
	}
	ratio := float64(vowels) / float64(len([]rune(lower)))
	return ratio < 0.15 || ratio > 0.9
}
