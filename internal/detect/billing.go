package detect

import (
	"regexp"
	"strings"
)

// BillingFragment is a billing address recognized inside a message, even
// when embedded in a larger request. Fields absent from the text stay empty.
type BillingFragment struct {
	Company    string
	Street     string
	PostalCode string
	City       string
	Country    string
	VATID      string
}

var (
	companyRe = regexp.MustCompile(`(?i)\b([\p{L}\d .&'-]+?\s(?:GmbH|AG|Ltd\.?|LLC|Inc\.?|S\.?A\.?|B\.?V\.?|KG|OHG|e\.?V\.?|Co\.?))(?:[,.\n]|$)`)
	streetRe  = regexp.MustCompile(`(?i)\b([\p{L} .'-]+?(?:stra(?:ss|ß)e|str\.?|street|st\.|road|rd\.|avenue|ave\.?|allee|gasse|weg|platz|lane|ln\.)\s*\d+[a-z]?)\b`)
	// postal + city: "8001 Zurich" or "Zurich 8001"
	postalCityRe = regexp.MustCompile(`\b(\d{4,5})\s+(\p{Lu}[\p{L} .'-]+?)(?:[,.\n]|$)`)
	vatRe        = regexp.MustCompile(`(?i)\b(?:vat|uid|ust-idnr\.?)[:. ]*\s*([A-Z]{2}[A-Z0-9 .-]{6,14})\b`)
)

var knownCountries = []string{
	"switzerland", "germany", "austria", "france", "italy", "liechtenstein",
	"netherlands", "belgium", "luxembourg", "united kingdom", "uk", "spain",
	"schweiz", "deutschland", "österreich",
}

// ExtractBilling recognizes billing tokens anywhere in a message. Returns
// nil when nothing billing-shaped is present.
func ExtractBilling(text string) *BillingFragment {
	b := &BillingFragment{}

	if m := companyRe.FindStringSubmatch(text); m != nil {
		b.Company = strings.TrimSpace(m[1])
	}
	if m := streetRe.FindStringSubmatch(text); m != nil {
		b.Street = strings.TrimSpace(m[1])
	}
	if m := postalCityRe.FindStringSubmatch(text); m != nil {
		city := strings.TrimSpace(m[2])
		// The city capture can run into the country name on one-line
		// addresses ("8001 Zurich, Switzerland" splits on the comma, but
		// "8001 Zurich Switzerland" does not).
		for _, c := range knownCountries {
			if strings.EqualFold(city, c) {
				city = ""
				break
			}
			suffix := " " + c
			if len(city) > len(suffix) && strings.EqualFold(city[len(city)-len(suffix):], suffix) {
				city = strings.TrimSpace(city[:len(city)-len(suffix)])
				break
			}
		}
		if city != "" {
			b.PostalCode = m[1]
			b.City = city
		}
	}
	if m := vatRe.FindStringSubmatch(text); m != nil {
		b.VATID = strings.TrimSpace(m[1])
	}

	lower := strings.ToLower(text)
	for _, c := range knownCountries {
		if containsWord(lower, c) {
			b.Country = canonicalCountry(c)
			break
		}
	}

	if b.Company == "" && b.Street == "" && b.PostalCode == "" && b.VATID == "" {
		return nil
	}
	return b
}

func containsWord(lower, word string) bool {
	idx := strings.Index(lower, word)
	if idx < 0 {
		return false
	}
	before := idx == 0 || !isLetter(lower[idx-1])
	afterIdx := idx + len(word)
	after := afterIdx >= len(lower) || !isLetter(lower[afterIdx])
	return before && after
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func canonicalCountry(lower string) string {
	switch lower {
	case "uk":
		return "United Kingdom"
	case "schweiz":
		return "Switzerland"
	case "deutschland":
		return "Germany"
	case "österreich":
		return "Austria"
	}
	// Title-case the simple names.
	parts := strings.Fields(lower)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
