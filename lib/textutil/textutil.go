package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// NormalizeBuildingName collapses a building display name so that the two
// identifier spaces the portal uses for the same organisation can be compared.
// A trailing "- codeName" suffix is stripped first (the card edit page appends
// it, the organisation list does not), then hyphens and whitespace are removed
// and the result lowercased.
func NormalizeBuildingName(name, codeName string) string {
	name = strings.ToLower(name)
	codeName = strings.ToLower(codeName)
	if codeName != "" && strings.HasSuffix(name, "- "+codeName) {
		name = strings.TrimSuffix(name, "- "+codeName)
	}
	return NormalizeName(strings.ReplaceAll(name, "-", ""))
}

// Matches the first decimal number in a string that may carry currency
// symbols or trailing words, e.g. "12,50 €" or "1.20 EUR".
var priceRegex = regexp.MustCompile(`^[^\d]*(\d+(?:[,.]\d{1,2})?)(?:\s|[a-zA-Z)]|€|$)`)

// ParsePrice extracts the first decimal number from free text, normalizing a
// comma decimal separator to a period. The second return is false when the
// text contains no parseable number.
func ParsePrice(text string) (float64, bool) {
	m := priceRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
