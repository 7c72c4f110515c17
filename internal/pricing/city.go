package pricing

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeCity folds a city name to the key used by the multiplier table:
// accents stripped, case folded, inner whitespace collapsed.
// "  İzmir " and "izmir" map to the same key.
func NormalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, city)
	if err != nil {
		stripped = city
	}
	folded := cases.Fold().String(stripped)

	return strings.Join(strings.Fields(folded), " ")
}
