package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var quotes = strings.NewReplacer("\u2019", "'", "\u2018", "'")

// Fold lower-cases s for keyword matching. Full-width and compatibility
// forms are normalised first so "ＡＬＤＩ" and "Aldi" compare equal.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = quotes.Replace(s)
	// Casers are stateful and not safe to share across goroutines.
	return cases.Lower(language.Und).String(s)
}

func foldAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = Fold(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
