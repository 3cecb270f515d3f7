// Package pricing turns loosely formatted flyer price fields into a display
// string and a sortable decimal.
package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// An optional currency symbol, then digits with at most one decimal point.
var amountPattern = regexp.MustCompile(`[$€£]?\s?(\d+(?:\.\d+)?|\.\d+)`)

// Fields are the raw price texts of one upstream item.
type Fields struct {
	PriceText     string
	CurrentPrice  string
	PrePriceText  string
	PostPriceText string
}

// Price is the parsed result. Text is nil when there is nothing to show and
// Numeric is invalid when no amount could be read.
type Price struct {
	Text    *string
	Numeric decimal.NullDecimal
}

// Parse never fails; unusable input yields empty fields.
func Parse(f Fields) Price {
	candidate := strings.TrimSpace(f.PriceText)
	if candidate == "" {
		candidate = strings.TrimSpace(f.CurrentPrice)
	}

	var p Price
	if text := joinNonEmpty(f.PrePriceText, candidate, f.PostPriceText); text != "" {
		p.Text = &text
	}
	p.Numeric = ParseAmount(candidate)
	return p
}

// ParseAmount reads the first amount in s.
func ParseAmount(s string) decimal.NullDecimal {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return decimal.NullDecimal{}
	}

	digits := m[1]
	if strings.HasPrefix(digits, ".") {
		digits = "0" + digits
	}

	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
