package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		fields      Fields
		wantText    string
		wantNumeric string
	}{
		{"dollar price", Fields{PriceText: "$3.99"}, "$3.99", "3.99"},
		{"per pound", Fields{PriceText: "$0.49/lb"}, "$0.49/lb", "0.49"},
		{"current price alias", Fields{CurrentPrice: "2.50"}, "2.50", "2.5"},
		{"price text wins over alias", Fields{PriceText: "$1.00", CurrentPrice: "9.99"}, "$1.00", "1"},
		{"pre and post text", Fields{PrePriceText: "2 for", PriceText: "$5", PostPriceText: "ea"}, "2 for $5 ea", "5"},
		{"multi buy uses first amount", Fields{PriceText: "2/$5.00"}, "2/$5.00", "2"},
		{"whole number", Fields{PriceText: "$10"}, "$10", "10"},
		{"leading dot", Fields{PriceText: "$.99"}, "$.99", "0.99"},
		{"euro", Fields{PriceText: "€1,49"}, "€1,49", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.fields)
			require.NotNil(t, p.Text)
			assert.Equal(t, tt.wantText, *p.Text)
			require.True(t, p.Numeric.Valid)
			assert.True(t, decimal.RequireFromString(tt.wantNumeric).Equal(p.Numeric.Decimal),
				"expected %s, got %s", tt.wantNumeric, p.Numeric.Decimal)
		})
	}
}

func TestParseWithoutDigits(t *testing.T) {
	p := Parse(Fields{PriceText: "BOGO"})

	require.NotNil(t, p.Text)
	assert.Equal(t, "BOGO", *p.Text)
	assert.False(t, p.Numeric.Valid)
}

func TestParseEmpty(t *testing.T) {
	p := Parse(Fields{})

	assert.Nil(t, p.Text)
	assert.False(t, p.Numeric.Valid)
}

func TestParseAmountOnlyReadsCandidate(t *testing.T) {
	p := Parse(Fields{PrePriceText: "Save $2", PostPriceText: "with card"})

	require.NotNil(t, p.Text)
	assert.Equal(t, "Save $2 with card", *p.Text)
	assert.False(t, p.Numeric.Valid)
}

func TestParseAmount(t *testing.T) {
	assert.False(t, ParseAmount("").Valid)
	assert.False(t, ParseAmount("free").Valid)

	n := ParseAmount("only $12.34 today")
	require.True(t, n.Valid)
	assert.Equal(t, "12.34", n.Decimal.String())
}
