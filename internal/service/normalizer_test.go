package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewNormalizer(cat.Classifier())
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t)
	fc := NewFlyerContext(flipp.Flyer{
		ID:        "111",
		Merchant:  "Aldi",
		ValidFrom: "2026-10-15T00:00:00-04:00",
		ValidTo:   "2026-10-21T23:59:59-04:00",
	}, "store-1")

	deal, ok := n.Normalize(flipp.Item{
		ID:             "9",
		Name:           "  Organic Chicken Breast ",
		CurrentPrice:   "$4.99",
		PrePriceText:   "Now",
		PostPriceText:  "/lb",
		UnitPrice:      "$4.99/lb",
		OriginalPrice:  "$6.49",
		SaleStory:      "Save $1.50",
		Description:    "Family pack",
		ImageURL:       "http://img/generic.png",
		CutoutImageURL: "http://img/cutout.png",
	}, fc)
	require.True(t, ok)

	assert.Equal(t, "store-1", deal.StoreID)
	assert.Equal(t, "Organic Chicken Breast", deal.ItemName)
	assert.Equal(t, "meat", deal.Category)
	assert.Equal(t, "Now $4.99 /lb", *deal.Price)
	assert.Equal(t, "4.99", deal.PriceNumeric.Decimal.String())
	assert.Equal(t, "$4.99/lb", *deal.UnitPrice)
	assert.Equal(t, "2026-10-15", *deal.ValidFrom)
	assert.Equal(t, "2026-10-21", *deal.ValidTo)
	assert.Equal(t, "111", *deal.SourceFlyerID)
	assert.Equal(t, &model.RawData{
		FlyerID:       "111",
		ItemID:        "9",
		Merchant:      "Aldi",
		Description:   "Family pack",
		ImageURL:      "http://img/cutout.png",
		OriginalPrice: "$6.49",
		SaleStory:     "Save $1.50",
	}, deal.RawData)
}

func TestNormalizeSparseItem(t *testing.T) {
	n := newTestNormalizer(t)
	fc := NewFlyerContext(flipp.Flyer{ID: "5", Merchant: "Lidl", ValidTo: "soon"}, "store-2")

	deal, ok := n.Normalize(flipp.Item{Name: "Zzyx Widget", PriceText: "BOGO", ImageURL: "http://img/a.png"}, fc)
	require.True(t, ok)

	assert.Equal(t, "other", deal.Category)
	assert.Equal(t, "BOGO", *deal.Price)
	assert.False(t, deal.PriceNumeric.Valid)
	assert.Nil(t, deal.UnitPrice)
	assert.Nil(t, deal.ValidFrom)
	assert.Nil(t, deal.ValidTo, "unparsable dates are dropped")
	assert.Equal(t, "http://img/a.png", deal.RawData.ImageURL)
}

func TestNormalizeDropsNamelessItems(t *testing.T) {
	n := newTestNormalizer(t)

	_, ok := n.Normalize(flipp.Item{Name: " \t ", PriceText: "$1.00"}, FlyerContext{StoreID: "s"})
	assert.False(t, ok)
}

func TestNormalizeClipsOversizedFields(t *testing.T) {
	n := newTestNormalizer(t)

	long := strings.Repeat("é", 600)
	deal, ok := n.Normalize(flipp.Item{
		Name:      long,
		PriceText: "$123456789.00 " + strings.Repeat("x", 300),
		UnitPrice: strings.Repeat("ü", 300),
	}, FlyerContext{StoreID: "s"})
	require.True(t, ok)

	assert.Equal(t, 512, utf8.RuneCountInString(deal.ItemName))
	assert.True(t, utf8.ValidString(deal.ItemName))
	assert.Equal(t, 255, utf8.RuneCountInString(*deal.Price))
	assert.Equal(t, 255, utf8.RuneCountInString(*deal.UnitPrice))
	assert.False(t, deal.PriceNumeric.Valid, "amounts beyond the column range are dropped")

	deal, ok = n.Normalize(flipp.Item{Name: "Television", PriceText: "$99999999.99"}, FlyerContext{StoreID: "s"})
	require.True(t, ok)
	assert.Equal(t, "99999999.99", deal.PriceNumeric.Decimal.String())
}

func TestDatePart(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-10-21T23:59:59-04:00", "2026-10-21"},
		{"2026-10-21", "2026-10-21"},
		{"2026-10-21 10:00:00", "2026-10-21"},
		{"", ""},
		{"2026-13-40", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := datePart(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
