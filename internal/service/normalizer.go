package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/pricing"

	"github.com/shopspring/decimal"
)

const (
	maxNameRunes = 512
	maxTextRunes = 255
)

// maxPrice is the first amount that no longer fits NUMERIC(12, 4).
var maxPrice = decimal.New(1, 8)

// FlyerContext is what a normalized item inherits from its flyer.
type FlyerContext struct {
	FlyerID   string
	Merchant  string
	StoreID   string
	ValidFrom *string
	ValidTo   *string
}

// NewFlyerContext resolves the flyer dates to YYYY-MM-DD.
func NewFlyerContext(f flipp.Flyer, storeID string) FlyerContext {
	return FlyerContext{
		FlyerID:   f.ID,
		Merchant:  f.Merchant,
		StoreID:   storeID,
		ValidFrom: datePart(f.ValidFrom),
		ValidTo:   datePart(f.ValidTo),
	}
}

// Normalizer turns upstream items into canonical deals.
type Normalizer struct {
	classifier *catalog.Classifier
}

// NewNormalizer creates a normalizer using the given classifier.
func NewNormalizer(classifier *catalog.Classifier) *Normalizer {
	return &Normalizer{classifier: classifier}
}

// Normalize returns false when the item has no usable name.
func (n *Normalizer) Normalize(item flipp.Item, fc FlyerContext) (model.Deal, bool) {
	name := clip(strings.TrimSpace(item.Name), maxNameRunes)
	if name == "" {
		return model.Deal{}, false
	}

	price := pricing.Parse(pricing.Fields{
		PriceText:     item.PriceText,
		CurrentPrice:  item.CurrentPrice,
		PrePriceText:  item.PrePriceText,
		PostPriceText: item.PostPriceText,
	})

	if price.Text != nil {
		text := clip(*price.Text, maxTextRunes)
		price.Text = &text
	}
	if price.Numeric.Valid && price.Numeric.Decimal.Abs().GreaterThanOrEqual(maxPrice) {
		price.Numeric = decimal.NullDecimal{}
	}

	deal := model.Deal{
		StoreID:      fc.StoreID,
		ItemName:     name,
		Price:        price.Text,
		PriceNumeric: price.Numeric,
		UnitPrice:    optional(clip(item.UnitPrice, maxTextRunes)),
		Category:     n.classifier.Classify(name),
		ValidFrom:    fc.ValidFrom,
		ValidTo:      fc.ValidTo,
		RawData: &model.RawData{
			FlyerID:       fc.FlyerID,
			ItemID:        item.ID,
			Merchant:      fc.Merchant,
			Description:   strings.TrimSpace(item.Description),
			ImageURL:      firstNonEmpty(item.CutoutImageURL, item.ImageURL),
			OriginalPrice: strings.TrimSpace(item.OriginalPrice),
			SaleStory:     strings.TrimSpace(item.SaleStory),
			Savings:       strings.TrimSpace(item.Savings),
			PercentOff:    strings.TrimSpace(item.PercentOff),
		},
	}
	if fc.FlyerID != "" {
		id := fc.FlyerID
		deal.SourceFlyerID = &id
	}
	return deal, true
}

// datePart keeps the calendar date of an ISO date or date-time. Anything
// that does not start with a valid date is dropped.
func datePart(s string) *string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 10 {
		s = s[:10]
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return nil
	}
	return &s
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
