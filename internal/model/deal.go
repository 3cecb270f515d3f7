package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// price_numeric is a number in API responses, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

// Store is a canonical retailer. Slug is unique and never changes.
type Store struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   *string   `json:"logo_url"`
	Website   *string   `json:"website"`
	CreatedAt time.Time `json:"created_at"`
}

// Deal is one normalized flyer item for a store.
type Deal struct {
	ID            string              `json:"id"`
	StoreID       string              `json:"store_id"`
	ItemName      string              `json:"item_name"`
	Price         *string             `json:"price"`
	PriceNumeric  decimal.NullDecimal `json:"price_numeric"`
	UnitPrice     *string             `json:"unit_price"`
	Category      string              `json:"category"`
	ValidFrom     *string             `json:"valid_from"` // YYYY-MM-DD
	ValidTo       *string             `json:"valid_to"`   // YYYY-MM-DD
	SourceFlyerID *string             `json:"source_flyer_id"`
	RawData       *RawData            `json:"raw_data"`
	CreatedAt     time.Time           `json:"created_at"`
}

// RawData keeps upstream attributes that are shown to users but are not
// columns of their own. Absent upstream fields stay empty.
type RawData struct {
	FlyerID       string `json:"flyer_id,omitempty"`
	ItemID        string `json:"item_id,omitempty"`
	Merchant      string `json:"merchant,omitempty"`
	Description   string `json:"description,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	OriginalPrice string `json:"original_price,omitempty"`
	SaleStory     string `json:"sale_story,omitempty"`
	Savings       string `json:"savings,omitempty"`
	PercentOff    string `json:"percent_off,omitempty"`
}

// DealWithStore is a deal joined with its store, as returned by queries.
type DealWithStore struct {
	Deal
	Store *Store `json:"store"`
}

// DealQuery filters current deals. Empty fields do not filter.
type DealQuery struct {
	Store    string `json:"store,omitempty" validate:"omitempty,max=64"`
	Category string `json:"category,omitempty" validate:"omitempty,max=32"`
	Search   string `json:"q,omitempty" validate:"omitempty,max=200"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

// StoreDealCount is a per-store row of the deal statistics.
type StoreDealCount struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Deals int64  `json:"deals"`
}
