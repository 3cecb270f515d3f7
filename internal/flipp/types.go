package flipp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Flyer is one merchant publication for a date range.
type Flyer struct {
	ID        string
	Merchant  string
	ValidFrom string // ISO date-time as sent upstream
	ValidTo   string
}

// Item is one line item of a flyer.
type Item struct {
	ID             string
	Name           string
	PriceText      string
	CurrentPrice   string
	PrePriceText   string
	PostPriceText  string
	UnitPrice      string
	OriginalPrice  string
	SaleStory      string
	Savings        string
	PercentOff     string
	Description    string
	ImageURL       string
	CutoutImageURL string
}

// text accepts a JSON string or number and ignores any other kind.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*t = text(b)
	default:
		*t = ""
	}
	return nil
}

func firstOf(values ...text) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

type wireFlyer struct {
	ID           text `json:"id"`
	FlyerID      text `json:"flyer_id"`
	Merchant     text `json:"merchant"`
	MerchantName text `json:"merchant_name"`
	ValidFrom    text `json:"valid_from"`
	ValidTo      text `json:"valid_to"`
}

func (w wireFlyer) flyer() Flyer {
	return Flyer{
		ID:        firstOf(w.ID, w.FlyerID),
		Merchant:  firstOf(w.Merchant, w.MerchantName),
		ValidFrom: string(w.ValidFrom),
		ValidTo:   string(w.ValidTo),
	}
}

type wireItem struct {
	ID             text `json:"id"`
	Name           text `json:"name"`
	PriceText      text `json:"price_text"`
	CurrentPrice   text `json:"current_price"`
	PrePriceText   text `json:"pre_price_text"`
	PostPriceText  text `json:"post_price_text"`
	UnitPrice      text `json:"unit_price"`
	OriginalPrice  text `json:"original_price"`
	WasPrice       text `json:"was_price"`
	SaleStory      text `json:"sale_story"`
	Disclaimer     text `json:"disclaimer_text"`
	Savings        text `json:"savings"`
	DollarsOff     text `json:"dollars_off"`
	PercentOff     text `json:"percent_off"`
	Description    text `json:"description"`
	ImageURL       text `json:"image_url"`
	CutoutImageURL text `json:"cutout_image_url"`
}

func (w wireItem) item() Item {
	return Item{
		ID:             string(w.ID),
		Name:           string(w.Name),
		PriceText:      string(w.PriceText),
		CurrentPrice:   string(w.CurrentPrice),
		PrePriceText:   string(w.PrePriceText),
		PostPriceText:  string(w.PostPriceText),
		UnitPrice:      string(w.UnitPrice),
		OriginalPrice:  firstOf(w.OriginalPrice, w.WasPrice),
		SaleStory:      firstOf(w.SaleStory, w.Disclaimer),
		Savings:        firstOf(w.Savings, w.DollarsOff),
		PercentOff:     string(w.PercentOff),
		Description:    string(w.Description),
		ImageURL:       string(w.ImageURL),
		CutoutImageURL: string(w.CutoutImageURL),
	}
}

// decodeList accepts either a bare JSON array or an object holding the
// array under field.
func decodeList[T any](body []byte, field string) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	switch body[0] {
	case '[':
		var list []T
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return list, nil
	case '{':
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode object: %w", err)
		}
		raw, ok := wrapped[field]
		if !ok || string(raw) == "null" {
			return []T{}, nil
		}
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", field, err)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected response shape")
	}
}

// DecodeFlyers normalises a flyer list response.
func DecodeFlyers(body []byte) ([]Flyer, error) {
	wire, err := decodeList[wireFlyer](body, "flyers")
	if err != nil {
		return nil, err
	}
	flyers := make([]Flyer, 0, len(wire))
	for _, w := range wire {
		flyers = append(flyers, w.flyer())
	}
	return flyers, nil
}

// DecodeItems normalises a flyer items (or flyer detail) response.
func DecodeItems(body []byte) ([]Item, error) {
	wire, err := decodeList[wireItem](body, "items")
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.item())
	}
	return items, nil
}
