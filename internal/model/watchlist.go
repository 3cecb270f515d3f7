package model

import "time"

// WatchListItem is a keyword a shopper wants to be told about.
type WatchListItem struct {
	ID        string    `json:"id" yaml:"id"`
	Keyword   string    `json:"keyword" yaml:"keyword" validate:"required,max=100"`
	Category  *string   `json:"category,omitempty" yaml:"category,omitempty" validate:"omitempty,category"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// WatchListMatchRequest asks for current deals matching a watch list.
// An empty Stores list searches every store.
type WatchListMatchRequest struct {
	Stores []string        `json:"stores" validate:"max=50,dive,max=64"`
	Items  []WatchListItem `json:"items" validate:"required,min=1,max=50,dive"`
}

// WatchListMatch is the set of deals found for one watch list item.
type WatchListMatch struct {
	Item  WatchListItem   `json:"item"`
	Deals []DealWithStore `json:"deals"`
}
