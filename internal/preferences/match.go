package preferences

import (
	"strings"

	"grocerygenius-api/internal/model"
)

// Matches reports whether deal satisfies item: the keyword is contained in
// the item name ignoring case, and the category is equal when item has one.
func Matches(item model.WatchListItem, deal model.Deal) bool {
	keyword := strings.ToLower(strings.TrimSpace(item.Keyword))
	if keyword == "" {
		return false
	}
	if item.Category != nil && *item.Category != "" && *item.Category != deal.Category {
		return false
	}
	return strings.Contains(strings.ToLower(deal.ItemName), keyword)
}

// MatchDeals returns the deals matching item, keeping their order.
func MatchDeals(item model.WatchListItem, deals []model.DealWithStore) []model.DealWithStore {
	out := []model.DealWithStore{}
	for _, d := range deals {
		if Matches(item, d.Deal) {
			out = append(out, d)
		}
	}
	return out
}
