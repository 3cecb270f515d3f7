package preferences

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"grocerygenius-api/internal/model"
	"grocerygenius-api/pkg/uid"
)

// Storage keys.
const (
	KeyZipCode            = "gg_zip_code"
	KeySelectedStores     = "gg_selected_stores"
	KeyWatchList          = "gg_watch_list"
	KeyOnboardingComplete = "gg_onboarding_complete"
)

// Preferences reads and writes typed values on a KVStore. Values are JSON
// encoded. A missing key reads as the zero value.
type Preferences struct {
	store KVStore
	now   func() time.Time
}

// New wraps store.
func New(store KVStore) *Preferences {
	return &Preferences{store: store, now: time.Now}
}

func (p *Preferences) ZipCode() (string, error) {
	var zip string
	err := p.get(KeyZipCode, &zip)
	return zip, err
}

func (p *Preferences) SetZipCode(zip string) error {
	return p.set(KeyZipCode, strings.TrimSpace(zip))
}

func (p *Preferences) SelectedStores() ([]string, error) {
	stores := []string{}
	err := p.get(KeySelectedStores, &stores)
	return stores, err
}

func (p *Preferences) SetSelectedStores(slugs []string) error {
	if slugs == nil {
		slugs = []string{}
	}
	return p.set(KeySelectedStores, slugs)
}

// ToggleStore adds slug to the selection, or removes it if already there.
// It returns whether the store is selected afterwards.
func (p *Preferences) ToggleStore(slug string) (bool, error) {
	stores, err := p.SelectedStores()
	if err != nil {
		return false, err
	}

	out := make([]string, 0, len(stores)+1)
	removed := false
	for _, s := range stores {
		if s == slug {
			removed = true
			continue
		}
		out = append(out, s)
	}
	if !removed {
		out = append(out, slug)
	}
	return !removed, p.SetSelectedStores(out)
}

func (p *Preferences) WatchList() ([]model.WatchListItem, error) {
	items := []model.WatchListItem{}
	err := p.get(KeyWatchList, &items)
	return items, err
}

// AddToWatchList appends a new item and returns it.
func (p *Preferences) AddToWatchList(keyword string, category *string) (model.WatchListItem, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return model.WatchListItem{}, errors.New("keyword is required")
	}
	if category != nil && *category == "" {
		category = nil
	}

	items, err := p.WatchList()
	if err != nil {
		return model.WatchListItem{}, err
	}
	item := model.WatchListItem{
		ID:        uid.New(),
		Keyword:   keyword,
		Category:  category,
		CreatedAt: p.now().UTC(),
	}
	items = append(items, item)
	return item, p.set(KeyWatchList, items)
}

// RemoveFromWatchList deletes the item with id. It returns false when no
// item had that id.
func (p *Preferences) RemoveFromWatchList(id string) (bool, error) {
	items, err := p.WatchList()
	if err != nil {
		return false, err
	}

	if c, ok := uid.Canonical(id); ok {
		id = c
	}
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	if len(out) == len(items) {
		return false, nil
	}
	return true, p.set(KeyWatchList, out)
}

func (p *Preferences) OnboardingComplete() (bool, error) {
	var done bool
	err := p.get(KeyOnboardingComplete, &done)
	return done, err
}

// CompleteOnboarding stores the zip code and store selection and marks
// onboarding as done.
func (p *Preferences) CompleteOnboarding(zip string, stores []string) error {
	if err := p.SetZipCode(zip); err != nil {
		return err
	}
	if err := p.SetSelectedStores(stores); err != nil {
		return err
	}
	return p.set(KeyOnboardingComplete, true)
}

// Reset removes every preference.
func (p *Preferences) Reset() error {
	return p.store.Clear()
}

func (p *Preferences) get(key string, v any) error {
	raw, err := p.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func (p *Preferences) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.store.Set(key, string(data))
}
