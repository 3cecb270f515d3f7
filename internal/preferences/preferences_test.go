package preferences

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grocerygenius-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPreferencesDefaults(t *testing.T) {
	p := New(NewMemoryStore())

	zip, err := p.ZipCode()
	require.NoError(t, err)
	assert.Empty(t, zip)

	stores, err := p.SelectedStores()
	require.NoError(t, err)
	assert.Empty(t, stores)

	done, err := p.OnboardingComplete()
	require.NoError(t, err)
	assert.False(t, done)
}

func TestToggleStore(t *testing.T) {
	p := New(NewMemoryStore())

	on, err := p.ToggleStore("aldi")
	require.NoError(t, err)
	assert.True(t, on)
	_, err = p.ToggleStore("lidl")
	require.NoError(t, err)

	on, err = p.ToggleStore("aldi")
	require.NoError(t, err)
	assert.False(t, on)

	stores, err := p.SelectedStores()
	require.NoError(t, err)
	assert.Equal(t, []string{"lidl"}, stores)
}

func TestWatchList(t *testing.T) {
	p := New(NewMemoryStore())

	_, err := p.AddToWatchList("  ", nil)
	require.Error(t, err)

	eggs, err := p.AddToWatchList(" eggs ", strPtr("dairy"))
	require.NoError(t, err)
	assert.Equal(t, "eggs", eggs.Keyword)
	assert.NotEmpty(t, eggs.ID)

	chips, err := p.AddToWatchList("chips", strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, chips.Category)

	removed, err := p.RemoveFromWatchList(" " + strings.ToUpper(eggs.ID) + " ")
	require.NoError(t, err)
	assert.True(t, removed, "ids are matched in canonical form")

	removed, err = p.RemoveFromWatchList("missing")
	require.NoError(t, err)
	assert.False(t, removed)

	items, err := p.WatchList()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, chips.ID, items[0].ID)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")

	p := New(NewFileStore(path))
	require.NoError(t, p.CompleteOnboarding("28202", []string{"aldi", "safeway"}))
	_, err := p.AddToWatchList("milk", nil)
	require.NoError(t, err)

	reopened := New(NewFileStore(path))
	zip, err := reopened.ZipCode()
	require.NoError(t, err)
	assert.Equal(t, "28202", zip)

	stores, err := reopened.SelectedStores()
	require.NoError(t, err)
	assert.Equal(t, []string{"aldi", "safeway"}, stores)

	done, err := reopened.OnboardingComplete()
	require.NoError(t, err)
	assert.True(t, done)

	keys, err := NewFileStore(path).Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyOnboardingComplete, KeySelectedStores, KeyWatchList, KeyZipCode}, keys)

	require.NoError(t, reopened.Reset())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMatchDeals(t *testing.T) {
	deals := []model.DealWithStore{
		{Deal: model.Deal{ItemName: "Large Brown Eggs", Category: "dairy"}},
		{Deal: model.Deal{ItemName: "Egg Noodles", Category: "pantry"}},
		{Deal: model.Deal{ItemName: "Whole Milk", Category: "dairy"}},
	}

	all := MatchDeals(model.WatchListItem{Keyword: "EGG"}, deals)
	assert.Len(t, all, 2)

	dairy := MatchDeals(model.WatchListItem{Keyword: "egg", Category: strPtr("dairy")}, deals)
	require.Len(t, dairy, 1)
	assert.Equal(t, "Large Brown Eggs", dairy[0].ItemName)

	assert.Empty(t, MatchDeals(model.WatchListItem{Keyword: "  "}, deals))
}
