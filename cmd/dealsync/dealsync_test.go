package main

import (
	"bytes"
	"testing"

	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/preferences"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowPreferences(t *testing.T) {
	prefs := preferences.New(preferences.NewMemoryStore())
	require.NoError(t, prefs.CompleteOnboarding("20001", []string{"aldi", "lidl"}))
	_, err := prefs.AddToWatchList("milk", nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, showPreferences(&out, prefs))
	assert.Contains(t, out.String(), "zip code:    20001")
	assert.Contains(t, out.String(), "stores:      aldi, lidl")
	assert.Contains(t, out.String(), "onboarded:   true")
	assert.Contains(t, out.String(), "watch list:  1 item(s)")

	out.Reset()
	require.NoError(t, showPreferences(&out, preferences.New(preferences.NewMemoryStore())))
	assert.Contains(t, out.String(), "zip code:    -")
}

func TestPrintDeals(t *testing.T) {
	var out bytes.Buffer
	printDeals(&out, nil)
	assert.Equal(t, "No deals found\n", out.String())

	price := "$2.49"
	out.Reset()
	printDeals(&out, []model.DealWithStore{{
		Deal:  model.Deal{StoreID: "s1", ItemName: "Large Eggs", Price: &price, Category: "dairy"},
		Store: &model.Store{Name: "Aldi"},
	}})
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "STORE")
	assert.Contains(t, string(lines[1]), "Aldi")
	assert.Contains(t, string(lines[1]), "$2.49")
}

func TestPrintWatchList(t *testing.T) {
	var out bytes.Buffer
	printWatchList(&out, nil)
	assert.Equal(t, "Watch list is empty\n", out.String())

	prefs := preferences.New(preferences.NewMemoryStore())
	item, err := prefs.AddToWatchList("chips", nil)
	require.NoError(t, err)

	out.Reset()
	printWatchList(&out, []model.WatchListItem{item})
	assert.Contains(t, out.String(), item.ID)
	assert.Contains(t, out.String(), "any")
	assert.Contains(t, out.String(), "now")
}

func TestKnownStore(t *testing.T) {
	t.Setenv("CATALOG_PATH", "")
	assert.NoError(t, knownStore("trader-joes"))
	assert.Error(t, knownStore("kroger"))
}

func TestPrintMatches(t *testing.T) {
	price := "$1.99"
	var out bytes.Buffer
	printMatches(&out, []model.WatchListMatch{
		{Item: model.WatchListItem{Keyword: "milk"}, Deals: []model.DealWithStore{{
			Deal:  model.Deal{ItemName: "Whole Milk", Price: &price, Category: "dairy"},
			Store: &model.Store{Name: "Lidl"},
		}}},
		{Item: model.WatchListItem{Keyword: "caviar"}},
	})
	assert.Contains(t, out.String(), "milk (1 deal)")
	assert.Contains(t, out.String(), "Whole Milk")
	assert.Contains(t, out.String(), "caviar (0 deals)")
}
