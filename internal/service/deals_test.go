package service

import (
	"context"
	"testing"
	"time"

	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDeals(t *testing.T, env *testEnv) {
	t.Helper()
	env.source.flyers = []flipp.Flyer{
		flyer("111", "Aldi", "2026-10-25"),
		flyer("222", "Lidl", "2026-10-25"),
	}
	env.source.items["111"] = []flipp.Item{
		{Name: "Large Eggs", PriceText: "$2.49"},
		{Name: "Whole Milk", PriceText: "$3.29"},
		{Name: "Egg Noodles", PriceText: "$1.19"},
		{Name: "Kettle Chips", PriceText: "$2.00"},
		{Name: "Tortilla Chips", PriceText: "$2.50"},
	}
	env.source.items["222"] = []flipp.Item{
		{Name: "Free Range Eggs", PriceText: "$3.99"},
		{Name: "Mystery Box", PriceText: "see store"},
	}
	_, err := env.sync.Sync(context.Background(), "")
	require.NoError(t, err)
}

func TestDealQuery(t *testing.T) {
	env := newTestEnv(t, true)
	seedDeals(t, env)
	ctx := context.Background()

	all, err := env.deals.Query(ctx, model.DealQuery{})
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, "Egg Noodles", all[0].ItemName)
	assert.Equal(t, "Mystery Box", all[6].ItemName, "unpriced deals sort last")

	lidl, err := env.deals.Query(ctx, model.DealQuery{Store: " LIDL "})
	require.NoError(t, err)
	assert.Equal(t, []string{"Free Range Eggs", "Mystery Box"}, itemNames(lidl))

	unknown, err := env.deals.Query(ctx, model.DealQuery{Store: "kroger"})
	require.NoError(t, err)
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)

	search, err := env.deals.Query(ctx, model.DealQuery{Search: "EGGS", Limit: 1})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Large Eggs", search[0].ItemName)
}

func TestMatchWatchList(t *testing.T) {
	env := newTestEnv(t, true)
	seedDeals(t, env)
	ctx := context.Background()

	snacks := "snacks"
	chips := model.WatchListItem{ID: "w1", Keyword: "chips", Category: &snacks}
	milk := model.WatchListItem{ID: "w2", Keyword: "milk"}
	eggs := model.WatchListItem{ID: "w3", Keyword: "Eggs"}

	matches, err := env.deals.MatchWatchList(ctx, model.WatchListMatchRequest{
		Stores: []string{"aldi"},
		Items:  []model.WatchListItem{chips, milk},
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "w1", matches[0].Item.ID)
	assert.Equal(t, []string{"Kettle Chips"}, itemNames(matches[0].Deals), "tortilla chips are bakery")
	assert.Equal(t, []string{"Whole Milk"}, itemNames(matches[1].Deals))

	everywhere, err := env.deals.MatchWatchList(ctx, model.WatchListMatchRequest{Items: []model.WatchListItem{eggs}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Free Range Eggs", "Large Eggs"}, itemNames(everywhere[0].Deals))

	nowhere, err := env.deals.MatchWatchList(ctx, model.WatchListMatchRequest{
		Stores: []string{"kroger"},
		Items:  []model.WatchListItem{milk},
	})
	require.NoError(t, err)
	assert.Empty(t, nowhere[0].Deals)
}

// syncDuringReadRepo runs hook once, after the first deal read returns.
type syncDuringReadRepo struct {
	repository.Repository
	hook func()
}

func (r *syncDuringReadRepo) QueryDeals(ctx context.Context, f repository.DealFilter) ([]model.DealWithStore, error) {
	deals, err := r.Repository.QueryDeals(ctx, f)
	if hook := r.hook; hook != nil {
		r.hook = nil
		hook()
	}
	return deals, err
}

func TestDealQueryDoesNotCacheReadsOverlappingASync(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	env.source.flyers = []flipp.Flyer{flyer("111", "Aldi", "2026-10-25")}
	env.source.items["111"] = []flipp.Item{{Name: "Bananas", PriceText: "$0.49"}}
	_, err := env.sync.Sync(ctx, "")
	require.NoError(t, err)

	repo := &syncDuringReadRepo{Repository: env.repo}
	repo.hook = func() {
		env.source.items["111"] = []flipp.Item{{Name: "Apples", PriceText: "$0.99"}}
		_, err := env.sync.Sync(ctx, "")
		require.NoError(t, err)
	}
	deals := NewDealService(repo, env.deals.cache, time.Minute)
	deals.now = func() time.Time { return testNow }

	first, err := deals.Query(ctx, model.DealQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bananas"}, itemNames(first), "read before the replace committed")

	second, err := deals.Query(ctx, model.DealQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Apples"}, itemNames(second))

	cached, err := deals.Query(ctx, model.DealQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Apples"}, itemNames(cached))
}
