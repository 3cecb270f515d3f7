package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"grocerygenius-api/internal/cache"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/preferences"
	"grocerygenius-api/internal/repository"

	"github.com/sirupsen/logrus"
)

// dealGenerationKey holds a token that changes every time the deal set
// does. Query cache keys embed it.
const dealGenerationKey = "deals:generation"

const (
	// DefaultDealLimit applies when a query has no limit.
	DefaultDealLimit = 100
	// WatchListDealLimit caps the deals returned per watch list item.
	WatchListDealLimit = 10
)

// DealService answers read queries over current deals.
type DealService struct {
	repo  repository.Repository
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewDealService creates a deal service. queryCache may be nil.
func NewDealService(repo repository.Repository, queryCache cache.Cache, ttl time.Duration) *DealService {
	return &DealService{
		repo:  repo,
		cache: queryCache,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Query returns deals valid today, cheapest first with unpriced deals last.
// An unknown store slug yields an empty list.
func (s *DealService) Query(ctx context.Context, q model.DealQuery) ([]model.DealWithStore, error) {
	q = normalizeQuery(q)
	today := s.now().Format(time.DateOnly)
	gen := s.generation(ctx)
	key := dealCacheKey(gen, today, q)

	if deals, ok := s.cached(ctx, key); ok {
		return deals, nil
	}

	filter := repository.DealFilter{
		Category: q.Category,
		Search:   q.Search,
		ValidOn:  today,
		Limit:    q.Limit,
	}
	if q.Store != "" {
		store, err := s.repo.GetStoreBySlug(ctx, q.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve store %q: %w", q.Store, err)
		}
		if store == nil {
			return []model.DealWithStore{}, nil
		}
		filter.StoreID = store.ID
	}

	deals, err := s.repo.QueryDeals(ctx, filter)
	if err != nil {
		return nil, err
	}
	if deals == nil {
		deals = []model.DealWithStore{}
	}

	// A sync that committed during the read has bumped the generation;
	// this result may predate it.
	if s.generation(ctx) == gen {
		s.store(ctx, key, deals)
	}
	return deals, nil
}

// MatchWatchList finds current deals for each watch list item, limited to
// the given store slugs when any are given. Unknown slugs are ignored; if
// none of them resolve every item gets an empty list.
func (s *DealService) MatchWatchList(ctx context.Context, req model.WatchListMatchRequest) ([]model.WatchListMatch, error) {
	var storeIDs []string
	for _, slug := range req.Stores {
		store, err := s.repo.GetStoreBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve store %q: %w", slug, err)
		}
		if store != nil {
			storeIDs = append(storeIDs, store.ID)
		}
	}

	today := s.now().Format(time.DateOnly)
	matches := make([]model.WatchListMatch, 0, len(req.Items))
	for _, item := range req.Items {
		m := model.WatchListMatch{Item: item, Deals: []model.DealWithStore{}}
		if len(req.Stores) > 0 && len(storeIDs) == 0 {
			matches = append(matches, m)
			continue
		}

		filter := repository.DealFilter{
			StoreIDs: storeIDs,
			Search:   strings.TrimSpace(item.Keyword),
			ValidOn:  today,
			Limit:    WatchListDealLimit,
		}
		if item.Category != nil {
			filter.Category = *item.Category
		}

		deals, err := s.repo.QueryDeals(ctx, filter)
		if err != nil {
			return nil, err
		}
		m.Deals = preferences.MatchDeals(item, deals)
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *DealService) generation(ctx context.Context) string {
	if s.cache == nil {
		return ""
	}
	data, err := s.cache.Get(ctx, dealGenerationKey)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *DealService) cached(ctx context.Context, key string) ([]model.DealWithStore, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logrus.WithField("component", "deals").WithError(err).Warn("Cache read failed")
		}
		return nil, false
	}
	var deals []model.DealWithStore
	if err := json.Unmarshal(data, &deals); err != nil {
		return nil, false
	}
	return deals, true
}

func (s *DealService) store(ctx context.Context, key string, deals []model.DealWithStore) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(deals)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		logrus.WithField("component", "deals").WithError(err).Warn("Cache write failed")
	}
}

func normalizeQuery(q model.DealQuery) model.DealQuery {
	q.Store = strings.ToLower(strings.TrimSpace(q.Store))
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	q.Search = strings.TrimSpace(q.Search)
	if q.Limit <= 0 {
		q.Limit = DefaultDealLimit
	}
	return q
}

func dealCacheKey(gen, today string, q model.DealQuery) string {
	v := url.Values{}
	v.Set("store", q.Store)
	v.Set("category", q.Category)
	v.Set("q", strings.ToLower(q.Search))
	v.Set("limit", strconv.Itoa(q.Limit))
	return "deals:" + gen + ":" + today + ":" + v.Encode()
}
