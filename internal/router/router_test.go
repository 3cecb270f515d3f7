package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grocerygenius-api/internal/cache"
	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/handler"
	"grocerygenius-api/internal/intent"
	"grocerygenius-api/internal/middleware"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/repository"
	"grocerygenius-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type staticSource struct{}

func (staticSource) Flyers(context.Context, string) ([]flipp.Flyer, error) {
	return []flipp.Flyer{{ID: "900", Merchant: "Trader Joe's", ValidFrom: "2020-01-01", ValidTo: "2099-12-31"}}, nil
}

func (staticSource) Items(context.Context, string) ([]flipp.Item, error) {
	return []flipp.Item{
		{ID: "1", Name: "Organic Bananas", PriceText: "$0.19"},
		{ID: "2", Name: "Sourdough Bread", PriceText: "$3.99"},
	}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cat, err := catalog.Default()
	require.NoError(t, err)

	stores := service.NewStoreService(repo, cat)
	_, err = stores.Seed(ctx)
	require.NoError(t, err)

	queryCache := cache.NewMemoryCache(100, time.Minute)
	t.Cleanup(func() { queryCache.Close() })

	syncSvc := service.NewSyncService(repo, staticSource{}, cat, queryCache, nil, service.SyncConfig{ZipCode: "20001"})
	deals := service.NewDealService(repo, queryCache, time.Minute)

	limiter := middleware.NewRateLimiter(rate.Every(time.Hour), 1)
	t.Cleanup(limiter.Close)

	return New(Config{
		Handler:          handler.New("grocerygenius-api", "test").AddCheck("database", repo),
		SyncHandler:      handler.NewSyncHandler(syncSvc, nil, time.Minute),
		DealHandler:      handler.NewDealHandler(deals),
		StoreHandler:     handler.NewStoreHandler(stores),
		IntentHandler:    handler.NewIntentHandler(intent.NewInterpreter(nil)),
		AdminHandler:     handler.NewAdminHandler(stores, syncSvc, "sqlite", "memory"),
		SecretMiddleware: middleware.RequireSecret(middleware.SecretConfig{CronSecret: "s3cret"}),
		IntentLimiter:    limiter.Middleware,
	})
}

func do(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterSyncThenQuery(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodGet, "/api/v1/deals", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/v1/sync", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/sync?zip=20001", "", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2,"message":"Synced 2 deals for zip code 20001"}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/v1/deals?store=trader-joes&category=produce", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var deals []model.DealWithStore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deals))
	require.Len(t, deals, 1)
	assert.Equal(t, "Organic Bananas", deals[0].ItemName)
	require.NotNil(t, deals[0].Store)
	assert.Equal(t, "trader-joes", deals[0].Store.Slug)

	rec = do(r, http.MethodGet, "/api/v1/admin/stats", "", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_sync"`)

	rec = do(r, http.MethodGet, "/api/v1/admin/sync-runs?limit=5", "", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs struct {
		Data []model.SyncResult `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.EqualValues(t, 1, runs.Meta.Total)
	require.Len(t, runs.Data, 1)
	assert.Equal(t, 2, runs.Data[0].Count)
}

func TestRouterPublicRoutes(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodGet, "/api/v1/stores", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data []model.Store `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 6)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/stores/lidl", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/stores/kroger", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/status", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/admin/stats", "", "").Code)
}

func TestRouterIntentIsRateLimited(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodPost, "/api/v1/search/intent", `{"query":"fresh salmon"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"searchTerms":["fresh","salmon"]`)

	rec = do(r, http.MethodPost, "/api/v1/search/intent", `{"query":"fresh salmon"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
