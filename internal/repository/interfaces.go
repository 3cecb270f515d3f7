package repository

import (
	"context"

	"grocerygenius-api/internal/model"
)

// StoreRepository defines store data access methods.
type StoreRepository interface {
	// ListStores returns every store ordered by slug.
	ListStores(ctx context.Context) ([]model.Store, error)

	// GetStoreBySlug returns nil, nil when no store has the slug.
	GetStoreBySlug(ctx context.Context, slug string) (*model.Store, error)

	// UpsertStore inserts a store or refreshes name, logo and website of the
	// store with the same slug. The id and slug of an existing row never change.
	UpsertStore(ctx context.Context, store model.Store) (*model.Store, error)
}

// DealRepository defines deal data access methods.
type DealRepository interface {
	// ReplaceDeals deletes every deal of storeIDs and inserts deals in chunks
	// of batchSize, all inside one transaction.
	ReplaceDeals(ctx context.Context, storeIDs []string, deals []model.Deal, batchSize int) (int, error)

	// QueryDeals returns deals valid on f.ValidOn joined with their store,
	// cheapest first with unpriced deals last.
	QueryDeals(ctx context.Context, f DealFilter) ([]model.DealWithStore, error)

	// DeleteExpired removes deals whose valid_to is before the given date.
	DeleteExpired(ctx context.Context, before string) (int64, error)

	// CountByStore returns the number of stored deals per store.
	CountByStore(ctx context.Context) ([]model.StoreDealCount, error)
}

// SyncRunRepository keeps the history of sync runs.
type SyncRunRepository interface {
	// InsertSyncRun stores one finished run. An empty ID is generated.
	InsertSyncRun(ctx context.Context, run *model.SyncResult) error

	// ListSyncRuns returns runs newest first and the total number of runs.
	ListSyncRuns(ctx context.Context, limit, offset int) ([]model.SyncResult, int64, error)
}

// DealFilter is the resolved form of a deal query.
type DealFilter struct {
	StoreID  string
	StoreIDs []string // any of; combined with StoreID when both are set
	Category string
	Search   string
	ValidOn  string // YYYY-MM-DD
	Limit    int
}

// Repository is the full persistence surface used by the service.
type Repository interface {
	StoreRepository
	DealRepository
	SyncRunRepository

	Ping(ctx context.Context) error
	Close() error
}
