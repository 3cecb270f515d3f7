package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"grocerygenius-api/internal/cache"
	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/repository"
	"grocerygenius-api/pkg/uid"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Stage names a step of a sync run.
type Stage string

const (
	StageFetchStores  Stage = "FETCH_STORES"
	StageFetchFlyers  Stage = "FETCH_FLYERS"
	StageProcessFlyer Stage = "PROCESS_FLYER"
	StageReplace      Stage = "REPLACE"
	StageDone         Stage = "DONE"
	StageFailed       Stage = "FAILED"
)

// ErrNoStores is returned when the store registry is empty.
var ErrNoStores = errors.New("no stores configured")

// SyncError reports the stage a run failed at. StatusCode carries the
// upstream HTTP status when the failure came from the feed.
type SyncError struct {
	Stage      Stage
	StatusCode int
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync failed at %s (upstream status %d): %v", e.Stage, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync failed at %s: %v", e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// FlyerSource is the upstream feed. *flipp.Client implements it.
type FlyerSource interface {
	Flyers(ctx context.Context, postalCode string) ([]flipp.Flyer, error)
	Items(ctx context.Context, flyerID string) ([]flipp.Item, error)
}

// SyncConfig tunes sync runs.
type SyncConfig struct {
	ZipCode     string
	Concurrency int
	BatchSize   int
	LockTTL     time.Duration
}

// SyncService runs the ingestion pipeline.
type SyncService struct {
	repo       repository.Repository
	source     FlyerSource
	matcher    *catalog.Matcher
	normalizer *Normalizer
	cache      cache.Cache
	locker     cache.Locker
	config     SyncConfig
	now        func() time.Time

	mu   sync.RWMutex
	last *model.SyncResult
}

// NewSyncService creates a sync service. cache may be nil; a nil locker
// falls back to an in-process one.
func NewSyncService(
	repo repository.Repository,
	source FlyerSource,
	cat *catalog.Catalog,
	queryCache cache.Cache,
	locker cache.Locker,
	config SyncConfig,
) *SyncService {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.BatchSize <= 0 {
		config.BatchSize = repository.DefaultBatchSize
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 10 * time.Minute
	}
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}

	return &SyncService{
		repo:       repo,
		source:     source,
		matcher:    cat.Matcher(),
		normalizer: NewNormalizer(cat.Classifier()),
		cache:      queryCache,
		locker:     locker,
		config:     config,
		now:        time.Now,
	}
}

// DefaultZipCode is used when Sync is called without a zip code.
func (s *SyncService) DefaultZipCode() string {
	return s.config.ZipCode
}

// LastResult returns the outcome of the most recent run, or nil.
func (s *SyncService) LastResult() *model.SyncResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// Sync fetches every flyer for zipCode, normalizes the items of flyers from
// registered stores and replaces the deals of those stores. A run that finds
// nothing succeeds with a zero count.
func (s *SyncService) Sync(ctx context.Context, zipCode string) (*model.SyncResult, error) {
	if zipCode == "" {
		zipCode = s.config.ZipCode
	}
	result := &model.SyncResult{ZipCode: zipCode, StartedAt: s.now()}
	log := logrus.WithFields(logrus.Fields{"component": "sync", "zip_code": zipCode})

	fail := func(err *SyncError) (*model.SyncResult, error) {
		result.FinishedAt = s.now()
		result.Error = err.Error()
		s.record(ctx, result)
		log.WithField("stage", err.Stage).WithError(err.Err).Error("Sync failed")
		return result, err
	}

	// FETCH_STORES
	stores, err := s.repo.ListStores(ctx)
	if err != nil {
		return fail(&SyncError{Stage: StageFetchStores, Err: err})
	}
	if len(stores) == 0 {
		return fail(&SyncError{Stage: StageFetchStores, Err: ErrNoStores})
	}
	storeBySlug := make(map[string]model.Store, len(stores))
	for _, st := range stores {
		storeBySlug[st.Slug] = st
	}

	// FETCH_FLYERS
	flyers, err := s.source.Flyers(ctx, zipCode)
	if err != nil {
		return fail(&SyncError{Stage: StageFetchFlyers, StatusCode: flipp.StatusCode(err), Err: err})
	}
	result.FlyersSeen = len(flyers)

	var targets []FlyerContext
	for _, f := range flyers {
		slug, ok := s.matcher.Match(f.Merchant)
		if !ok {
			continue
		}
		st, ok := storeBySlug[slug]
		if !ok {
			log.WithFields(logrus.Fields{"merchant": f.Merchant, "slug": slug}).Debug("Matched store is not registered")
			continue
		}
		targets = append(targets, NewFlyerContext(f, st.ID))
	}
	result.FlyersMatched = len(targets)
	log.WithFields(logrus.Fields{"flyers": len(flyers), "matched": len(targets)}).Info("Fetched flyers")

	// PROCESS_FLYER
	batches, failed := s.processFlyers(ctx, targets)
	if err := ctx.Err(); err != nil {
		return fail(&SyncError{Stage: StageProcessFlyer, Err: err})
	}
	result.FlyersFailed = failed

	var deals []model.Deal
	for _, b := range batches {
		deals = append(deals, b...)
	}
	if len(deals) == 0 {
		result.Message = "No deals found"
		result.FinishedAt = s.now()
		s.record(ctx, result)
		log.Info("Sync finished with no deals")
		return result, nil
	}

	// REPLACE
	storeIDs := distinctStoreIDs(deals)
	release, err := cache.LockAll(ctx, s.locker, storeLockKeys(storeIDs), s.config.LockTTL)
	if err != nil {
		return fail(&SyncError{Stage: StageReplace, Err: fmt.Errorf("acquire lock: %w", err)})
	}
	count, err := s.repo.ReplaceDeals(ctx, storeIDs, deals, s.config.BatchSize)
	release()
	if err != nil {
		return fail(&SyncError{Stage: StageReplace, Err: err})
	}

	purged, err := s.repo.DeleteExpired(ctx, s.today())
	if err != nil {
		log.WithError(err).Warn("Failed to purge expired deals")
	}
	s.clearCache(ctx)

	// DONE
	result.Count = count
	result.Purged = purged
	result.Stores = storeSlugs(stores, storeIDs)
	result.Message = fmt.Sprintf("Synced %d deals for zip code %s", count, zipCode)
	result.FinishedAt = s.now()
	s.record(ctx, result)

	log.WithFields(logrus.Fields{
		"count":    count,
		"stores":   result.Stores,
		"failed":   failed,
		"purged":   purged,
		"duration": result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Sync finished")

	return result, nil
}

// PurgeExpired deletes deals that ended before today.
func (s *SyncService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.clearCache(ctx)
	}
	return n, nil
}

// processFlyers fetches and normalizes every flyer with bounded
// parallelism. A flyer whose items cannot be fetched contributes nothing.
func (s *SyncService) processFlyers(ctx context.Context, targets []FlyerContext) ([][]model.Deal, int) {
	batches := make([][]model.Deal, len(targets))
	var failed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for i, fc := range targets {
		g.Go(func() error {
			items, err := s.source.Items(gctx, fc.FlyerID)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				logrus.WithFields(logrus.Fields{
					"component": "sync",
					"flyer_id":  fc.FlyerID,
					"merchant":  fc.Merchant,
				}).WithError(err).Warn("Skipping flyer")
				return nil
			}

			out := make([]model.Deal, 0, len(items))
			for _, item := range items {
				if d, ok := s.normalizer.Normalize(item, fc); ok {
					out = append(out, d)
				}
			}
			batches[i] = out
			return nil
		})
	}
	_ = g.Wait()

	return batches, int(failed)
}

// record keeps r as the last result and appends it to the run history. The
// history write survives cancellation of the run itself.
func (s *SyncService) record(ctx context.Context, r *model.SyncResult) {
	if r.ID == "" {
		r.ID = uid.New()
	}
	copied := *r
	s.mu.Lock()
	s.last = &copied
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.InsertSyncRun(ctx, &copied); err != nil {
		logrus.WithField("component", "sync").WithError(err).Warn("Failed to record sync run")
	}
}

// RecentRuns returns persisted runs newest first and the total run count.
func (s *SyncService) RecentRuns(ctx context.Context, limit, offset int) ([]model.SyncResult, int64, error) {
	return s.repo.ListSyncRuns(ctx, limit, offset)
}

// clearCache drops cached queries and then starts a new deal generation,
// so a query that read before the replace cannot cache its result.
func (s *SyncService) clearCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		logrus.WithField("component", "sync").WithError(err).Warn("Failed to clear query cache")
	}
	if err := s.cache.Set(ctx, dealGenerationKey, []byte(uid.New()), 0); err != nil {
		logrus.WithField("component", "sync").WithError(err).Warn("Failed to bump deal generation")
	}
}

func (s *SyncService) today() string {
	return s.now().Format(time.DateOnly)
}

func distinctStoreIDs(deals []model.Deal) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, d := range deals {
		if _, ok := seen[d.StoreID]; ok {
			continue
		}
		seen[d.StoreID] = struct{}{}
		ids = append(ids, d.StoreID)
	}
	sort.Strings(ids)
	return ids
}

// storeLockKeys names one lock per store so runs over overlapping store
// sets replace one after another.
func storeLockKeys(storeIDs []string) []string {
	keys := make([]string, len(storeIDs))
	for i, id := range storeIDs {
		keys[i] = "sync:store:" + id
	}
	return keys
}

func storeSlugs(stores []model.Store, ids []string) []string {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var slugs []string
	for _, st := range stores {
		if _, ok := want[st.ID]; ok {
			slugs = append(slugs, st.Slug)
		}
	}
	sort.Strings(slugs)
	return slugs
}
