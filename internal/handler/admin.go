package handler

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"grocerygenius-api/internal/model"
	"grocerygenius-api/pkg/apierror"
	"grocerygenius-api/pkg/response"

	"github.com/sirupsen/logrus"
)

// DealStats reports stored deals per store. *service.StoreService implements it.
type DealStats interface {
	Stats(ctx context.Context) ([]model.StoreDealCount, error)
}

// SyncHistory reports past sync runs. *service.SyncService implements it.
type SyncHistory interface {
	LastResult() *model.SyncResult
	RecentRuns(ctx context.Context, limit, offset int) ([]model.SyncResult, int64, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	stats     DealStats
	history   SyncHistory
	dbType    string
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. history may be nil.
func NewAdminHandler(stats DealStats, history SyncHistory, dbType, cacheType string) *AdminHandler {
	return &AdminHandler{
		stats:     stats,
		history:   history,
		dbType:    dbType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.stats != nil {
		counts, err := h.stats.Stats(r.Context())
		if err != nil {
			stats["deals"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		} else {
			var total int64
			for _, c := range counts {
				total += c.Deals
			}
			stats["deals"] = map[string]interface{}{
				"status":   "ok",
				"total":    total,
				"by_store": counts,
			}
		}
	}

	if h.history != nil {
		if last := h.lastSync(r.Context()); last != nil {
			stats["last_sync"] = last
		}
	}

	response.OK(w, stats)
}

// lastSync prefers the in-process result and falls back to the newest
// persisted run after a restart.
func (h *AdminHandler) lastSync(ctx context.Context) *model.SyncResult {
	if last := h.history.LastResult(); last != nil {
		return last
	}
	runs, _, err := h.history.RecentRuns(ctx, 1, 0)
	if err != nil || len(runs) == 0 {
		return nil
	}
	return &runs[0]
}

type syncRunsRequest struct {
	Page  int `validate:"gte=1"`
	Limit int `validate:"gte=1,lte=100"`
}

// GetSyncRuns handles GET /api/v1/admin/sync-runs
func (h *AdminHandler) GetSyncRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.Error(w, apierror.NotFound("sync history not configured"))
		return
	}

	req := syncRunsRequest{Page: 1, Limit: 20}
	for name, dst := range map[string]*int{"page": &req.Page, "limit": &req.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, apierror.ValidationError("invalid request",
				apierror.FieldError{Field: name, Message: name + " must be a number"}))
			return
		}
		*dst = n
	}
	if err := validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	runs, total, err := h.history.RecentRuns(r.Context(), req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to list sync runs")
		response.Error(w, apierror.InternalError("failed to list sync runs"))
		return
	}

	response.JSONWithMeta(w, http.StatusOK, runs, req.Page, req.Limit, total)
}
