package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/service"

	"github.com/sirupsen/logrus"
)

// DefaultProbeFlyer is probed when the debug route is called without ?flyer.
const DefaultProbeFlyer = "7734923"

// Syncer runs ingestion. *service.SyncService implements it.
type Syncer interface {
	Sync(ctx context.Context, zipCode string) (*model.SyncResult, error)
	DefaultZipCode() string
}

// Prober runs upstream diagnostics. *flipp.Client implements it.
type Prober interface {
	Probe(ctx context.Context, flyerID, zip string) *flipp.ProbeReport
}

// SyncHandler serves the sync trigger and its debug probe.
type SyncHandler struct {
	syncer  Syncer
	prober  Prober
	timeout time.Duration
}

// NewSyncHandler creates a sync handler. prober may be nil, which disables
// the debug route. A positive timeout bounds each triggered run.
func NewSyncHandler(syncer Syncer, prober Prober, timeout time.Duration) *SyncHandler {
	return &SyncHandler{syncer: syncer, prober: prober, timeout: timeout}
}

type syncRequest struct {
	Zip string `validate:"omitempty,zipcode"`
}

// SyncResponse is the body of a successful sync.
type SyncResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// ErrorResponse is the bare error body of the sync, deals and intent routes.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Trigger handles GET and POST /api/v1/sync
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	req := syncRequest{Zip: strings.TrimSpace(r.URL.Query().Get("zip"))}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid zip code",
			Details: "zip must be a numeric postal code of at most 10 digits, optionally followed by -dddd",
		})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.syncer.Sync(ctx, req.Zip)
	if err != nil {
		fields := logrus.Fields{"zip_code": req.Zip}
		var syncErr *service.SyncError
		if errors.As(err, &syncErr) {
			fields["stage"] = syncErr.Stage
			if syncErr.StatusCode != 0 {
				fields["upstream_status"] = syncErr.StatusCode
			}
		}
		logrus.WithFields(fields).WithError(err).Error("Sync failed")

		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Sync failed", Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{Count: result.Count, Message: result.Message})
}

// Debug handles GET /api/v1/sync/debug
func (h *SyncHandler) Debug(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Probe not configured"})
		return
	}

	flyerID := strings.TrimSpace(r.URL.Query().Get("flyer"))
	if flyerID == "" {
		flyerID = DefaultProbeFlyer
	}
	zip := strings.TrimSpace(r.URL.Query().Get("zip"))
	if zip == "" {
		zip = h.syncer.DefaultZipCode()
	}

	writeJSON(w, http.StatusOK, h.prober.Probe(r.Context(), flyerID, zip))
}

// writeJSON sends a body without the response envelope.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
