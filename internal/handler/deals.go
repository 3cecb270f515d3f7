package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"grocerygenius-api/internal/model"
	"grocerygenius-api/pkg/apierror"
	"grocerygenius-api/pkg/response"

	"github.com/sirupsen/logrus"
)

// DealQuerier reads current deals. *service.DealService implements it.
type DealQuerier interface {
	Query(ctx context.Context, q model.DealQuery) ([]model.DealWithStore, error)
	MatchWatchList(ctx context.Context, req model.WatchListMatchRequest) ([]model.WatchListMatch, error)
}

// DealHandler serves deal queries and watch list matching.
type DealHandler struct {
	deals DealQuerier
}

// NewDealHandler creates a new deal handler.
func NewDealHandler(deals DealQuerier) *DealHandler {
	return &DealHandler{deals: deals}
}

// List handles GET /api/v1/deals
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := model.DealQuery{
		Store:    strings.TrimSpace(params.Get("store")),
		Category: strings.TrimSpace(params.Get("category")),
		Search:   strings.TrimSpace(params.Get("q")),
	}

	if raw := strings.TrimSpace(params.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, apierror.ValidationError("invalid request",
				apierror.FieldError{Field: "limit", Message: "limit must be a number"}))
			return
		}
		q.Limit = limit
	}

	if err := validate.Struct(q); err != nil {
		response.Error(w, validationError(err))
		return
	}

	deals, err := h.deals.Query(r.Context(), q)
	if err != nil {
		logrus.WithError(err).WithField("query", q).Error("Failed to query deals")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load deals"})
		return
	}

	writeJSON(w, http.StatusOK, deals)
}

// MatchWatchList handles POST /api/v1/watchlist/matches
func (h *DealHandler) MatchWatchList(w http.ResponseWriter, r *http.Request) {
	var req model.WatchListMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}

	for i := range req.Items {
		req.Items[i].Keyword = strings.TrimSpace(req.Items[i].Keyword)
		if c := req.Items[i].Category; c != nil {
			category := strings.ToLower(strings.TrimSpace(*c))
			if category == "" {
				req.Items[i].Category = nil
			} else {
				req.Items[i].Category = &category
			}
		}
	}
	if err := validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	matches, err := h.deals.MatchWatchList(r.Context(), req)
	if err != nil {
		logrus.WithError(err).Error("Failed to match watch list")
		response.Error(w, apierror.InternalError("failed to match watch list"))
		return
	}

	response.OK(w, matches)
}
