package handler

import (
	"context"
	"net/http"

	"grocerygenius-api/internal/model"
	"grocerygenius-api/pkg/apierror"
	"grocerygenius-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// StoreReader reads the store registry. *service.StoreService implements it.
type StoreReader interface {
	List(ctx context.Context) ([]model.Store, error)
	Get(ctx context.Context, slug string) (*model.Store, error)
}

// StoreHandler serves the store registry.
type StoreHandler struct {
	stores StoreReader
}

// NewStoreHandler creates a new store handler.
func NewStoreHandler(stores StoreReader) *StoreHandler {
	return &StoreHandler{stores: stores}
}

type storeRequest struct {
	Slug string `validate:"required,max=64,slug"`
}

// List handles GET /api/v1/stores
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.List(r.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to list stores")
		response.Error(w, apierror.InternalError("failed to list stores"))
		return
	}
	response.OK(w, stores)
}

// Get handles GET /api/v1/stores/{slug}
func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	req := storeRequest{Slug: chi.URLParam(r, "slug")}
	if err := validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	store, err := h.stores.Get(r.Context(), req.Slug)
	if err != nil {
		logrus.WithError(err).WithField("slug", req.Slug).Error("Failed to get store")
		response.Error(w, apierror.InternalError("failed to get store"))
		return
	}
	if store == nil {
		response.Error(w, apierror.NotFound("store not found"))
		return
	}
	response.OK(w, store)
}
