package service

import (
	"context"
	"fmt"
	"strings"

	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/repository"

	"github.com/sirupsen/logrus"
)

// StoreService manages the store registry.
type StoreService struct {
	repo    repository.Repository
	catalog *catalog.Catalog
}

// NewStoreService creates a store service.
func NewStoreService(repo repository.Repository, cat *catalog.Catalog) *StoreService {
	return &StoreService{repo: repo, catalog: cat}
}

// Seed upserts every catalog store by slug.
func (s *StoreService) Seed(ctx context.Context) (int, error) {
	for _, entry := range s.catalog.Stores {
		store := model.Store{
			Name:    entry.Name,
			Slug:    entry.Slug,
			LogoURL: optional(entry.LogoURL),
			Website: optional(entry.Website),
		}
		if _, err := s.repo.UpsertStore(ctx, store); err != nil {
			return 0, fmt.Errorf("failed to seed store %s: %w", entry.Slug, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "stores",
		"count":     len(s.catalog.Stores),
	}).Info("Seeded store catalog")
	return len(s.catalog.Stores), nil
}

// List returns every registered store.
func (s *StoreService) List(ctx context.Context) ([]model.Store, error) {
	stores, err := s.repo.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	if stores == nil {
		stores = []model.Store{}
	}
	return stores, nil
}

// Get returns nil when no store has the slug.
func (s *StoreService) Get(ctx context.Context, slug string) (*model.Store, error) {
	return s.repo.GetStoreBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// Stats returns the number of stored deals per store.
func (s *StoreService) Stats(ctx context.Context) ([]model.StoreDealCount, error) {
	counts, err := s.repo.CountByStore(ctx)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []model.StoreDealCount{}
	}
	return counts, nil
}
