package repository

import (
	"context"
	"database/sql"

	"smart_environment/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// CacheStore persists versioned offline asset stores.
type CacheStore interface {
	// PutAll writes every asset under store in one transaction.
	PutAll(ctx context.Context, store string, assets []models.Asset) error
	Put(ctx context.Context, store string, a models.Asset) error
	// Get returns (nil, nil) when the path is not cached.
	Get(ctx context.Context, store, path string) (*models.Asset, error)
	DeleteStoresExcept(ctx context.Context, keep string) (int64, error)
	ListPaths(ctx context.Context, store string) ([]string, error)
}

type Repository struct {
	Auth  Authorization
	Cache CacheStore
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Auth:  NewOperatorRepository(db),
		Cache: NewCacheSQLite(db),
	}
}
