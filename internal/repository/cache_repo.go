package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart_environment/internal/models"
)

type CacheSQLite struct {
	db *sql.DB
}

func NewCacheSQLite(db *sql.DB) *CacheSQLite { return &CacheSQLite{db: db} }

var _ CacheStore = (*CacheSQLite)(nil)

const (
	upsertCacheEntrySQL = `
		INSERT INTO cache_entries (store, path, content_type, body, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(store, path) DO UPDATE SET
			content_type=excluded.content_type,
			body=excluded.body,
			cached_at=excluded.cached_at
	`

	selectCacheEntrySQL = `
		SELECT path, content_type, body, cached_at
		FROM cache_entries WHERE store = ? AND path = ?
	`

	deleteOtherStoresSQL = `DELETE FROM cache_entries WHERE store <> ?`

	listCachePathsSQL = `SELECT path FROM cache_entries WHERE store = ? ORDER BY path`
)

func cachedAtUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// PutAll is all-or-nothing: a failed statement rolls back every entry.
func (r *CacheSQLite) PutAll(ctx context.Context, store string, assets []models.Asset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertCacheEntrySQL)
	if err != nil {
		return fmt.Errorf("prepare cache upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assets {
		if _, err := stmt.ExecContext(ctx, store, a.Path, a.ContentType, a.Body, cachedAtUTC(a.CachedAt)); err != nil {
			return fmt.Errorf("cache %q in store %q: %w", a.Path, store, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache transaction: %w", err)
	}
	return nil
}

func (r *CacheSQLite) Put(ctx context.Context, store string, a models.Asset) error {
	_, err := r.db.ExecContext(ctx, upsertCacheEntrySQL, store, a.Path, a.ContentType, a.Body, cachedAtUTC(a.CachedAt))
	if err != nil {
		return fmt.Errorf("cache %q in store %q: %w", a.Path, store, err)
	}
	return nil
}

func (r *CacheSQLite) Get(ctx context.Context, store, path string) (*models.Asset, error) {
	var a models.Asset
	err := r.db.QueryRowContext(ctx, selectCacheEntrySQL, store, path).
		Scan(&a.Path, &a.ContentType, &a.Body, &a.CachedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select cached %q from store %q: %w", path, store, err)
	}
	a.CachedAt = a.CachedAt.UTC()
	return &a, nil
}

// DeleteStoresExcept drops every entry that does not belong to keep and
// returns the number of rows removed.
func (r *CacheSQLite) DeleteStoresExcept(ctx context.Context, keep string) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteOtherStoresSQL, keep)
	if err != nil {
		return 0, fmt.Errorf("delete stores other than %q: %w", keep, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected deleting stores: %w", err)
	}
	return n, nil
}

func (r *CacheSQLite) ListPaths(ctx context.Context, store string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listCachePathsSQL, store)
	if err != nil {
		return nil, fmt.Errorf("list cached paths in %q: %w", store, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan cached path: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached paths: %w", err)
	}
	return out, nil
}
