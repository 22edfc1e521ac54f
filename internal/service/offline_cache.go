package service

import (
	"context"
	"errors"
	"fmt"

	"smart_environment/internal/assets"
	"smart_environment/internal/logger"
	"smart_environment/internal/models"
	"smart_environment/internal/repository"
)

var ErrCacheInstallFailed = errors.New("cache install failed")

const DefaultCacheName = "smart-env-v2"

// DefaultManifest lists the assets the dashboard needs offline.
var DefaultManifest = []string{
	"index.html",
	"style.css",
	"app.js",
	"manifest.json",
	"icons/icon-192.png",
	"icons/icon-512.png",
	"assets/beep.mp3",
}

// CacheInstallFailedError names the manifest entry that broke the install.
type CacheInstallFailedError struct {
	Store string
	Path  string
	Err   error
}

func (e *CacheInstallFailedError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cache install %q failed: %v", e.Store, e.Err)
	}
	return fmt.Sprintf("cache install %q failed at %q: %v", e.Store, e.Path, e.Err)
}

func (e *CacheInstallFailedError) Is(target error) bool { return target == ErrCacheInstallFailed }

func (e *CacheInstallFailedError) Unwrap() error { return e.Err }

// OfflineCacheConfig selects the versioned store and its manifest.
type OfflineCacheConfig struct {
	Name           string
	Manifest       []string
	PopulateOnMiss bool
}

// OfflineCacheService installs a manifest into a named store and serves
// assets from it, falling back to the origin.
type OfflineCacheService struct {
	cfg    OfflineCacheConfig
	store  repository.CacheStore
	origin assets.Fetcher
	events EventRecorder
	obs    Observer
	log    *logger.Logger
}

func NewOfflineCacheService(cfg OfflineCacheConfig, store repository.CacheStore, origin assets.Fetcher,
	events EventRecorder, obs Observer, log *logger.Logger) *OfflineCacheService {
	if cfg.Name == "" {
		cfg.Name = DefaultCacheName
	}
	if len(cfg.Manifest) == 0 {
		cfg.Manifest = DefaultManifest
	}
	return &OfflineCacheService{
		cfg:    cfg,
		store:  store,
		origin: origin,
		events: recorderOrNop(events),
		obs:    observerOrNop(obs),
		log:    logger.OrNop(log),
	}
}

func (s *OfflineCacheService) Name() string { return s.cfg.Name }

// Install fetches every manifest entry first and writes nothing unless all
// of them succeed. Stores with other names are then removed.
func (s *OfflineCacheService) Install(ctx context.Context) error {
	fetched := make([]models.Asset, 0, len(s.cfg.Manifest))
	for _, p := range s.cfg.Manifest {
		a, err := s.origin.Fetch(ctx, p)
		if err != nil {
			return s.installFailed(ctx, &CacheInstallFailedError{Store: s.cfg.Name, Path: p, Err: err})
		}
		fetched = append(fetched, a)
	}

	if err := s.store.PutAll(ctx, s.cfg.Name, fetched); err != nil {
		return s.installFailed(ctx, &CacheInstallFailedError{Store: s.cfg.Name, Err: err})
	}

	removed, err := s.store.DeleteStoresExcept(ctx, s.cfg.Name)
	if err != nil {
		// The new store is complete; stale rows only waste space.
		s.log.Warnw("cache_cleanup_failed", "store", s.cfg.Name, "err", err)
	}

	s.log.Infow("cache_installed", "store", s.cfg.Name, "assets", len(fetched), "stale_rows_removed", removed)
	s.events.Record(ctx, models.EventCacheInstalled,
		fmt.Sprintf("Offline cache %s installed with %d assets", s.cfg.Name, len(fetched)),
		map[string]any{"store": s.cfg.Name, "assets": len(fetched), "stale_rows_removed": removed})
	return nil
}

func (s *OfflineCacheService) installFailed(ctx context.Context, err *CacheInstallFailedError) error {
	s.log.Errorw("cache_install_failed", "store", err.Store, "path", err.Path, "err", err.Err)
	s.events.Record(ctx, models.EventCacheFailed, err.Error(),
		map[string]any{"store": err.Store, "path": err.Path})
	return err
}

// Serve returns the asset for path and whether it came from the cache. Cache
// read errors fall through to the origin.
func (s *OfflineCacheService) Serve(ctx context.Context, path string) (models.Asset, bool, error) {
	clean, err := assets.Clean(path)
	if err != nil {
		return models.Asset{}, false, err
	}

	cached, err := s.store.Get(ctx, s.cfg.Name, clean)
	switch {
	case err != nil:
		s.obs.IncCacheRequest("error")
		s.log.Warnw("cache_read_failed", "store", s.cfg.Name, "path", clean, "err", err)
	case cached != nil:
		s.obs.IncCacheRequest("hit")
		return *cached, true, nil
	default:
		s.obs.IncCacheRequest("miss")
	}

	a, err := s.origin.Fetch(ctx, clean)
	if err != nil {
		return models.Asset{}, false, err
	}

	if s.cfg.PopulateOnMiss {
		if err := s.store.Put(ctx, s.cfg.Name, a); err != nil {
			s.log.Warnw("cache_populate_failed", "store", s.cfg.Name, "path", clean, "err", err)
		}
	}
	return a, false, nil
}

// Paths lists what the current store holds.
func (s *OfflineCacheService) Paths(ctx context.Context) ([]string, error) {
	return s.store.ListPaths(ctx, s.cfg.Name)
}
