package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"smart_environment/internal/assets"
	"smart_environment/internal/models"
)

type memCacheStore struct {
	mu      sync.Mutex
	stores  map[string]map[string]models.Asset
	putErr  error
	getErr  error
	putAlls int
}

func newMemCacheStore() *memCacheStore {
	return &memCacheStore{stores: map[string]map[string]models.Asset{}}
}

func (m *memCacheStore) PutAll(_ context.Context, store string, list []models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putAlls++
	if m.putErr != nil {
		return m.putErr
	}
	if m.stores[store] == nil {
		m.stores[store] = map[string]models.Asset{}
	}
	for _, a := range list {
		m.stores[store][a.Path] = a
	}
	return nil
}

func (m *memCacheStore) Put(ctx context.Context, store string, a models.Asset) error {
	return m.PutAll(ctx, store, []models.Asset{a})
}

func (m *memCacheStore) Get(_ context.Context, store, path string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.stores[store][path]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memCacheStore) DeleteStoresExcept(_ context.Context, keep string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for name, entries := range m.stores {
		if name != keep {
			n += int64(len(entries))
			delete(m.stores, name)
		}
	}
	return n, nil
}

func (m *memCacheStore) ListPaths(_ context.Context, store string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.stores[store] {
		out = append(out, p)
	}
	return out, nil
}

type mapFetcher struct {
	mu    sync.Mutex
	files map[string]string
	calls int
}

func (f *mapFetcher) Fetch(_ context.Context, p string) (models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	body, ok := f.files[p]
	if !ok {
		return models.Asset{}, assets.ErrNotFound
	}
	return models.Asset{Path: p, ContentType: assets.ContentType(p), Body: []byte(body)}, nil
}

func TestOfflineCache_InstallAtomic(t *testing.T) {
	store := newMemCacheStore()
	origin := &mapFetcher{files: map[string]string{
		"index.html":         "<html>",
		"style.css":          "body{}",
		"app.js":             "run()",
		"manifest.json":      "{}",
		"icons/icon-192.png": "png",
		"icons/icon-512.png": "png",
	}}
	j := &recordingJournal{}
	svc := NewOfflineCacheService(OfflineCacheConfig{Name: "smart-env-v2"}, store, origin, j, nil, nil)

	err := svc.Install(context.Background())
	if !errors.Is(err, ErrCacheInstallFailed) {
		t.Fatalf("expected ErrCacheInstallFailed, got %v", err)
	}
	var cif *CacheInstallFailedError
	if !errors.As(err, &cif) || cif.Path != "assets/beep.mp3" {
		t.Fatalf("expected failure naming assets/beep.mp3, got %v", err)
	}
	if !errors.Is(err, assets.ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
	if store.putAlls != 0 || len(store.stores) != 0 {
		t.Fatalf("nothing may be written on a failed install, got %+v", store.stores)
	}
	if !j.Has(models.EventCacheFailed) {
		t.Fatal("expected CACHE_INSTALL_FAILED journal entry")
	}

	origin.files["assets/beep.mp3"] = "ID3"
	if err := svc.Install(context.Background()); err != nil {
		t.Fatalf("Install after the sound became available: %v", err)
	}
	installed := store.stores["smart-env-v2"]
	if len(installed) != len(DefaultManifest) {
		t.Fatalf("expected %d entries, got %d", len(DefaultManifest), len(installed))
	}
	sound, ok := installed["assets/beep.mp3"]
	if !ok {
		t.Fatal("alert sound missing from the installed store")
	}
	if sound.ContentType != "audio/mpeg" {
		t.Fatalf("unexpected alert sound content type %q", sound.ContentType)
	}
}

func TestOfflineCache_InstallReplacesOldVersions(t *testing.T) {
	store := newMemCacheStore()
	store.stores["smart-env-v1"] = map[string]models.Asset{"index.html": {Path: "index.html"}}
	origin := &mapFetcher{files: map[string]string{"index.html": "<html>", "style.css": "body{}"}}
	j := &recordingJournal{}
	svc := NewOfflineCacheService(OfflineCacheConfig{Name: "smart-env-v2", Manifest: []string{"index.html", "style.css"}},
		store, origin, j, nil, nil)

	if err := svc.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, ok := store.stores["smart-env-v1"]; ok {
		t.Fatal("old store must be deleted")
	}
	paths, _ := svc.Paths(context.Background())
	if len(paths) != 2 {
		t.Fatalf("expected 2 cached paths, got %v", paths)
	}
	if !j.Has(models.EventCacheInstalled) {
		t.Fatal("expected CACHE_INSTALLED journal entry")
	}
}

func TestOfflineCache_Serve(t *testing.T) {
	tests := []struct {
		name          string
		populate      bool
		getErr        error
		path          string
		seed          bool
		wantFromCache bool
		wantErr       error
		wantOrigin    int
		wantCached    bool
		wantResult    string
	}{
		{name: "hit", seed: true, path: "/", wantFromCache: true, wantOrigin: 0, wantResult: "hit"},
		{name: "miss goes to network", path: "/style.css", wantOrigin: 1, wantResult: "miss"},
		{name: "miss populates when enabled", populate: true, path: "/style.css", wantOrigin: 1, wantCached: true, wantResult: "miss"},
		{name: "cache read error falls back", getErr: errors.New("db locked"), path: "/style.css", wantOrigin: 1, wantResult: "error"},
		{name: "origin miss surfaces", path: "/nope.js", wantErr: assets.ErrNotFound, wantOrigin: 1, wantResult: "miss"},
		{name: "traversal rejected", path: "/../secret", wantErr: assets.ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemCacheStore()
			store.getErr = tt.getErr
			if tt.seed {
				store.stores["smart-env-v2"] = map[string]models.Asset{"index.html": {Path: "index.html", Body: []byte("cached")}}
			}
			origin := &mapFetcher{files: map[string]string{"index.html": "fresh", "style.css": "body{}"}}
			obs := newCountingObserver()
			svc := NewOfflineCacheService(OfflineCacheConfig{Name: "smart-env-v2", PopulateOnMiss: tt.populate},
				store, origin, nil, obs, nil)

			a, fromCache, err := svc.Serve(context.Background(), tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fromCache != tt.wantFromCache {
				t.Fatalf("fromCache = %v, want %v", fromCache, tt.wantFromCache)
			}
			if tt.wantFromCache && string(a.Body) != "cached" {
				t.Fatalf("expected cached body, got %q", a.Body)
			}
			if origin.calls != tt.wantOrigin {
				t.Fatalf("origin calls = %d, want %d", origin.calls, tt.wantOrigin)
			}
			if tt.wantResult != "" && obs.cache[tt.wantResult] != 1 {
				t.Fatalf("expected one %q cache result, got %v", tt.wantResult, obs.cache)
			}
			store.getErr = nil
			cached, _ := store.Get(context.Background(), "smart-env-v2", "style.css")
			if (cached != nil) != tt.wantCached {
				t.Fatalf("style.css cached = %v, want %v", cached != nil, tt.wantCached)
			}
		})
	}
}
