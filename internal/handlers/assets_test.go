package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smart_environment/internal/assets"
	"smart_environment/internal/models"
	"smart_environment/internal/service"
)

func TestServeAsset(t *testing.T) {
	index := models.Asset{Path: "index.html", ContentType: "text/html; charset=utf-8", Body: []byte("<html></html>")}

	cases := []struct {
		name      string
		cache     *mockOfflineCache
		method    string
		path      string
		wantCode  int
		wantCache string
	}{
		{
			name:      "hit",
			cache:     &mockOfflineCache{assets: map[string]models.Asset{"/": index}, hit: true},
			method:    http.MethodGet,
			path:      "/",
			wantCode:  http.StatusOK,
			wantCache: cacheHit,
		},
		{
			name:      "miss served from origin",
			cache:     &mockOfflineCache{assets: map[string]models.Asset{"/index.html": index}},
			method:    http.MethodGet,
			path:      "/index.html",
			wantCode:  http.StatusOK,
			wantCache: cacheMiss,
		},
		{
			name:      "head",
			cache:     &mockOfflineCache{assets: map[string]models.Asset{"/": index}, hit: true},
			method:    http.MethodHead,
			path:      "/",
			wantCode:  http.StatusOK,
			wantCache: cacheHit,
		},
		{
			name:     "not found",
			cache:    &mockOfflineCache{},
			method:   http.MethodGet,
			path:     "/missing.js",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "invalid path",
			cache:    &mockOfflineCache{serveErr: assets.ErrInvalidPath},
			method:   http.MethodGet,
			path:     "/x/../../etc/passwd",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "origin down",
			cache:    &mockOfflineCache{serveErr: errors.Join(assets.ErrOrigin, errors.New("dial tcp"))},
			method:   http.MethodGet,
			path:     "/app.js",
			wantCode: http.StatusBadGateway,
		},
		{
			name:     "post is not an asset",
			cache:    &mockOfflineCache{assets: map[string]models.Asset{"/": index}},
			method:   http.MethodPost,
			path:     "/",
			wantCode: http.StatusNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{OfflineCache: tc.cache})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, "http://example.test"+tc.path, nil)
			req.URL.Path = tc.path
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d (body=%s)", tc.wantCode, w.Code, w.Body.String())
			}
			if got := w.Header().Get(headerCache); got != tc.wantCache {
				t.Fatalf("expected X-Cache %q, got %q", tc.wantCache, got)
			}
			if tc.wantCode == http.StatusOK && tc.method == http.MethodGet && w.Body.String() != string(index.Body) {
				t.Fatalf("unexpected body %q", w.Body.String())
			}
		})
	}
}

func TestCacheHandlers(t *testing.T) {
	cache := &mockOfflineCache{name: "smart-env-v2", paths: []string{"app.js", "index.html"}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, OfflineCache: cache})

	w := do(r, http.MethodGet, "/api/v1/cache/", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/v1/cache/", "valid", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"smart-env-v2"`) {
		t.Fatalf("cache list code=%d body=%s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/v1/cache/install", "valid", nil)
	if w.Code != http.StatusOK || cache.installs != 1 {
		t.Fatalf("install code=%d installs=%d", w.Code, cache.installs)
	}

	cache.installErr = &service.CacheInstallFailedError{Store: "smart-env-v2", Path: "app.js", Err: assets.ErrNotFound}
	w = do(r, http.MethodPost, "/api/v1/cache/install", "valid", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on failed install, got %d", w.Code)
	}
}

func TestCacheInstallTimeout(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		max  time.Duration
		min  time.Duration
	}{
		{name: "default", max: defaultInstallTimeout, min: defaultInstallTimeout - 5*time.Second},
		{name: "configured", opts: []Option{WithInstallTimeout(3 * time.Second)}, max: 3 * time.Second, min: time.Second},
		{name: "non-positive keeps default", opts: []Option{WithInstallTimeout(0)}, max: defaultInstallTimeout, min: defaultInstallTimeout - 5*time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &mockOfflineCache{name: "smart-env-v2"}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, OfflineCache: cache}, tt.opts...)

			if w := do(r, http.MethodPost, "/api/v1/cache/install", "valid", nil); w.Code != http.StatusOK {
				t.Fatalf("install code=%d", w.Code)
			}
			if cache.installBudget > tt.max || cache.installBudget < tt.min {
				t.Fatalf("install deadline %v not within [%v, %v]", cache.installBudget, tt.min, tt.max)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	called := false
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		_, _ = w.Write([]byte("# metrics"))
	})
	r := NewHandler(&service.Service{}, nil, WithMetrics("/metrics", metrics)).InitRoutes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !called {
		t.Fatalf("expected metrics handler to run, code=%d", w.Code)
	}
}
