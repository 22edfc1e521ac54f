// Package assets reads dashboard static files from their origin, either a
// directory on disk or an upstream HTTP server.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"smart_environment/internal/models"
)

var (
	ErrNotFound    = errors.New("asset not found")
	ErrInvalidPath = errors.New("invalid asset path")
	ErrOrigin      = errors.New("asset origin unreachable")
)

const maxAssetBytes = 16 << 20

// Fetcher loads one asset from the origin.
type Fetcher interface {
	Fetch(ctx context.Context, p string) (models.Asset, error)
}

// Doer is the injectable HTTP capability.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Clean maps a request path onto a manifest path: "/" and "" become
// index.html, leading slashes are dropped and any ".." segment is rejected.
func Clean(p string) (string, error) {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" {
		return "index.html", nil
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	p = path.Clean(p)
	if strings.HasSuffix(p, "/") || p == "." {
		return "index.html", nil
	}
	return p, nil
}

// extraTypes covers dashboard assets missing from the builtin mime table on
// hosts without /etc/mime.types.
var extraTypes = map[string]string{
	".mp3":         "audio/mpeg",
	".ico":         "image/x-icon",
	".webmanifest": "application/manifest+json",
}

// ContentType guesses the MIME type from the extension.
func ContentType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if ct, ok := extraTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// DirFetcher serves assets from a filesystem.
type DirFetcher struct {
	fsys  fs.FS
	clock func() time.Time
}

func NewDirFetcher(fsys fs.FS) *DirFetcher {
	return &DirFetcher{fsys: fsys, clock: time.Now}
}

func (f *DirFetcher) Fetch(ctx context.Context, p string) (models.Asset, error) {
	if err := ctx.Err(); err != nil {
		return models.Asset{}, err
	}
	clean, err := Clean(p)
	if err != nil {
		return models.Asset{}, err
	}
	body, err := fs.ReadFile(f.fsys, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return models.Asset{}, fmt.Errorf("%w: read %s: %v", ErrOrigin, clean, err)
	}
	return models.Asset{
		Path:        clean,
		ContentType: ContentType(clean),
		Body:        body,
		CachedAt:    f.clock().UTC(),
	}, nil
}

// HTTPFetcher serves assets from an upstream base URL.
type HTTPFetcher struct {
	base   string
	client Doer
	clock  func() time.Time
}

func NewHTTPFetcher(baseURL string, client Doer) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{
		base:   strings.TrimRight(baseURL, "/"),
		client: client,
		clock:  time.Now,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, p string) (models.Asset, error) {
	clean, err := Clean(p)
	if err != nil {
		return models.Asset{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/"+clean, nil)
	if err != nil {
		return models.Asset{}, fmt.Errorf("%w: build request: %v", ErrOrigin, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return models.Asset{}, fmt.Errorf("%w: %v", ErrOrigin, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, clean)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return models.Asset{}, fmt.Errorf("%w: %s returned status %d", ErrOrigin, clean, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return models.Asset{}, fmt.Errorf("%w: read %s: %v", ErrOrigin, clean, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = ContentType(clean)
	}
	return models.Asset{
		Path:        clean,
		ContentType: ct,
		Body:        body,
		CachedAt:    f.clock().UTC(),
	}, nil
}

// NewFetcher picks the fetcher for origin: an http(s) URL or a directory.
func NewFetcher(origin string, client Doer) (Fetcher, error) {
	if strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://") {
		return NewHTTPFetcher(origin, client), nil
	}
	st, err := os.Stat(origin)
	if err != nil {
		return nil, fmt.Errorf("asset origin %q: %w", origin, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("asset origin %q is not a directory", origin)
	}
	return NewDirFetcher(os.DirFS(origin)), nil
}
