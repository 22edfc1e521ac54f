package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smart_environment/internal/assets"

	"github.com/gin-gonic/gin"
)

const (
	headerCache = "X-Cache"
	cacheHit    = "HIT"
	cacheMiss   = "MISS"

	defaultInstallTimeout = 30 * time.Second
)

// serveAsset answers every unmatched GET/HEAD from the offline cache,
// falling back to the asset origin.
func (h *Handler) serveAsset(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	asset, hit, err := h.services.OfflineCache.Serve(c.Request.Context(), c.Request.URL.Path)
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrInvalidPath):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		case errors.Is(err, assets.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		default:
			h.logAndJSONError(c, http.StatusBadGateway, "asset unavailable", "asset_serve_failed", err,
				"path", c.Request.URL.Path)
		}
		return
	}

	if hit {
		c.Header(headerCache, cacheHit)
	} else {
		c.Header(headerCache, cacheMiss)
	}
	c.Data(http.StatusOK, asset.ContentType, asset.Body)
}

// @Summary      Offline cache contents
// @Tags         cache
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "name, count, paths"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/cache [get]
// @Security     BearerAuth
func (h *Handler) getCache(c *gin.Context) {
	paths, err := h.services.OfflineCache.Paths(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list cache", "cache_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":  h.services.OfflineCache.Name(),
		"count": len(paths),
		"paths": paths,
	})
}

// @Summary      Reinstall offline cache
// @Description  Fetches the whole manifest into the current store and drops older stores. All or nothing.
// @Tags         cache
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, name"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/cache/install [post]
// @Security     BearerAuth
func (h *Handler) installCache(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.installTimeout)
	defer cancel()

	if err := h.services.OfflineCache.Install(ctx); err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, err.Error(), "cache_install_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "installed", "name": h.services.OfflineCache.Name()})
}
