package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"smart_environment/internal/chart"
	"smart_environment/internal/models"
	"smart_environment/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK        = "ok"
	statusStarted   = "started"
	statusStopped   = "stopped"
	statusModeSet   = "mode_set"
	statusRefreshed = "refreshed"
	statusInFlight  = "in_flight"

	errNoSample        = "no sample resolved yet"
	errStartPolling    = "failed to start polling"
	errRefresh         = "no source produced a sample"
	errRefreshDropped  = "result discarded: mode changed or polling stopped"
	errRenderChart     = "failed to render chart"
	errInvalidBodyPref = "invalid body: "

	maxChartSide = 4096
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include the polling status.
func (h *Handler) respondWithStatus(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status, "polling": h.services.Polling.Status()}
	for k, v := range extra {
		resp[k] = v
	}
	c.JSON(http.StatusOK, resp)
}

// Request DTO for starting the scheduler.
type startRequest struct {
	Interval string `json:"interval,omitempty"` // Go duration, e.g. "5s"
}

// Request DTO for setting mode.
type modeRequest struct {
	Mode string `json:"mode" binding:"required"` // live | simulated
}

// SetModeRequest is an exported model for Swagger docs of the setMode payload.
type SetModeRequest struct {
	// Mode to use. Allowed: live, simulated
	Mode string `json:"mode" example:"simulated"`
}

// StartPollingRequest is an exported model for Swagger docs of the start payload.
type StartPollingRequest struct {
	// Polling interval as a Go duration. Empty uses the configured default.
	Interval string `json:"interval,omitempty" example:"5s"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Dashboard view
// @Description  Current sample, insight, rolling chart window and polling status
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  models.DashboardView
// @Router       /api/v1/dashboard [get]
func (h *Handler) getDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Dashboard.View())
}

// @Summary      Current sample
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  models.Sample
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/sample [get]
func (h *Handler) getSample(c *gin.Context) {
	s, ok := h.services.Dashboard.CurrentSample()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoSample})
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Current insight
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  models.Insight
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/insight [get]
func (h *Handler) getInsight(c *gin.Context) {
	in, ok := h.services.Dashboard.CurrentInsight()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoSample})
		return
	}
	c.JSON(http.StatusOK, in)
}

// @Summary      Chart window
// @Description  Rolling window of samples, oldest first
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, samples"
// @Router       /api/v1/chart [get]
func (h *Handler) getChart(c *gin.Context) {
	samples := h.services.Dashboard.ChartSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}

// @Summary      Chart image
// @Description  Rolling window rendered as PNG. 204 until two samples exist.
// @Tags         dashboard
// @Produce      png
// @Param        width   query  int  false  "Image width in pixels"   example(800)
// @Param        height  query  int  false  "Image height in pixels"  example(360)
// @Success      200
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/chart.png [get]
func (h *Handler) getChartPNG(c *gin.Context) {
	opts := chart.Options{Title: "Smart Environment"}
	var err error
	if opts.Width, err = parseSide(c.Query("width")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid width"})
		return
	}
	if opts.Height, err = parseSide(c.Query("height")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid height"})
		return
	}

	var buf bytes.Buffer
	if err := h.services.Dashboard.RenderChart(&buf, opts); err != nil {
		if errors.Is(err, chart.ErrNotEnoughPoints) {
			c.Status(http.StatusNoContent)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errRenderChart, "chart_render_failed", err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// parseSide accepts an empty value (default size) or 1..maxChartSide.
func parseSide(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 || v > maxChartSide {
		return 0, errors.New("out of range")
	}
	return v, nil
}

// @Summary      Polling status
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  models.PollingStatus
// @Router       /api/v1/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Polling.Status())
}

// @Summary      Refresh now
// @Description  Resolves one sample outside the schedule. 202 when a resolution is already running.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, dashboard"
// @Success      202  {object}  map[string]interface{}  "status"
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]interface{}  "error, dashboard"
// @Router       /api/v1/refresh [post]
func (h *Handler) refresh(c *gin.Context) {
	err := h.services.Dashboard.RefreshNow(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": statusRefreshed, "dashboard": h.services.Dashboard.View()})
	case errors.Is(err, service.ErrResolutionInFlight):
		c.JSON(http.StatusAccepted, gin.H{"status": statusInFlight})
	case errors.Is(err, service.ErrResultDiscarded):
		c.JSON(http.StatusConflict, gin.H{"error": errRefreshDropped})
	case errors.Is(err, service.ErrSourceUnavailable):
		if h.log != nil {
			h.log.Warnw("refresh_source_unavailable", "err", err)
		}
		// the last good sample is still shown
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errRefresh, "dashboard": h.services.Dashboard.View()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errRefresh, "refresh_failed", err)
	}
}

// @Summary      Start polling
// @Tags         polling
// @Accept       json
// @Produce      json
// @Param        body  body   StartPollingRequest  false  "Optional interval"
// @Success      200   {object}  map[string]interface{}  "status, polling"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/polling/start [post]
// @Security     BearerAuth
func (h *Handler) startPolling(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}

	var interval time.Duration
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be a positive duration such as 5s"})
			return
		}
		interval = d
	}

	if err := h.services.Polling.Start(interval); err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusBadRequest, errStartPolling, "polling_start_failed", err)
		return
	}
	h.respondWithStatus(c, statusStarted, gin.H{})
}

// @Summary      Stop polling
// @Tags         polling
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/polling/stop [post]
// @Security     BearerAuth
func (h *Handler) stopPolling(c *gin.Context) {
	h.services.Polling.Stop()
	h.respondWithStatus(c, statusStopped, gin.H{})
}

// @Summary      Set mode
// @Description  Switches between live providers and the simulated generator
// @Tags         polling
// @Accept       json
// @Produce      json
// @Param        body  body   SetModeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/polling/mode [post]
// @Security     BearerAuth
func (h *Handler) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	mode, err := models.ParseMode(req.Mode)
	if err == nil {
		err = h.services.Polling.SetMode(mode)
	}
	if err != nil {
		if h.log != nil {
			h.log.Infow("polling_set_mode_failed", "err", err, "mode", req.Mode)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondWithStatus(c, statusModeSet, gin.H{"mode": mode})
}
