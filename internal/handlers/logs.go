package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smart_environment/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	maxLogLimit = 1000

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var errInvertedRange = errors.New("'from' must be <= 'to'")

// logQuery is the journal query string.
type logQuery struct {
	From  string `form:"from"`
	To    string `form:"to"`
	Type  string `form:"type"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// filter turns the query into a journal filter. A date-only 'to' covers the
// whole day.
func (q logQuery) filter() (service.LogFilter, error) {
	f := service.LogFilter{
		Type:  strings.ToUpper(strings.TrimSpace(q.Type)),
		Limit: q.Limit,
	}
	if q.From != "" {
		t, err := parseQueryTime(q.From)
		if err != nil {
			return f, fmt.Errorf("invalid 'from': %w", err)
		}
		f.From = t
	}
	if q.To != "" {
		t, err := parseQueryTime(q.To)
		if err != nil {
			return f, fmt.Errorf("invalid 'to': %w", err)
		}
		if !strings.ContainsAny(q.To, "T ") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errInvertedRange
	}
	return f, nil
}

// @Summary      List dashboard events
// @Description  Journal entries oldest first. Times accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' is inclusive of that whole day. 'limit' keeps the newest matches.
// @Tags         logs
// @Produce      json
// @Param        from   query   string   false  "Start of range"  example(2025-08-01)
// @Param        to     query   string   false  "End of range"    example(2025-08-31)
// @Param        type   query   string   false  "Event type"  Enums(START,STOP,MODE_CHANGE,REFRESH,RESOLVE_FAILED,RESULT_DISCARDED,CACHE_INSTALLED,CACHE_INSTALL_FAILED)
// @Param        limit  query   integer  false  "Newest N matches (1-1000)"
// @Success      200    {object}  map[string]interface{}  "count, events"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	var q logQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid query; limit must be 1-%d", maxLogLimit)})
		return
	}
	f, err := q.filter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}
