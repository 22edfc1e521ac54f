package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"smart_environment/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

const (
	wsTypeDashboard = "dashboard"
	wsTypeRefresh   = "refresh"
	wsTypeError     = "error"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Upgrader for HTTP -> WebSocket. The dashboard may be opened from a cached
// copy on another origin, so any origin is accepted.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Dashboard stream
// @Description  WebSocket pushing {"type":"dashboard","data":DashboardView} every interval (?interval=2s or ?interval_ms=2000, max 10s)
// @Tags         dashboard
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	refresh := make(chan struct{}, 1)
	go h.startReader(conn, done, refresh)

	// Prepare periodic writers: dashboard updates and pings.
	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	// Send the current view immediately.
	if err := h.sendDashboard(conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	// Writer/select loop.
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-refresh:
			if err := h.handleRefresh(c.Request.Context(), conn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendDashboard(conn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// startReader handles control frames and detects closure. A text message
// {"type":"refresh"} asks the writer loop for an immediate resolution.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}, refresh chan<- struct{}) {
	defer close(done)
	for {
		mt, payload, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var msg wsEnvelope
		if json.Unmarshal(payload, &msg) != nil || msg.Type != wsTypeRefresh {
			continue
		}
		select {
		case refresh <- struct{}{}:
		default: // one pending refresh is enough
		}
	}
}

// handleRefresh resolves now and pushes the outcome. Only the writer loop
// calls it, so writes never overlap.
func (h *Handler) handleRefresh(ctx context.Context, conn *websocket.Conn) error {
	err := h.services.Dashboard.RefreshNow(ctx)
	if err != nil && !errors.Is(err, service.ErrResolutionInFlight) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if werr := conn.WriteJSON(wsEnvelope{Type: wsTypeError, Error: err.Error()}); werr != nil {
			return werr
		}
	}
	return h.sendDashboard(conn)
}

// sendDashboard writes the current view with a write deadline.
func (h *Handler) sendDashboard(conn *websocket.Conn) error {
	view := h.services.Dashboard.View()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: wsTypeDashboard, Data: view})
}
