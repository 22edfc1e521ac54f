package models

import "time"

// Event types recorded in the activity journal.
const (
	EventStart           = "START"
	EventStop            = "STOP"
	EventModeChange      = "MODE_CHANGE"
	EventRefresh         = "REFRESH"
	EventResolveFailed   = "RESOLVE_FAILED"
	EventResultDiscarded = "RESULT_DISCARDED"
	EventCacheInstalled  = "CACHE_INSTALLED"
	EventCacheFailed     = "CACHE_INSTALL_FAILED"
)

// DashboardEvent is a single journal entry.
type DashboardEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
