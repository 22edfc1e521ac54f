package models

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which resolver the scheduler uses.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

// ParseMode normalizes and validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLive, ModeSimulated:
		return m, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be live or simulated", s)
	}
}

// PollingStatus is a read-only snapshot of the scheduler's state.
type PollingStatus struct {
	Mode                Mode      `json:"mode"`
	Running             bool      `json:"running"`
	Interval            string    `json:"interval,omitempty"`
	InFlight            bool      `json:"in_flight"`
	LastError           string    `json:"last_error,omitempty"`
	LastErrorAt         time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt       time.Time `json:"last_success_at,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Stale               bool      `json:"stale"`
}

// DashboardView bundles everything the presentation layer renders.
type DashboardView struct {
	Sample  *Sample       `json:"sample,omitempty"`
	Insight *Insight      `json:"insight,omitempty"`
	Chart   []Sample      `json:"chart"`
	Status  PollingStatus `json:"status"`
}
