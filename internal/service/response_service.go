package service

import "time"

// LogFilter supports journal filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "STOP", "MODE_CHANGE", "REFRESH", "RESOLVE_FAILED", ...
	// Limit keeps only the newest matches; zero keeps all.
	Limit int
}
