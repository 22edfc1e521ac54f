package models

import "time"

// Asset is one cached static file of the dashboard.
type Asset struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"-"`
	CachedAt    time.Time `json:"cached_at,omitempty"`
}
