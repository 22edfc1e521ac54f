package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Source tags where a Sample came from.
type Source string

const (
	SourceLocal     Source = "local"
	SourceRemote    Source = "remote"
	SourceSimulated Source = "simulated"
)

// ParseSource validates a textual source tag.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceLocal, SourceRemote, SourceSimulated:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown source %q: must be local, remote or simulated", s)
	}
}

// ErrInvalidSample is returned when a reading cannot become a Sample.
var ErrInvalidSample = errors.New("invalid sample")

// Sample is one canonical environmental reading. It is a value type: copies
// never share state, and NewSample is the only way providers build one.
type Sample struct {
	TemperatureC float64    `json:"temperature_c"` // °C
	HumidityPct  float64    `json:"humidity_pct"`  // %, not clamped
	AirQuality   AirQuality `json:"air_quality"`   // numeric AQI or qualitative label
	CapturedAt   time.Time  `json:"captured_at"`   // UTC
	Source       Source     `json:"source"`        // local | remote | simulated
}

// NewSample builds a Sample or fails without returning a partial value.
func NewSample(tempC, humidityPct float64, aq AirQuality, capturedAt time.Time, src Source) (Sample, error) {
	s := Sample{
		TemperatureC: tempC,
		HumidityPct:  humidityPct,
		AirQuality:   aq,
		CapturedAt:   capturedAt.UTC(),
		Source:       src,
	}
	if err := s.Validate(); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// Validate reports whether every required field is present and finite.
func (s Sample) Validate() error {
	if !isFinite(s.TemperatureC) {
		return fmt.Errorf("%w: temperature %v is not a finite number", ErrInvalidSample, s.TemperatureC)
	}
	if !isFinite(s.HumidityPct) {
		return fmt.Errorf("%w: humidity %v is not a finite number", ErrInvalidSample, s.HumidityPct)
	}
	if err := s.AirQuality.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("%w: captured_at is required", ErrInvalidSample)
	}
	if _, err := ParseSource(string(s.Source)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
