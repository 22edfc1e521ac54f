package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AirQualityKind selects which arm of AirQuality is populated.
type AirQualityKind string

const (
	AirQualityNumeric     AirQualityKind = "numeric"
	AirQualityQualitative AirQualityKind = "qualitative"
)

// QualitativeLabel is the discrete air-quality reading some sources report.
type QualitativeLabel string

const (
	LabelBaik  QualitativeLabel = "Baik"  // good
	LabelBuruk QualitativeLabel = "Buruk" // poor
)

var errMissingAirQuality = errors.New("air quality is missing")

// AirQuality is either a numeric AQI-like magnitude or a qualitative label.
// The zero value carries neither and is rejected by Validate.
type AirQuality struct {
	kind  AirQualityKind
	value float64
	label QualitativeLabel
}

// NumericAirQuality wraps an AQI-like magnitude.
func NumericAirQuality(v float64) AirQuality {
	return AirQuality{kind: AirQualityNumeric, value: v}
}

// QualitativeAirQuality wraps a discrete label.
func QualitativeAirQuality(l QualitativeLabel) AirQuality {
	return AirQuality{kind: AirQualityQualitative, label: l}
}

// ParseLabel accepts the Indonesian labels and their English equivalents,
// case-insensitively.
func ParseLabel(s string) (QualitativeLabel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "baik", "good":
		return LabelBaik, nil
	case "buruk", "poor", "bad":
		return LabelBuruk, nil
	default:
		return "", fmt.Errorf("unknown air quality label %q", s)
	}
}

func (a AirQuality) Kind() AirQualityKind { return a.kind }

// Numeric returns the magnitude and true for the numeric arm.
func (a AirQuality) Numeric() (float64, bool) {
	return a.value, a.kind == AirQualityNumeric
}

// Label returns the label and true for the qualitative arm.
func (a AirQuality) Label() (QualitativeLabel, bool) {
	return a.label, a.kind == AirQualityQualitative
}

func (a AirQuality) IsZero() bool { return a.kind == "" }

func (a AirQuality) Validate() error {
	switch a.kind {
	case AirQualityNumeric:
		if !isFinite(a.value) {
			return fmt.Errorf("air quality %v is not a finite number", a.value)
		}
		return nil
	case AirQualityQualitative:
		if a.label != LabelBaik && a.label != LabelBuruk {
			return fmt.Errorf("unknown air quality label %q", a.label)
		}
		return nil
	default:
		return errMissingAirQuality
	}
}

func (a AirQuality) String() string {
	switch a.kind {
	case AirQualityNumeric:
		return fmt.Sprintf("%g", a.value)
	case AirQualityQualitative:
		return string(a.label)
	default:
		return ""
	}
}

type airQualityJSON struct {
	Kind  AirQualityKind   `json:"kind"`
	Value *float64         `json:"value,omitempty"`
	Label QualitativeLabel `json:"label,omitempty"`
}

func (a AirQuality) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AirQualityNumeric:
		v := a.value
		return json.Marshal(airQualityJSON{Kind: a.kind, Value: &v})
	case AirQualityQualitative:
		return json.Marshal(airQualityJSON{Kind: a.kind, Label: a.label})
	default:
		return []byte("null"), nil
	}
}

func (a *AirQuality) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = AirQuality{}
		return nil
	}
	var raw airQualityJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case AirQualityNumeric:
		if raw.Value == nil {
			return errors.New("numeric air quality without value")
		}
		*a = NumericAirQuality(*raw.Value)
	case AirQualityQualitative:
		l, err := ParseLabel(string(raw.Label))
		if err != nil {
			return err
		}
		*a = QualitativeAirQuality(l)
	default:
		return fmt.Errorf("unknown air quality kind %q", raw.Kind)
	}
	return a.Validate()
}
