// Package insight turns a Sample into one advisory message.
package insight

import (
	"fmt"

	"smart_environment/internal/models"
)

// Thresholds tune the classification rules. Comparisons are strict.
type Thresholds struct {
	HeatC      float64                   `mapstructure:"heat_c"`
	ColdC      float64                   `mapstructure:"cold_c"`
	PoorAQI    float64                   `mapstructure:"poor_aqi"`
	DryPct     float64                   `mapstructure:"dry_pct"`
	HumidPct   float64                   `mapstructure:"humid_pct"`
	PoorLabels []models.QualitativeLabel `mapstructure:"poor_labels"`
	// Messages overrides the default text per insight code.
	Messages map[string]string `mapstructure:"messages"`
}

// DefaultThresholds returns the values most dashboard variants used.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeatC:      32,
		ColdC:      20,
		PoorAQI:    100,
		DryPct:     40,
		HumidPct:   80,
		PoorLabels: []models.QualitativeLabel{models.LabelBuruk},
	}
}

// NormalizePoorLabels maps each configured label onto its canonical form
// ("poor" and "buruk" both become Buruk) and drops repeats.
func (th *Thresholds) NormalizePoorLabels() error {
	seen := make(map[models.QualitativeLabel]struct{}, len(th.PoorLabels))
	out := make([]models.QualitativeLabel, 0, len(th.PoorLabels))
	for _, raw := range th.PoorLabels {
		l, err := models.ParseLabel(string(raw))
		if err != nil {
			return fmt.Errorf("poor_labels: %w", err)
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	th.PoorLabels = out
	return nil
}

var defaultMessages = map[models.InsightCode]string{
	models.InsightCombinedHazard: "Hot and unhealthy air. Close the windows and turn on ventilation.",
	models.InsightHeat:           "High temperature. Stay hydrated and avoid direct sun.",
	models.InsightCold:           "Cold weather. Wear warm clothing.",
	models.InsightPoorAir:        "Poor air quality. Limit outdoor activity and consider a mask.",
	models.InsightDry:            "Dry air. Consider using a humidifier.",
	models.InsightHumid:          "Very humid air. Improve ventilation to prevent mould.",
	models.InsightNormal:         "Environmental conditions are normal and comfortable.",
}

// Classifier evaluates the rules in a fixed order; the first match wins.
type Classifier struct {
	th       Thresholds
	poor     map[models.QualitativeLabel]struct{}
	messages map[models.InsightCode]string
}

// NewClassifier canonicalizes PoorLabels the way providers canonicalize
// readings; labels that do not parse are ignored.
func NewClassifier(th Thresholds) *Classifier {
	c := &Classifier{
		th:       th,
		poor:     make(map[models.QualitativeLabel]struct{}, len(th.PoorLabels)),
		messages: make(map[models.InsightCode]string, len(defaultMessages)),
	}
	for _, raw := range th.PoorLabels {
		if l, err := models.ParseLabel(string(raw)); err == nil {
			c.poor[l] = struct{}{}
		}
	}
	for code, msg := range defaultMessages {
		c.messages[code] = msg
	}
	for code, msg := range th.Messages {
		if msg != "" {
			c.messages[models.InsightCode(code)] = msg
		}
	}
	return c
}

// Classify never fails: every sample maps to exactly one insight.
func (c *Classifier) Classify(s models.Sample) models.Insight {
	hot := s.TemperatureC > c.th.HeatC
	poorAir := c.isPoorAir(s.AirQuality)

	switch {
	case hot && poorAir:
		return c.insight(models.InsightCombinedHazard, models.LevelWarning, true)
	case hot:
		return c.insight(models.InsightHeat, models.LevelAdvisory, false)
	case s.TemperatureC < c.th.ColdC:
		return c.insight(models.InsightCold, models.LevelAdvisory, false)
	case poorAir:
		return c.insight(models.InsightPoorAir, models.LevelAdvisory, true)
	case s.HumidityPct < c.th.DryPct:
		return c.insight(models.InsightDry, models.LevelAdvisory, false)
	case s.HumidityPct > c.th.HumidPct:
		return c.insight(models.InsightHumid, models.LevelAdvisory, false)
	default:
		return c.insight(models.InsightNormal, models.LevelInfo, false)
	}
}

func (c *Classifier) isPoorAir(aq models.AirQuality) bool {
	if v, ok := aq.Numeric(); ok {
		return v > c.th.PoorAQI
	}
	if l, ok := aq.Label(); ok {
		_, poor := c.poor[l]
		return poor
	}
	return false
}

func (c *Classifier) insight(code models.InsightCode, level models.InsightLevel, alert bool) models.Insight {
	return models.Insight{Code: code, Level: level, Message: c.messages[code], Alert: alert}
}
