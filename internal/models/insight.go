package models

// InsightCode identifies which classification rule matched.
type InsightCode string

const (
	InsightCombinedHazard InsightCode = "combined_hazard"
	InsightHeat           InsightCode = "heat"
	InsightCold           InsightCode = "cold"
	InsightPoorAir        InsightCode = "poor_air"
	InsightDry            InsightCode = "dry"
	InsightHumid          InsightCode = "humid"
	InsightNormal         InsightCode = "normal"
)

// InsightLevel is the severity shown next to the message.
type InsightLevel string

const (
	LevelInfo     InsightLevel = "info"
	LevelAdvisory InsightLevel = "advisory"
	LevelWarning  InsightLevel = "warning"
)

// Insight is the advisory derived from one Sample.
type Insight struct {
	Code    InsightCode  `json:"code"`
	Level   InsightLevel `json:"level"`
	Message string       `json:"message"`
	Alert   bool         `json:"alert"` // presentation may play the alert sound
}
