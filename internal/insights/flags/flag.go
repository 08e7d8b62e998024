// Package flags turns computed metrics into severity-tagged flags and maps
// the fired flags to suggested next actions. Rules are independent: every
// matching rule emits its flag, in a fixed evaluation order.
package flags

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Severity grades a flag. Positive marks an opportunity rather than a risk.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityPositive Severity = "positive"
)

// Type identifies the rule that fired.
type Type string

const (
	NoContact           Type = "NO_CONTACT"
	LongPipeline        Type = "LONG_PIPELINE"
	HighValueStale      Type = "HIGH_VALUE_STALE"
	NoActivity          Type = "NO_ACTIVITY"
	HighProbability     Type = "HIGH_PROBABILITY"
	DecliningEngagement Type = "DECLINING_ENGAGEMENT"
	HighValueAtRisk     Type = "HIGH_VALUE_AT_RISK"
	StrongRelationship  Type = "STRONG_RELATIONSHIP"
)

// Flag is one qualitative signal.
type Flag struct {
	Type     Type     `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Icon     string   `json:"icon"`
}

var printer = message.NewPrinter(language.English)

// amount renders a currency value with thousands separators and no decimals.
func amount(v float64) string {
	return printer.Sprintf("%.0f", v)
}
