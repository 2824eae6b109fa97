package types

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Severity is the severity of an alert or timeline entry.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	// SeverityInfo is only used by timeline entries; alerts never carry it.
	SeverityInfo Severity = "info"
)

// Valid reports whether s is one of the four alert severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Alert is a security alert surfaced to the defender.
type Alert struct {
	ID              string    `json:"id" yaml:"id,omitempty"`
	Title           string    `json:"title" yaml:"title"`
	Description     string    `json:"description" yaml:"description"`
	Severity        Severity  `json:"severity" yaml:"severity"`
	Source          string    `json:"source" yaml:"source"`
	Timestamp       time.Time `json:"timestamp" yaml:"-"`
	Indicators      []string  `json:"indicators" yaml:"indicators,omitempty"`
	IsFalsePositive bool      `json:"is_false_positive" yaml:"is_false_positive,omitempty"`
	RelatedAlerts   []string  `json:"related_alerts" yaml:"related_alerts,omitempty"`
}

// Clone returns a deep copy of a.
func (a *Alert) Clone() *Alert {
	out := *a
	out.Indicators = slices.Clone(a.Indicators)
	out.RelatedAlerts = slices.Clone(a.RelatedAlerts)
	return &out
}

// NewAlert builds an alert with a fresh ID stamped at now.
func NewAlert(title, description string, severity Severity, source string, now time.Time, indicators ...string) *Alert {
	return &Alert{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   description,
		Severity:      severity,
		Source:        source,
		Timestamp:     now,
		Indicators:    indicators,
		RelatedAlerts: []string{},
	}
}
