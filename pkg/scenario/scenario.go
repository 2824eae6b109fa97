// Package scenario defines training scenarios: the initial alerts and
// compromised hosts a session starts from, plus the attacker objectives
// shown in the briefing.
package scenario

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/invisible-tech/incident-sim/internal/types"
)

// DefaultID is the ID of the built-in scenario.
const DefaultID = "aws-cloud-breach"

// Difficulty levels.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Objective is one attacker goal tied to a kill-chain phase.
type Objective struct {
	Phase       types.Phase `json:"phase" yaml:"phase"`
	Description string      `json:"description" yaml:"description"`
}

// Scenario is a session template.
type Scenario struct {
	ID               string        `json:"id" yaml:"id"`
	Name             string        `json:"name" yaml:"name"`
	Description      string        `json:"description" yaml:"description"`
	Difficulty       string        `json:"difficulty" yaml:"difficulty"`
	Category         string        `json:"category" yaml:"category"`
	DurationMinutes  int           `json:"duration_minutes" yaml:"duration_minutes"`
	Tags             []string      `json:"tags" yaml:"tags"`
	Objectives       []Objective   `json:"attacker_objectives" yaml:"attacker_objectives"`
	InitialAlerts    []types.Alert `json:"initial_alerts" yaml:"initial_alerts"`
	CompromisedHosts []string      `json:"compromised_hosts" yaml:"compromised_hosts"`
	HiddenObjective  string        `json:"hidden_objective,omitempty" yaml:"hidden_objective"`
	SourceFile       string        `json:"-" yaml:"-"`
}

// Default returns the built-in AWS cloud breach scenario.
func Default() *Scenario {
	return &Scenario{
		ID:              DefaultID,
		Name:            "Advanced AWS environment breach",
		Description:     "A multi-stage APT campaign targeting the AWS cloud environment",
		Difficulty:      DifficultyAdvanced,
		Category:        "Cloud threats",
		DurationMinutes: 45,
		Tags:            []string{"APT", "Cloud", "AWS", "IAM"},
		Objectives: []Objective{
			{Phase: types.PhaseReconnaissance, Description: "Gather information about the infrastructure"},
			{Phase: types.PhaseInitialAccess, Description: "Initial access through a compromised IAM account"},
			{Phase: types.PhasePrivilegeEscalation, Description: "Escalate privileges to reach sensitive resources"},
			{Phase: types.PhaseLateralMovement, Description: "Move laterally between services"},
			{Phase: types.PhaseDataExfiltration, Description: "Steal data from S3"},
		},
		InitialAlerts: []types.Alert{
			{
				Title:       "Unusual IAM Activity",
				Description: "Multiple failed authentication attempts from unknown IP",
				Severity:    types.SeverityHigh,
				Source:      "CloudTrail",
				Indicators:  []string{"Unknown IP: 45.123.45.67", "15 failed attempts", "Off-hours activity"},
			},
			{
				Title:       "S3 Bucket Policy Modified",
				Description: "Suspicious modification to S3 bucket policy",
				Severity:    types.SeverityMedium,
				Source:      "CloudTrail",
				Indicators:  []string{"Bucket: prod-data-backup", "Policy: Public access enabled"},
			},
		},
		CompromisedHosts: []string{"web-prod-03"},
		HiddenObjective:  "Preserve complete forensic evidence while keeping business continuity at 85%",
	}
}

// Validate reports every problem with s at once.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if !slices.Contains([]string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}, s.Difficulty) {
		errs = append(errs, fmt.Errorf("unknown difficulty %q", s.Difficulty))
	}
	if s.DurationMinutes < 0 {
		errs = append(errs, fmt.Errorf("duration_minutes must not be negative"))
	}
	for i, o := range s.Objectives {
		if !o.Phase.Valid() {
			errs = append(errs, fmt.Errorf("attacker_objectives[%d]: unknown phase %q", i, o.Phase))
		}
	}
	for i, a := range s.InitialAlerts {
		if a.Title == "" {
			errs = append(errs, fmt.Errorf("initial_alerts[%d]: title is required", i))
		}
		if !a.Severity.Valid() {
			errs = append(errs, fmt.Errorf("initial_alerts[%d]: unknown severity %q", i, a.Severity))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// applyDefaults fills optional fields left empty in a scenario file.
func (s *Scenario) applyDefaults() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.DurationMinutes == 0 {
		s.DurationMinutes = 45
	}
}

// NewSession starts a session for userID from s. Initial alerts are copied
// with fresh IDs stamped at now.
func (s *Scenario) NewSession(userID string, now time.Time) *types.Session {
	sess := types.NewSession(s.ID, userID, now)
	for _, tmpl := range s.InitialAlerts {
		a := types.NewAlert(tmpl.Title, tmpl.Description, tmpl.Severity, tmpl.Source, now, slices.Clone(tmpl.Indicators)...)
		a.IsFalsePositive = tmpl.IsFalsePositive
		if len(tmpl.RelatedAlerts) > 0 {
			a.RelatedAlerts = slices.Clone(tmpl.RelatedAlerts)
		}
		sess.Alerts = append(sess.Alerts, a)
	}
	for _, h := range s.CompromisedHosts {
		sess.SystemState.Compromise(h)
	}
	return sess
}
