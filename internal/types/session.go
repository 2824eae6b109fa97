// Package types defines the simulation state model: the defended system,
// the attacker, alerts, command records and the session that aggregates them.
package types

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrSessionFinalized is returned when a completed session is completed again.
var ErrSessionFinalized = errors.New("session already finalized")

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Score channels tracked in Session.Metrics.
const (
	MetricResponseAccuracy     = "responseAccuracy"
	MetricResponseTime         = "responseTime"
	MetricDecisionQuality      = "decisionQuality"
	MetricRiskManagement       = "riskManagement"
	MetricBusinessContinuity   = "businessContinuity"
	MetricCommunication        = "communication"
	MetricForensicPreservation = "forensicPreservation"
)

// MetricChannels lists the seven score channels in display order.
var MetricChannels = []string{
	MetricResponseAccuracy,
	MetricResponseTime,
	MetricDecisionQuality,
	MetricRiskManagement,
	MetricBusinessContinuity,
	MetricCommunication,
	MetricForensicPreservation,
}

// DefaultMetrics returns the starting value of every score channel.
func DefaultMetrics() map[string]float64 {
	return map[string]float64{
		MetricResponseAccuracy:     95,
		MetricResponseTime:         82,
		MetricDecisionQuality:      78,
		MetricRiskManagement:       65,
		MetricBusinessContinuity:   80,
		MetricCommunication:        75,
		MetricForensicPreservation: 70,
	}
}

// DefaultStressLevel is the stress a defender starts a session with.
const DefaultStressLevel = 20.0

// Command is an immutable audit record of one executed command.
type Command struct {
	Command      string         `json:"command"`
	Parameters   map[string]any `json:"parameters"`
	Timestamp    time.Time      `json:"timestamp"`
	Cost         float64        `json:"cost"`
	TimeRequired float64        `json:"time_required"`
}

// AttackerAction is an audit entry for something the attacker did.
type AttackerAction struct {
	Time        float64 `json:"time"`
	Action      string  `json:"action"`
	TriggeredBy string  `json:"triggered_by"`
}

// Session aggregates all state of one training run.
//
// Alerts, CommandsHistory and AttackerActions are append-only.
// SimulationTime is in minutes and never decreases.
type Session struct {
	ID         string `json:"id"`
	ScenarioID string `json:"scenario_id"`
	UserID     string `json:"user_id"`

	Status    Status     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	SystemState   SystemState   `json:"system_state"`
	AttackerState AttackerState `json:"attacker_state"`

	SimulationTime float64 `json:"simulation_time"`
	StressLevel    float64 `json:"stress_level"`

	Alerts          []*Alert         `json:"alerts"`
	CommandsHistory []Command        `json:"commands_history"`
	AttackerActions []AttackerAction `json:"attacker_actions"`

	Metrics map[string]float64 `json:"metrics"`

	FinalScore *float64 `json:"final_score,omitempty"`
	EndingType *string  `json:"ending_type,omitempty"`
}

// NewSession creates an active session for scenarioID started at now.
func NewSession(scenarioID, userID string, now time.Time) *Session {
	if userID == "" {
		userID = "guest"
	}
	return &Session{
		ID:              uuid.NewString(),
		ScenarioID:      scenarioID,
		UserID:          userID,
		Status:          StatusActive,
		StartTime:       now,
		SystemState:     NewSystemState(),
		AttackerState:   NewAttackerState(),
		StressLevel:     DefaultStressLevel,
		Alerts:          []*Alert{},
		CommandsHistory: []Command{},
		AttackerActions: []AttackerAction{},
		Metrics:         DefaultMetrics(),
	}
}

// Elapsed returns the seconds between session start and t.
func (s *Session) Elapsed(t time.Time) float64 {
	return t.Sub(s.StartTime).Seconds()
}

// MetricsSnapshot returns a copy of the score channels.
func (s *Session) MetricsSnapshot() map[string]float64 {
	return maps.Clone(s.Metrics)
}

// Complete finalizes the session with the evaluation result. Final score,
// ending and attacker detection/containment times are written once; a second
// call returns ErrSessionFinalized and changes nothing.
func (s *Session) Complete(result *EvaluationResult, now time.Time) error {
	if s.FinalScore != nil || s.EndingType != nil {
		return ErrSessionFinalized
	}
	score := result.FinalScore
	ending := result.EndingType
	s.FinalScore = &score
	s.EndingType = &ending
	s.Status = StatusCompleted
	s.EndTime = &now
	if s.AttackerState.TimeToDetection == nil && result.TimeToDetection != nil {
		v := *result.TimeToDetection
		s.AttackerState.TimeToDetection = &v
	}
	if s.AttackerState.TimeToContainment == nil && result.TimeToContainment != nil {
		v := *result.TimeToContainment
		s.AttackerState.TimeToContainment = &v
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	out := *s
	out.SystemState = s.SystemState.Clone()
	out.AttackerState = s.AttackerState.Clone()
	out.Alerts = make([]*Alert, len(s.Alerts))
	for i, a := range s.Alerts {
		out.Alerts[i] = a.Clone()
	}
	out.CommandsHistory = make([]Command, len(s.CommandsHistory))
	for i, c := range s.CommandsHistory {
		c.Parameters = maps.Clone(c.Parameters)
		out.CommandsHistory[i] = c
	}
	out.AttackerActions = slices.Clone(s.AttackerActions)
	out.Metrics = maps.Clone(s.Metrics)
	if s.EndTime != nil {
		v := *s.EndTime
		out.EndTime = &v
	}
	if s.FinalScore != nil {
		v := *s.FinalScore
		out.FinalScore = &v
	}
	if s.EndingType != nil {
		v := *s.EndingType
		out.EndingType = &v
	}
	return &out
}

// Normalize repairs a session decoded from partial JSON: nil collections
// become empty, missing score channels take their defaults and nil alerts
// are dropped.
func (s *Session) Normalize() {
	s.SystemState.Normalize()
	s.AttackerState.Normalize()
	s.Alerts = slices.DeleteFunc(s.Alerts, func(a *Alert) bool { return a == nil })
	if s.Alerts == nil {
		s.Alerts = []*Alert{}
	}
	if s.CommandsHistory == nil {
		s.CommandsHistory = []Command{}
	}
	if s.AttackerActions == nil {
		s.AttackerActions = []AttackerAction{}
	}
	if s.Metrics == nil {
		s.Metrics = map[string]float64{}
	}
	for k, v := range DefaultMetrics() {
		if _, ok := s.Metrics[k]; !ok {
			s.Metrics[k] = v
		}
	}
}

// Finalized reports whether Complete has already run.
func (s *Session) Finalized() bool {
	return s.FinalScore != nil
}

// Response is the result of executing one command.
type Response struct {
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	SystemState    SystemState        `json:"system_state"`
	AttackerState  AttackerState      `json:"attacker_state"`
	NewAlerts      []*Alert           `json:"new_alerts"`
	StressLevel    float64            `json:"stress_level"`
	Metrics        map[string]float64 `json:"metrics"`
	SimulationTime float64            `json:"simulation_time"`
}

// NewResponse snapshots the session into a response.
func NewResponse(s *Session, success bool, message string, alerts []*Alert) *Response {
	if alerts == nil {
		alerts = []*Alert{}
	}
	return &Response{
		Success:        success,
		Message:        message,
		SystemState:    s.SystemState.Clone(),
		AttackerState:  s.AttackerState.Clone(),
		NewAlerts:      slices.Clone(alerts),
		StressLevel:    s.StressLevel,
		Metrics:        s.MetricsSnapshot(),
		SimulationTime: s.SimulationTime,
	}
}

// EvaluationResult is the scored debrief of a finished session.
type EvaluationResult struct {
	SessionID                string             `json:"session_id"`
	FinalScore               float64            `json:"final_score"`
	Grade                    string             `json:"grade"`
	EndingType               string             `json:"ending_type"`
	EndingDescription        string             `json:"ending_description"`
	Metrics                  map[string]float64 `json:"metrics"`
	AttackerInteractionScore float64            `json:"attacker_interaction_score"`
	StressManagementScore    float64            `json:"stress_management_score"`
	BusinessContinuityScore  float64            `json:"business_continuity_score"`
	Recommendations          []string           `json:"recommendations"`
	// Seconds from session start; nil when no qualifying command ran.
	TimeToDetection   *float64 `json:"time_to_detection"`
	TimeToContainment *float64 `json:"time_to_containment"`
}
