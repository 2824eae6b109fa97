// Package content holds the flavor material merged into command responses:
// stakeholder pressure messages, team messages, random background events,
// achievements and the training assistant.
package content

import (
	"math"

	"github.com/invisible-tech/incident-sim/internal/types"
)

// PressureMessage is a stakeholder message that fires at a simulation time.
type PressureMessage struct {
	Sender      string         `json:"sender"`
	Message     string         `json:"message"`
	Urgency     types.Severity `json:"urgency"`
	TriggerTime float64        `json:"trigger_time"`
}

var pressureMessages = []PressureMessage{
	{Sender: "CEO", Message: "What's the status? We have a board meeting in an hour!", Urgency: types.SeverityHigh, TriggerTime: 5},
	{Sender: "CISO", Message: "Have you scoped the breach yet? I need a report right now.", Urgency: types.SeverityHigh, TriggerTime: 3},
	{Sender: "Legal Team", Message: "Was customer data leaked? We must notify within 72 hours!", Urgency: types.SeverityCritical, TriggerTime: 7},
	{Sender: "VP Engineering", Message: "The team keeps asking when they can get back to work. Productivity has stopped!", Urgency: types.SeverityMedium, TriggerTime: 10},
	{Sender: "PR Team", Message: "The press has started asking questions. What's our statement?", Urgency: types.SeverityHigh, TriggerTime: 12},
	{Sender: "Customer Support", Message: "Customers are complaining they can't reach our services. What do we tell them?", Urgency: types.SeverityHigh, TriggerTime: 8},
}

// PressureAt returns the first message whose trigger time is within half a
// minute of simTime.
func PressureAt(simTime float64) (PressureMessage, bool) {
	for _, m := range pressureMessages {
		if math.Abs(simTime-m.TriggerTime) < 0.5 {
			return m, true
		}
	}
	return PressureMessage{}, false
}

// PressureMessages returns a copy of all pressure messages.
func PressureMessages() []PressureMessage {
	out := make([]PressureMessage, len(pressureMessages))
	copy(out, pressureMessages)
	return out
}

// Achievement is a badge awarded for a metric threshold.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

type achievementRule struct {
	Achievement
	earned func(metrics map[string]float64, commands int) bool
}

var achievementRules = []achievementRule{
	{
		Achievement: Achievement{ID: "speed_demon", Title: "Lightning Fast", Description: "Blazing fast response!", Points: 50},
		earned: func(m map[string]float64, commands int) bool {
			return commands >= 5 && m[types.MetricResponseTime] > 90
		},
	},
	{
		Achievement: Achievement{ID: "sharpshooter", Title: "Sharpshooter", Description: "Response accuracy of 95% or better", Points: 75},
		earned: func(m map[string]float64, _ int) bool {
			return m[types.MetricResponseAccuracy] >= 95
		},
	},
	{
		Achievement: Achievement{ID: "evidence_master", Title: "Evidence Master", Description: "Excellent preservation of forensic evidence", Points: 60},
		earned: func(m map[string]float64, _ int) bool {
			return m[types.MetricForensicPreservation] >= 90
		},
	},
	{
		Achievement: Achievement{ID: "risk_ninja", Title: "Risk Ninja", Description: "Masterful risk management", Points: 70},
		earned: func(m map[string]float64, _ int) bool {
			return m[types.MetricRiskManagement] >= 90
		},
	},
}

// Achievements returns every achievement earned for the given metrics and
// number of executed commands.
func Achievements(metrics map[string]float64, commands int) []Achievement {
	var out []Achievement
	for _, r := range achievementRules {
		if r.earned(metrics, commands) {
			out = append(out, r.Achievement)
		}
	}
	return out
}
