package content

import (
	"time"

	"github.com/invisible-tech/incident-sim/internal/engine"
	"github.com/invisible-tech/incident-sim/internal/types"
)

// TeamMessage is a note from a member of the response team.
type TeamMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

const teamMessageChance = 0.3

var teamMessages = []TeamMessage{
	{Sender: "SOC Analyst", Message: "Found more suspicious activity in the logs. Should I dig in?", Type: "question"},
	{Sender: "Network Engineer", Message: "Firewall shows an unusual spike in outbound connections.", Type: "info"},
	{Sender: "Incident Response Lead", Message: "Good, keep going this way. Don't forget to collect evidence.", Type: "feedback"},
	{Sender: "Forensics Specialist", Message: "Warning: logs are not preserved yet. We could lose key evidence!", Type: "warning"},
	{Sender: "Security Manager", Message: "Great call! That quick decision kept the attack from escalating.", Type: "praise"},
}

// DrawTeamMessage returns a team message 30% of the time. It draws once to
// decide and, on a hit, once more to pick the message.
func DrawTeamMessage(r engine.Rand) (TeamMessage, bool) {
	if r.Float64() >= teamMessageChance {
		return TeamMessage{}, false
	}
	i := min(int(r.Float64()*float64(len(teamMessages))), len(teamMessages)-1)
	return teamMessages[i], true
}

// RandomEventKind says whether a random event raises an alert or only
// reports an automated system action.
type RandomEventKind string

const (
	RandomEventAlert  RandomEventKind = "alert"
	RandomEventSystem RandomEventKind = "system"
)

// RandomEventSource is the alert source of random alerts.
const RandomEventSource = "Real-time Detection"

// RandomEvent is opportunistic background activity independent of the
// defender's command.
type RandomEvent struct {
	Kind        RandomEventKind `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    types.Severity  `json:"severity"`
	Positive    bool            `json:"positive"`
	Probability float64         `json:"probability"`
}

var randomEvents = []RandomEvent{
	{Kind: RandomEventAlert, Title: "New Suspicious Process Detected", Description: "Process 'svchost.exe' spawned from unusual location", Severity: types.SeverityHigh, Probability: 0.3},
	{Kind: RandomEventAlert, Title: "Unusual Network Traffic", Description: "Large data transfer detected to unknown IP", Severity: types.SeverityCritical, Probability: 0.2},
	{Kind: RandomEventAlert, Title: "Failed Login Attempts Surge", Description: "300+ failed login attempts in last 5 minutes", Severity: types.SeverityHigh, Probability: 0.25},
	{Kind: RandomEventSystem, Title: "Automated backup", Description: "Backup system automatically triggered", Severity: types.SeverityInfo, Positive: true, Probability: 0.15},
	{Kind: RandomEventSystem, Title: "EDR quarantine", Description: "EDR detected and quarantined malware sample", Severity: types.SeverityInfo, Positive: true, Probability: 0.2},
}

// DrawRandomEvent walks the event table in order, drawing once per event,
// and returns the first event whose draw falls under its probability.
func DrawRandomEvent(r engine.Rand) (RandomEvent, bool) {
	for _, ev := range randomEvents {
		if r.Float64() < ev.Probability {
			return ev, true
		}
	}
	return RandomEvent{}, false
}

// Alert converts an alert-kind event into a session alert stamped at now.
func (ev RandomEvent) Alert(now time.Time) *types.Alert {
	return types.NewAlert(ev.Title, ev.Description, ev.Severity, RandomEventSource, now, "Dynamic event", "Real-time")
}
