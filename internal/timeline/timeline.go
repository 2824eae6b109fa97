// Package timeline keeps the append-only audit log of what happened during
// a simulation session.
package timeline

import (
	"maps"
	"sort"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	"github.com/invisible-tech/incident-sim/internal/types"
)

// EventType is the kind of a timeline entry.
type EventType string

const (
	EventCommand  EventType = "command"
	EventAlert    EventType = "alert"
	EventAttacker EventType = "attacker"
	EventSystem   EventType = "system"
	EventMessage  EventType = "message"
)

var criticalSeverities = sets.New(types.SeverityCritical, types.SeverityHigh)

// Event is one timeline entry. Entries are never modified after Add.
type Event struct {
	ID          int            `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        EventType      `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    types.Severity `json:"severity"`
	Metadata    map[string]any `json:"metadata"`
}

func (e Event) clone() Event {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

// Manager is the log for one session. It is not safe for concurrent use.
type Manager struct {
	clock  clock.PassiveClock
	events []Event
}

// New creates an empty timeline stamped by clk. A nil clk uses the real clock.
func New(clk clock.PassiveClock) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{clock: clk}
}

// Add appends an event and returns it. An empty severity is recorded as info.
func (m *Manager) Add(typ EventType, title, description string, severity types.Severity, metadata map[string]any) Event {
	if severity == "" {
		severity = types.SeverityInfo
	}
	md := maps.Clone(metadata)
	if md == nil {
		md = map[string]any{}
	}
	ev := Event{
		ID:          len(m.events),
		Timestamp:   m.clock.Now(),
		Type:        typ,
		Title:       title,
		Description: description,
		Severity:    severity,
		Metadata:    md,
	}
	m.events = append(m.events, ev)
	return ev.clone()
}

// Len returns the number of events.
func (m *Manager) Len() int {
	return len(m.events)
}

// Timeline returns every event, most recent first. Events with the same
// timestamp are ordered by descending sequence ID.
func (m *Manager) Timeline() []Event {
	out := make([]Event, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Recent returns at most n events, most recent first. n <= 0 returns all.
func (m *Manager) Recent(n int) []Event {
	all := m.Timeline()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[:n]
}

// ByType returns the events of type typ in insertion order.
func (m *Manager) ByType(typ EventType) []Event {
	var out []Event
	for _, ev := range m.events {
		if ev.Type == typ {
			out = append(out, ev.clone())
		}
	}
	return out
}

// Critical returns the critical and high severity events in insertion order.
func (m *Manager) Critical() []Event {
	var out []Event
	for _, ev := range m.events {
		if criticalSeverities.Has(ev.Severity) {
			out = append(out, ev.clone())
		}
	}
	return out
}
