package content

import (
	"testing"
	"time"

	"github.com/invisible-tech/incident-sim/internal/types"
)

// seqRand replays draws in order and then repeats the last one.
type seqRand struct {
	draws []float64
	i     int
}

func (s *seqRand) Float64() float64 {
	v := s.draws[min(s.i, len(s.draws)-1)]
	s.i++
	return v
}

func TestDrawTeamMessage(t *testing.T) {
	tests := []struct {
		name   string
		draws  []float64
		sender string
	}{
		{"miss", []float64{0.3}, ""},
		{"first message", []float64{0.29, 0}, "SOC Analyst"},
		{"middle message", []float64{0, 0.5}, "Incident Response Lead"},
		{"last message", []float64{0, 0.9999}, "Security Manager"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := DrawTeamMessage(&seqRand{draws: tt.draws})
			if ok != (tt.sender != "") {
				t.Fatalf("ok = %v", ok)
			}
			if msg.Sender != tt.sender {
				t.Errorf("Sender = %q, want %q", msg.Sender, tt.sender)
			}
		})
	}
}

func TestDrawRandomEvent(t *testing.T) {
	tests := []struct {
		name  string
		draws []float64
		title string
		kind  RandomEventKind
	}{
		{"nothing fires", []float64{0.99}, "", ""},
		{"first event", []float64{0.1}, "New Suspicious Process Detected", RandomEventAlert},
		{"second event", []float64{0.5, 0.19}, "Unusual Network Traffic", RandomEventAlert},
		{"probability is exclusive", []float64{0.3, 0.2, 0.25, 0.15, 0.2}, "", ""},
		{"system event", []float64{0.9, 0.9, 0.9, 0.1}, "Automated backup", RandomEventSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := DrawRandomEvent(&seqRand{draws: tt.draws})
			if ok != (tt.title != "") {
				t.Fatalf("ok = %v", ok)
			}
			if ev.Title != tt.title || ev.Kind != tt.kind {
				t.Errorf("event = %+v, want %q/%q", ev, tt.title, tt.kind)
			}
		})
	}
}

func TestRandomEvent_Alert(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := randomEvents[1].Alert(now)
	if a.ID == "" || a.Source != RandomEventSource || !a.Timestamp.Equal(now) {
		t.Errorf("alert = %+v", a)
	}
	if a.Severity != types.SeverityCritical {
		t.Errorf("Severity = %q", a.Severity)
	}
	if len(a.Indicators) != 2 {
		t.Errorf("Indicators = %v", a.Indicators)
	}
}
