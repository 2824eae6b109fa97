package content

import (
	"testing"

	"github.com/invisible-tech/incident-sim/internal/types"
)

func TestPressureAt(t *testing.T) {
	tests := []struct {
		simTime float64
		sender  string
	}{
		{0, ""},
		{2.4, ""},
		{2.6, "CISO"},
		{5, "CEO"},
		{5.49, "CEO"},
		{5.5, ""},
		{7.2, "Legal Team"},
		{8, "Customer Support"},
		{10, "VP Engineering"},
		{12.3, "PR Team"},
		{30, ""},
	}
	for _, tt := range tests {
		msg, ok := PressureAt(tt.simTime)
		if ok != (tt.sender != "") {
			t.Errorf("PressureAt(%v) ok = %v", tt.simTime, ok)
			continue
		}
		if msg.Sender != tt.sender {
			t.Errorf("PressureAt(%v) = %q, want %q", tt.simTime, msg.Sender, tt.sender)
		}
	}
}

func TestPressureMessagesCopy(t *testing.T) {
	msgs := PressureMessages()
	if len(msgs) != 6 {
		t.Fatalf("len = %d, want 6", len(msgs))
	}
	msgs[0].Sender = "changed"
	if m, _ := PressureAt(5); m.Sender != "CEO" {
		t.Errorf("PressureMessages exposed internal table")
	}
}

func TestAchievements(t *testing.T) {
	ids := func(as []Achievement) []string {
		var out []string
		for _, a := range as {
			out = append(out, a.ID)
		}
		return out
	}

	t.Run("defaults earn sharpshooter only", func(t *testing.T) {
		got := ids(Achievements(types.DefaultMetrics(), 10))
		if len(got) != 1 || got[0] != "sharpshooter" {
			t.Errorf("Achievements = %v", got)
		}
	})

	t.Run("all", func(t *testing.T) {
		m := map[string]float64{
			types.MetricResponseTime:         91,
			types.MetricResponseAccuracy:     95,
			types.MetricForensicPreservation: 90,
			types.MetricRiskManagement:       90,
		}
		got := ids(Achievements(m, 5))
		want := []string{"speed_demon", "sharpshooter", "evidence_master", "risk_ninja"}
		if len(got) != len(want) {
			t.Fatalf("Achievements = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Achievements[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("speed needs five commands", func(t *testing.T) {
		m := map[string]float64{types.MetricResponseTime: 99}
		if got := Achievements(m, 4); len(got) != 0 {
			t.Errorf("Achievements = %v, want none", ids(got))
		}
	})
}
