package engine

import (
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/invisible-tech/incident-sim/internal/catalog"
	"github.com/invisible-tech/incident-sim/internal/types"
)

// fixedRand returns the same draw forever.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

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

var testStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine(r Rand) (*Engine, *testingclock.FakePassiveClock) {
	clk := testingclock.NewFakePassiveClock(testStart)
	return New(Config{Rand: r, Clock: clk}, logrus.New()), clk
}

func newTestSession() *types.Session {
	return types.NewSession("scn-test", "trainee", testStart)
}

func countAlerts(alerts []*types.Alert, title string) int {
	n := 0
	for _, a := range alerts {
		if a.Title == title {
			n++
		}
	}
	return n
}

func TestExecute_UnknownCommand(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0.99))
	s := newTestSession()
	before := s.MetricsSnapshot()

	resp := e.Execute(s, "format_c_drive", map[string]any{"x": 1})

	if resp.Success {
		t.Error("unknown command should not succeed")
	}
	if !strings.Contains(resp.Message, "Unknown command") {
		t.Errorf("Message = %q", resp.Message)
	}
	if s.SimulationTime != 0 || len(s.CommandsHistory) != 0 || len(s.Alerts) != 0 {
		t.Errorf("state changed: time=%v history=%d alerts=%d", s.SimulationTime, len(s.CommandsHistory), len(s.Alerts))
	}
	if s.StressLevel != types.DefaultStressLevel {
		t.Errorf("StressLevel = %v", s.StressLevel)
	}
	for k, v := range before {
		if s.Metrics[k] != v {
			t.Errorf("metric %s changed: %v -> %v", k, v, s.Metrics[k])
		}
	}
	if s.AttackerState.Progress != 0 || len(s.AttackerActions) != 0 {
		t.Errorf("attacker moved on unknown command: %+v", s.AttackerState)
	}
}

func TestExecute_IsolateNetworkDuringLateralMovement(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()
	s.AttackerState.CurrentPhase = types.PhaseLateralMovement
	before := s.MetricsSnapshot()
	continuity := s.SystemState.BusinessContinuityScore

	resp := e.Execute(s, catalog.IsolateNetwork, map[string]any{"segment": "production"})

	if !resp.Success {
		t.Fatalf("isolate_network failed: %q", resp.Message)
	}
	if !strings.Contains(resp.Message, "isolated successfully") || !strings.Contains(resp.Message, "lateral movement blocked") {
		t.Errorf("Message = %q", resp.Message)
	}
	if !s.SystemState.NetworkSegmentIsolated["production"] {
		t.Error("production segment should be isolated")
	}
	found := false
	for _, p := range s.AttackerState.BlockedPaths {
		if p == PathNetworkLateral {
			found = true
		}
	}
	if !found {
		t.Errorf("BlockedPaths = %v, want %q", s.AttackerState.BlockedPaths, PathNetworkLateral)
	}
	if got := continuity - s.SystemState.BusinessContinuityScore; got != 15.0 {
		t.Errorf("continuity dropped by %v, want 15", got)
	}
	if got := resp.Metrics[types.MetricResponseAccuracy] - before[types.MetricResponseAccuracy]; got != 5 {
		t.Errorf("responseAccuracy delta = %v, want 5", got)
	}
	if got := resp.Metrics[types.MetricRiskManagement] - before[types.MetricRiskManagement]; got != 8 {
		t.Errorf("riskManagement delta = %v, want 8", got)
	}
	if s.SimulationTime != 2.0 {
		t.Errorf("SimulationTime = %v, want 2", s.SimulationTime)
	}
}

func TestExecute_IsolateNetworkOutsideLateralMovement(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()

	resp := e.Execute(s, catalog.IsolateNetwork, nil)

	if strings.Contains(resp.Message, "blocked") {
		t.Errorf("Message = %q, should not mention blocking", resp.Message)
	}
	if len(s.AttackerState.BlockedPaths) != 0 {
		t.Errorf("BlockedPaths = %v", s.AttackerState.BlockedPaths)
	}
	if !s.SystemState.NetworkSegmentIsolated[types.SegmentProduction] {
		t.Error("missing segment should default to production")
	}
}

func TestExecute_IsolateHostTwice(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()
	before := s.MetricsSnapshot()

	e.Execute(s, catalog.IsolateHost, map[string]any{"hostname": "h"})
	e.Execute(s, catalog.IsolateHost, map[string]any{"hostname": "h"})

	if len(s.SystemState.IsolatedHosts) != 1 || s.SystemState.IsolatedHosts[0] != "h" {
		t.Errorf("IsolatedHosts = %v, want [h]", s.SystemState.IsolatedHosts)
	}
	if got := s.Metrics[types.MetricResponseAccuracy] - before[types.MetricResponseAccuracy]; got != 14 {
		t.Errorf("responseAccuracy delta = %v, want 14", got)
	}
	if got := s.Metrics[types.MetricRiskManagement] - before[types.MetricRiskManagement]; got != 20 {
		t.Errorf("riskManagement delta = %v, want 20", got)
	}
	if s.SystemState.BusinessContinuityScore != 80 {
		t.Errorf("continuity = %v, want 80", s.SystemState.BusinessContinuityScore)
	}
	if len(s.CommandsHistory) != 2 {
		t.Errorf("history = %d, want 2", len(s.CommandsHistory))
	}
}

func TestExecute_IsolateCompromisedHost(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()
	s.SystemState.Compromise("web-01")
	s.AttackerState.Progress = 50

	resp := e.Execute(s, catalog.IsolateHost, map[string]any{"hostname": "web-01"})

	if s.AttackerState.Progress != 30 {
		t.Errorf("Progress = %v, want 30", s.AttackerState.Progress)
	}
	if !strings.Contains(resp.Message, "foothold eliminated") {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestExecute_DisableAccount(t *testing.T) {
	tests := []struct {
		user    string
		blocked bool
	}{
		{"svc-Attacker-01", true},
		{"ATTACKER", true},
		{"admin-backup", true},
		{"Admin-Backup", false},
		{"bob", false},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			e, _ := newTestEngine(fixedRand(0))
			s := newTestSession()
			s.AttackerState.Progress = 40

			e.Execute(s, catalog.DisableAccount, map[string]any{"username": tt.user})

			if len(s.SystemState.DisabledAccounts) != 1 {
				t.Errorf("DisabledAccounts = %v", s.SystemState.DisabledAccounts)
			}
			gotBlocked := len(s.AttackerState.BlockedPaths) == 1 && s.AttackerState.BlockedPaths[0] == PathIAMAccess
			if gotBlocked != tt.blocked {
				t.Errorf("blocked = %v, want %v (paths %v)", gotBlocked, tt.blocked, s.AttackerState.BlockedPaths)
			}
			wantProgress := 40.0
			if tt.blocked {
				wantProgress = 10
			}
			if s.AttackerState.Progress != wantProgress {
				t.Errorf("Progress = %v, want %v", s.AttackerState.Progress, wantProgress)
			}
		})
	}
}

func TestExecute_SecureBucketDuringExfiltration(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()
	s.AttackerState.CurrentPhase = types.PhaseDataExfiltration
	s.StressLevel = 3

	resp := e.Execute(s, catalog.SecureS3Bucket, map[string]any{"bucket_name": "prod-data-backup"})

	if !s.SystemState.DataLossPrevented {
		t.Error("DataLossPrevented should be set")
	}
	if !strings.Contains(resp.Message, "prevented") {
		t.Errorf("Message = %q", resp.Message)
	}
	if s.StressLevel != 0 {
		t.Errorf("StressLevel = %v, want floor 0", s.StressLevel)
	}
}

func TestExecute_ScanForMalwareDetectionBand(t *testing.T) {
	tests := []struct {
		draw   float64
		detect bool
	}{
		{0.0, false},
		{0.29, false},
		{0.3, false},
		{math.Nextafter(0.3, 1), true},
		{0.31, true},
		{0.99, true},
	}
	for _, tt := range tests {
		e, _ := newTestEngine(&seqRand{draws: []float64{tt.draw, 0}})
		s := newTestSession()

		resp := e.Execute(s, catalog.ScanForMalware, map[string]any{"target": "web-01"})

		got := countAlerts(resp.NewAlerts, "Malware Detected")
		if tt.detect && got != 1 {
			t.Errorf("draw %v: want 1 Malware Detected alert, got %d", tt.draw, got)
		}
		if !tt.detect && got != 0 {
			t.Errorf("draw %v: want no Malware Detected alert, got %d", tt.draw, got)
		}
		if s.SystemState.MalwareContained != tt.detect {
			t.Errorf("draw %v: MalwareContained = %v", tt.draw, s.SystemState.MalwareContained)
		}
		if tt.detect && resp.NewAlerts[0].Severity != types.SeverityCritical {
			t.Errorf("draw %v: severity = %q", tt.draw, resp.NewAlerts[0].Severity)
		}
	}
}

func TestExecute_InvestigationNeedsBrokenStealth(t *testing.T) {
	for _, cmd := range []string{catalog.QueryLogs, catalog.CheckIAMActivity, catalog.AnalyzeNetworkTraffic} {
		t.Run(cmd, func(t *testing.T) {
			e, _ := newTestEngine(&seqRand{draws: []float64{0.9, 0}})
			s := newTestSession()
			resp := e.Execute(s, cmd, nil)
			if n := countAlerts(resp.NewAlerts, "Suspicious Activity Detected"); n != 0 {
				t.Errorf("stealthy attacker: got %d alerts", n)
			}
			if s.Metrics[types.MetricDecisionQuality] != 81 {
				t.Errorf("decisionQuality = %v, want 81", s.Metrics[types.MetricDecisionQuality])
			}

			e, _ = newTestEngine(&seqRand{draws: []float64{0.9, 0}})
			s = newTestSession()
			s.AttackerState.StealthMode = false
			resp = e.Execute(s, cmd, nil)
			if n := countAlerts(resp.NewAlerts, "Suspicious Activity Detected"); n != 1 {
				t.Errorf("exposed attacker: got %d alerts, want 1", n)
			}

			e, _ = newTestEngine(&seqRand{draws: []float64{0.4, 0}})
			s = newTestSession()
			s.AttackerState.StealthMode = false
			resp = e.Execute(s, cmd, nil)
			if n := countAlerts(resp.NewAlerts, "Suspicious Activity Detected"); n != 0 {
				t.Errorf("losing draw: got %d alerts", n)
			}
		})
	}
}

func TestExecute_RecordsCatalogCostAndClock(t *testing.T) {
	e, clk := newTestEngine(fixedRand(0))
	s := newTestSession()
	clk.SetTime(testStart.Add(90 * time.Second))
	params := map[string]any{"ip": "45.123.45.67"}

	e.Execute(s, catalog.BlockIP, params)
	params["ip"] = "mutated"

	if len(s.CommandsHistory) != 1 {
		t.Fatalf("history = %d", len(s.CommandsHistory))
	}
	rec := s.CommandsHistory[0]
	if rec.Command != catalog.BlockIP || rec.Cost != 2.0 || rec.TimeRequired != 0.5 {
		t.Errorf("record = %+v", rec)
	}
	if !rec.Timestamp.Equal(testStart.Add(90 * time.Second)) {
		t.Errorf("Timestamp = %v", rec.Timestamp)
	}
	if rec.Parameters["ip"] != "45.123.45.67" {
		t.Errorf("recorded parameters alias the caller's map: %v", rec.Parameters)
	}
}

func TestExecute_StressCeiling(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()
	s.StressLevel = 99

	e.Execute(s, catalog.TerminateProcess, nil)

	if s.StressLevel != 100 {
		t.Errorf("StressLevel = %v, want 100", s.StressLevel)
	}
}

func TestExecute_MetricsAndContinuityAreUnclamped(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()

	for i := 0; i < 10; i++ {
		e.Execute(s, catalog.EnforceMFA, nil)
	}
	if got := s.Metrics[types.MetricRiskManagement]; got != 215 {
		t.Errorf("riskManagement = %v, want 215 (no upper clamp)", got)
	}
	for i := 0; i < 8; i++ {
		e.Execute(s, catalog.IsolateNetwork, map[string]any{"segment": "staging"})
	}
	if got := s.SystemState.BusinessContinuityScore; got != -20 {
		t.Errorf("continuity = %v, want -20 (no lower clamp)", got)
	}
	if len(s.AttackerState.BlockedPaths) != 1 {
		t.Errorf("repeated enforce_mfa should block credential_reuse once, got %v", s.AttackerState.BlockedPaths)
	}
}

func TestExecute_NewAlertsAppendToSession(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()

	resp := e.Execute(s, catalog.EnforceMFA, nil)

	if len(resp.NewAlerts) != 1 || resp.NewAlerts[0].Title != "Attacker Activity Detected" {
		t.Fatalf("NewAlerts = %+v", resp.NewAlerts)
	}
	if len(s.Alerts) != 1 || s.Alerts[0].ID != resp.NewAlerts[0].ID {
		t.Errorf("session alerts = %+v", s.Alerts)
	}
}

func TestExecute_ResponseIsSnapshot(t *testing.T) {
	e, _ := newTestEngine(fixedRand(0))
	s := newTestSession()

	resp := e.Execute(s, catalog.IsolateHost, map[string]any{"hostname": "a"})
	e.Execute(s, catalog.IsolateHost, map[string]any{"hostname": "b"})

	if len(resp.SystemState.IsolatedHosts) != 1 {
		t.Errorf("earlier response saw later mutation: %v", resp.SystemState.IsolatedHosts)
	}
	if resp.Metrics[types.MetricResponseAccuracy] == s.Metrics[types.MetricResponseAccuracy] {
		t.Error("response metrics should not track the live session")
	}
}

func TestExecute_TimeMonotonicAndStressBounded(t *testing.T) {
	e, _ := newTestEngine(NewRand(7))
	s := newTestSession()
	names := []string{"unknown_cmd"}
	for _, d := range catalog.Default().List() {
		names = append(names, d.Name)
	}
	pick := rand.New(rand.NewSource(11))

	prev := s.SimulationTime
	for i := 0; i < 2000; i++ {
		name := names[pick.Intn(len(names))]
		params := map[string]any{"hostname": "web-01", "username": "attacker", "segment": "admin"}
		resp := e.Execute(s, name, params)
		if resp.SimulationTime < prev {
			t.Fatalf("step %d (%s): simulation time went back %v -> %v", i, name, prev, resp.SimulationTime)
		}
		prev = resp.SimulationTime
		if s.StressLevel < 0 || s.StressLevel > 100 {
			t.Fatalf("step %d (%s): stress %v out of [0,100]", i, name, s.StressLevel)
		}
	}
}
