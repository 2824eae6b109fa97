package engine

import (
	"fmt"
	"strings"

	"github.com/invisible-tech/incident-sim/internal/catalog"
	"github.com/invisible-tech/incident-sim/internal/types"
)

// Blocked attack paths.
const (
	PathNetworkLateral   = "network_lateral"
	PathIAMAccess        = "iam_access"
	PathCredentialReuse  = "credential_reuse"
	PathS3Exfiltration   = "s3_exfiltration"
	PathDataExfiltration = "data_exfiltration"
)

const (
	malwareMiss       = 0.3
	investigationMiss = 0.5

	footholdSetback = 20.0
	accountSetback  = 30.0
)

// effect applies one command to the session and returns the player-facing
// message plus any alerts the command itself raised.
type effect func(s *types.Session, def catalog.Definition, params map[string]any) (string, []*types.Alert)

func (e *Engine) effectTable() map[string]effect {
	return map[string]effect{
		catalog.IsolateNetwork:        e.isolateNetwork,
		catalog.IsolateHost:           e.isolateHost,
		catalog.DisableAccount:        e.disableAccount,
		catalog.EnforceMFA:            e.enforceMFA,
		catalog.SecureS3Bucket:        e.secureBucket,
		catalog.EnableDLP:             e.enableDLP,
		catalog.CaptureMemoryDump:     e.captureMemoryDump,
		catalog.PreserveLogs:          e.preserveLogs,
		catalog.ScanForMalware:        e.scanForMalware,
		catalog.QueryLogs:             e.investigate,
		catalog.CheckIAMActivity:      e.investigate,
		catalog.AnalyzeNetworkTraffic: e.investigate,
	}
}

func (e *Engine) isolateNetwork(s *types.Session, def catalog.Definition, p map[string]any) (string, []*types.Alert) {
	segment := stringParam(p, "segment", types.SegmentProduction)
	s.SystemState.NetworkSegmentIsolated[segment] = true
	s.SystemState.BusinessContinuityScore -= def.Cost
	s.Metrics[types.MetricResponseAccuracy] += 5
	s.Metrics[types.MetricRiskManagement] += 8

	msg := fmt.Sprintf("Network segment '%s' isolated successfully", segment)
	if s.AttackerState.CurrentPhase == types.PhaseLateralMovement {
		s.AttackerState.Block(PathNetworkLateral)
		msg += " - Attacker's lateral movement blocked!"
	}
	return msg, nil
}

func (e *Engine) isolateHost(s *types.Session, def catalog.Definition, p map[string]any) (string, []*types.Alert) {
	host := stringParam(p, "hostname", "unknown")
	s.SystemState.IsolateHost(host)
	s.SystemState.BusinessContinuityScore -= def.Cost
	s.Metrics[types.MetricResponseAccuracy] += 7
	s.Metrics[types.MetricRiskManagement] += 10

	msg := fmt.Sprintf("Host '%s' isolated from network", host)
	if s.SystemState.IsCompromised(host) {
		s.AttackerState.Setback(footholdSetback)
		msg += " - Critical attacker foothold eliminated!"
	}
	return msg, nil
}

func (e *Engine) disableAccount(s *types.Session, _ catalog.Definition, p map[string]any) (string, []*types.Alert) {
	user := stringParam(p, "username", "unknown")
	s.SystemState.DisableAccount(user)
	s.Metrics[types.MetricResponseAccuracy] += 6

	msg := fmt.Sprintf("Account '%s' disabled", user)
	if attackerIdentity(user) {
		s.AttackerState.Block(PathIAMAccess)
		s.AttackerState.Setback(accountSetback)
		msg += " - Attacker's access revoked!"
	}
	return msg, nil
}

func (e *Engine) enforceMFA(s *types.Session, _ catalog.Definition, _ map[string]any) (string, []*types.Alert) {
	s.SystemState.MFAEnforced = true
	s.Metrics[types.MetricRiskManagement] += 15
	s.AttackerState.Block(PathCredentialReuse)
	return "MFA enforced across organization", nil
}

func (e *Engine) secureBucket(s *types.Session, _ catalog.Definition, p map[string]any) (string, []*types.Alert) {
	bucket := stringParam(p, "bucket_name", "unknown")
	s.SystemState.SecureBucket(bucket)
	s.Metrics[types.MetricRiskManagement] += 8

	msg := fmt.Sprintf("S3 bucket '%s' secured with strict policies", bucket)
	if s.AttackerState.CurrentPhase == types.PhaseDataExfiltration {
		s.SystemState.DataLossPrevented = true
		s.AttackerState.Block(PathS3Exfiltration)
		msg += " - Data exfiltration prevented!"
	}
	return msg, nil
}

func (e *Engine) enableDLP(s *types.Session, _ catalog.Definition, _ map[string]any) (string, []*types.Alert) {
	s.SystemState.DataLossPrevented = true
	s.Metrics[types.MetricRiskManagement] += 12
	s.AttackerState.Block(PathDataExfiltration)
	return "Data Loss Prevention enabled", nil
}

func (e *Engine) captureMemoryDump(s *types.Session, _ catalog.Definition, p map[string]any) (string, []*types.Alert) {
	host := stringParam(p, "hostname", "unknown")
	s.SystemState.MemoryDumpCaptured = true
	s.Metrics[types.MetricForensicPreservation] += 15
	return fmt.Sprintf("Memory dump captured from '%s'", host), nil
}

func (e *Engine) preserveLogs(s *types.Session, _ catalog.Definition, _ map[string]any) (string, []*types.Alert) {
	s.SystemState.LogsPreserved = true
	s.Metrics[types.MetricForensicPreservation] += 10
	return "Logs preserved for forensic analysis", nil
}

func (e *Engine) scanForMalware(s *types.Session, _ catalog.Definition, p map[string]any) (string, []*types.Alert) {
	target := stringParam(p, "target", "all")
	s.Metrics[types.MetricResponseAccuracy] += 4

	msg := fmt.Sprintf("Malware scan initiated on '%s'", target)
	if !chance(e.rand, malwareMiss) {
		return msg, nil
	}
	s.SystemState.MalwareContained = true
	alert := types.NewAlert(
		"Malware Detected",
		fmt.Sprintf("Trojan.Generic detected on %s", target),
		types.SeverityCritical,
		"Antivirus",
		e.clock.Now(),
		"C2 communication", "Suspicious file execution",
	)
	return msg + " - Malware detected and contained!", []*types.Alert{alert}
}

// investigate covers every investigation-class command. Findings only
// surface once the attacker has broken stealth.
func (e *Engine) investigate(s *types.Session, def catalog.Definition, _ map[string]any) (string, []*types.Alert) {
	s.Metrics[types.MetricDecisionQuality] += 3
	msg := fmt.Sprintf("Investigation command '%s' executed", def.Name)

	// Draw before checking stealth so the sequence of draws does not depend on state.
	hit := chance(e.rand, investigationMiss)
	if !hit || s.AttackerState.StealthMode {
		return msg, nil
	}
	alert := types.NewAlert(
		"Suspicious Activity Detected",
		"Investigation revealed anomalous patterns",
		types.SeverityHigh,
		"SIEM Analysis",
		e.clock.Now(),
		"Unusual access patterns", "Off-hours activity",
	)
	return msg, []*types.Alert{alert}
}

func (e *Engine) noEffect(_ *types.Session, def catalog.Definition, _ map[string]any) (string, []*types.Alert) {
	return fmt.Sprintf("Command '%s' executed", def.Name), nil
}

func attackerIdentity(user string) bool {
	return strings.Contains(strings.ToLower(user), "attacker") || user == "admin-backup"
}

// stringParam returns params[key] as a string, or fallback when it is
// missing or empty. Parameters are never rejected.
func stringParam(params map[string]any, key, fallback string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return fallback
	}
	return s
}
