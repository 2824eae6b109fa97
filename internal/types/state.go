package types

import (
	"maps"
	"slices"
)

// Default network segments and services of the defended environment.
const (
	SegmentProduction = "production"
	SegmentStaging    = "staging"
	SegmentAdmin      = "admin"

	ServiceWeb      = "web"
	ServiceAPI      = "api"
	ServiceDatabase = "database"
	ServicePayment  = "payment"
)

// SystemState is the state of the defended environment.
//
// The list fields are sets: Add* helpers keep membership idempotent.
// BusinessContinuityScore starts at 100 and is not clamped, so isolation
// costs can drive it below zero.
type SystemState struct {
	NetworkSegmentIsolated map[string]bool `json:"network_segment_isolated"`
	FirewallRulesUpdated   bool            `json:"firewall_rules_updated"`

	MalwareContained bool     `json:"malware_contained"`
	CompromisedHosts []string `json:"compromised_hosts"`
	IsolatedHosts    []string `json:"isolated_hosts"`

	DisabledAccounts       []string `json:"suspicious_accounts_disabled"`
	MFAEnforced            bool     `json:"mfa_enforced"`
	PasswordResetTriggered bool     `json:"password_reset_triggered"`

	SecuredBuckets           []string `json:"s3_buckets_secured"`
	DataExfiltrationDetected bool     `json:"data_exfiltration_detected"`
	DataLossPrevented        bool     `json:"data_loss_prevented"`

	LogsPreserved          bool `json:"logs_preserved"`
	MemoryDumpCaptured     bool `json:"memory_dump_captured"`
	NetworkTrafficCaptured bool `json:"network_traffic_captured"`

	ServicesOperational     map[string]bool `json:"services_operational"`
	BusinessContinuityScore float64         `json:"business_continuity_score"`
}

// NewSystemState returns the state of an untouched environment.
func NewSystemState() SystemState {
	return SystemState{
		NetworkSegmentIsolated: map[string]bool{
			SegmentProduction: false,
			SegmentStaging:    false,
			SegmentAdmin:      false,
		},
		CompromisedHosts: []string{},
		IsolatedHosts:    []string{},
		DisabledAccounts: []string{},
		SecuredBuckets:   []string{},
		ServicesOperational: map[string]bool{
			ServiceWeb:      true,
			ServiceAPI:      true,
			ServiceDatabase: true,
			ServicePayment:  true,
		},
		BusinessContinuityScore: 100,
	}
}

// Normalize fills any nil collection with its NewSystemState default, so a
// state decoded from partial JSON can be mutated safely. Present values are kept.
func (s *SystemState) Normalize() {
	def := NewSystemState()
	s.NetworkSegmentIsolated = fillMissing(s.NetworkSegmentIsolated, def.NetworkSegmentIsolated)
	s.ServicesOperational = fillMissing(s.ServicesOperational, def.ServicesOperational)
	for _, set := range []*[]string{&s.CompromisedHosts, &s.IsolatedHosts, &s.DisabledAccounts, &s.SecuredBuckets} {
		if *set == nil {
			*set = []string{}
		}
	}
}

// IsolateHost adds host to the isolated set. It reports whether host was new.
func (s *SystemState) IsolateHost(host string) bool {
	return addMember(&s.IsolatedHosts, host)
}

// DisableAccount adds user to the disabled-account set.
func (s *SystemState) DisableAccount(user string) bool {
	return addMember(&s.DisabledAccounts, user)
}

// SecureBucket adds bucket to the secured-bucket set.
func (s *SystemState) SecureBucket(bucket string) bool {
	return addMember(&s.SecuredBuckets, bucket)
}

// Compromise marks host as attacker-controlled.
func (s *SystemState) Compromise(host string) bool {
	return addMember(&s.CompromisedHosts, host)
}

// IsCompromised reports whether host is in the compromised set.
func (s *SystemState) IsCompromised(host string) bool {
	return slices.Contains(s.CompromisedHosts, host)
}

// Clone returns a deep copy of s.
func (s SystemState) Clone() SystemState {
	out := s
	out.NetworkSegmentIsolated = maps.Clone(s.NetworkSegmentIsolated)
	out.ServicesOperational = maps.Clone(s.ServicesOperational)
	out.CompromisedHosts = slices.Clone(s.CompromisedHosts)
	out.IsolatedHosts = slices.Clone(s.IsolatedHosts)
	out.DisabledAccounts = slices.Clone(s.DisabledAccounts)
	out.SecuredBuckets = slices.Clone(s.SecuredBuckets)
	return out
}

// AttackerState is the adaptive attacker.
type AttackerState struct {
	IsActive            bool     `json:"is_active"`
	CurrentPhase        Phase    `json:"current_phase"`
	Progress            float64  `json:"progress"`
	StealthMode         bool     `json:"stealth_mode"`
	ObjectivesCompleted []string `json:"objectives_completed"`
	BlockedPaths        []string `json:"blocked_paths"`
	FallbackAttempts    int      `json:"fallback_attempts"`

	// Seconds from session start, recorded once when the session completes.
	TimeToDetection   *float64 `json:"ttd,omitempty"`
	TimeToContainment *float64 `json:"ttc,omitempty"`
}

// NewAttackerState returns an active, stealthy attacker at reconnaissance.
func NewAttackerState() AttackerState {
	return AttackerState{
		IsActive:            true,
		CurrentPhase:        PhaseReconnaissance,
		StealthMode:         true,
		ObjectivesCompleted: []string{},
		BlockedPaths:        []string{},
	}
}

// Block records path as closed. Blocked paths only ever grow.
func (a *AttackerState) Block(path string) bool {
	return addMember(&a.BlockedPaths, path)
}

// PendingFallback reports whether a block exists that the attacker has not reacted to.
func (a *AttackerState) PendingFallback() bool {
	return len(a.BlockedPaths) > a.FallbackAttempts
}

// Normalize replaces nil slices with empty ones.
func (a *AttackerState) Normalize() {
	if a.ObjectivesCompleted == nil {
		a.ObjectivesCompleted = []string{}
	}
	if a.BlockedPaths == nil {
		a.BlockedPaths = []string{}
	}
}

// Setback reduces progress by delta without going below zero.
func (a *AttackerState) Setback(delta float64) {
	a.Progress = max(0, a.Progress-delta)
}

// Clone returns a deep copy of a.
func (a AttackerState) Clone() AttackerState {
	out := a
	out.ObjectivesCompleted = slices.Clone(a.ObjectivesCompleted)
	out.BlockedPaths = slices.Clone(a.BlockedPaths)
	if a.TimeToDetection != nil {
		v := *a.TimeToDetection
		out.TimeToDetection = &v
	}
	if a.TimeToContainment != nil {
		v := *a.TimeToContainment
		out.TimeToContainment = &v
	}
	return out
}

func fillMissing(m, def map[string]bool) map[string]bool {
	if m == nil {
		return def
	}
	for k, v := range def {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

func addMember(set *[]string, v string) bool {
	if slices.Contains(*set, v) {
		return false
	}
	*set = append(*set, v)
	return true
}
