package types

import "fmt"

// Phase is a stage of the attacker kill chain.
type Phase string

const (
	PhaseReconnaissance      Phase = "reconnaissance"
	PhaseInitialAccess       Phase = "initial_access"
	PhasePrivilegeEscalation Phase = "privilege_escalation"
	PhaseLateralMovement     Phase = "lateral_movement"
	PhaseDataExfiltration    Phase = "data_exfiltration"
	PhasePersistence         Phase = "persistence"
	PhaseCoverTracks         Phase = "cover_tracks"
)

// phaseTransitions is the forward-only kill chain. PhaseCoverTracks is terminal.
var phaseTransitions = map[Phase]Phase{
	PhaseReconnaissance:      PhaseInitialAccess,
	PhaseInitialAccess:       PhasePrivilegeEscalation,
	PhasePrivilegeEscalation: PhaseLateralMovement,
	PhaseLateralMovement:     PhaseDataExfiltration,
	PhaseDataExfiltration:    PhasePersistence,
	PhasePersistence:         PhaseCoverTracks,
}

// Next returns the phase that follows p. ok is false when p is terminal or unknown.
func (p Phase) Next() (next Phase, ok bool) {
	next, ok = phaseTransitions[p]
	return next, ok
}

// Terminal reports whether p is the last phase of the kill chain.
func (p Phase) Terminal() bool {
	return p == PhaseCoverTracks
}

// Valid reports whether p is a kill chain phase.
func (p Phase) Valid() bool {
	_, ok := phaseTransitions[p]
	return ok || p.Terminal()
}

// Ordinal returns the zero-based position of p in the kill chain.
func (p Phase) Ordinal() int {
	for i, ph := range Phases() {
		if ph == p {
			return i
		}
	}
	return -1
}

// Phases returns the kill chain in order, starting at reconnaissance.
func Phases() []Phase {
	out := []Phase{PhaseReconnaissance}
	for p := PhaseReconnaissance; ; {
		next, ok := p.Next()
		if !ok {
			return out
		}
		out = append(out, next)
		p = next
	}
}

// ParsePhase converts s to a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown attacker phase %q", s)
	}
	return p, nil
}
