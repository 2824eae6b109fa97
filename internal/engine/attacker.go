package engine

import (
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/invisible-tech/incident-sim/internal/types"
)

const (
	progressMiss     = 0.6
	progressStep     = 10.0
	phaseComplete    = 100.0
	phaseStressSpike = 15.0
)

// Responder moves the attacker after each defender command.
type Responder struct {
	rand  Rand
	clock clock.PassiveClock
	log   *logrus.Logger
}

// NewResponder creates a responder drawing from r.
func NewResponder(r Rand, clk clock.PassiveClock, log *logrus.Logger) *Responder {
	return &Responder{rand: r, clock: clk, log: log}
}

// Respond reacts to trigger, the command the defender just ran.
//
// An unreacted block always produces exactly one fallback and nothing else.
// Otherwise the attacker may progress, and a full progress bar advances
// the kill chain by one phase.
func (r *Responder) Respond(s *types.Session, trigger string) []*types.Alert {
	a := &s.AttackerState
	if !a.IsActive {
		return nil
	}

	if a.PendingFallback() {
		return []*types.Alert{r.fallback(s, trigger)}
	}

	if !chance(r.rand, progressMiss) {
		return nil
	}
	a.Progress += progressStep
	if a.Progress >= phaseComplete {
		r.advance(s)
	}
	return nil
}

func (r *Responder) fallback(s *types.Session, trigger string) *types.Alert {
	a := &s.AttackerState
	a.FallbackAttempts++
	a.StealthMode = false

	s.AttackerActions = append(s.AttackerActions, types.AttackerAction{
		Time:        s.SimulationTime,
		Action:      "Fallback attempt - trying alternative attack vector",
		TriggeredBy: trigger,
	})

	r.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"trigger":    trigger,
		"fallbacks":  a.FallbackAttempts,
	}).Debug("Attacker fell back to alternative vector")

	return types.NewAlert(
		"Attacker Activity Detected",
		"Suspicious activity suggests attacker is adapting to defenses",
		types.SeverityHigh,
		"Threat Intelligence",
		r.clock.Now(),
		"Alternative attack vector", "Persistence attempt",
	)
}

// advance moves to the next kill-chain phase. At the terminal phase the
// progress bar stays full and nothing else changes.
func (r *Responder) advance(s *types.Session) {
	a := &s.AttackerState
	next, ok := a.CurrentPhase.Next()
	if !ok {
		return
	}
	prev := a.CurrentPhase
	a.CurrentPhase = next
	a.Progress = 0
	s.StressLevel = min(maxStress, s.StressLevel+phaseStressSpike)

	r.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"from":       prev,
		"to":         next,
	}).Debug("Attacker advanced phase")
}
