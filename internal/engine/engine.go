// Package engine executes defender commands against a simulation session
// and drives the attacker's response to them.
package engine

import (
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/invisible-tech/incident-sim/internal/catalog"
	"github.com/invisible-tech/incident-sim/internal/types"
)

const (
	containedStressRelief = 5.0
	uncontainedStress     = 2.0
	maxStress             = 100.0
)

// Config wires the engine's collaborators. Zero values fall back to the
// default catalog, a time-seeded source and the real clock.
type Config struct {
	Catalog *catalog.Catalog
	Rand    Rand
	Clock   clock.PassiveClock
}

// Engine applies commands to sessions. It keeps no per-session state, so
// one engine serves every session; callers serialize calls per session.
type Engine struct {
	catalog  *catalog.Catalog
	rand     Rand
	clock    clock.PassiveClock
	log      *logrus.Logger
	effects  map[string]effect
	attacker *Responder
}

// New creates an engine.
func New(cfg Config, log *logrus.Logger) *Engine {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Rand == nil {
		cfg.Rand = NewRand(0)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	e := &Engine{
		catalog: cfg.Catalog,
		rand:    cfg.Rand,
		clock:   cfg.Clock,
		log:     log,
	}
	e.effects = e.effectTable()
	e.attacker = NewResponder(cfg.Rand, cfg.Clock, log)
	return e
}

// Catalog returns the command catalog the engine resolves names against.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Execute runs command with params against s and returns the outcome.
//
// An unknown command yields Success=false and leaves s untouched. A known
// command always applies in full: time advances, the effect runs, the
// command is recorded, stress moves and the attacker responds.
func (e *Engine) Execute(s *types.Session, command string, params map[string]any) *types.Response {
	def, ok := e.catalog.Lookup(command)
	if !ok {
		return types.NewResponse(s, false, fmt.Sprintf("Unknown command: %s", command), nil)
	}

	s.SimulationTime += def.Time

	apply, ok := e.effects[command]
	if !ok {
		apply = e.noEffect
	}
	message, alerts := apply(s, def, params)

	recorded := maps.Clone(params)
	if recorded == nil {
		recorded = map[string]any{}
	}
	s.CommandsHistory = append(s.CommandsHistory, types.Command{
		Command:      command,
		Parameters:   recorded,
		Timestamp:    e.clock.Now(),
		Cost:         def.Cost,
		TimeRequired: def.Time,
	})

	if containmentMessage(message) {
		s.StressLevel = max(0, s.StressLevel-containedStressRelief)
	} else {
		s.StressLevel = min(maxStress, s.StressLevel+uncontainedStress)
	}

	alerts = append(alerts, e.attacker.Respond(s, command)...)
	s.Alerts = append(s.Alerts, alerts...)

	e.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"command":    command,
		"alerts":     len(alerts),
		"sim_time":   s.SimulationTime,
	}).Debug("Command executed")

	return types.NewResponse(s, true, message, alerts)
}

func containmentMessage(msg string) bool {
	return strings.Contains(msg, "blocked") || strings.Contains(msg, "prevented")
}
