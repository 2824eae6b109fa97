// Package controller owns simulation sessions: it serializes commands per
// session, feeds each session's timeline, merges flavor content into
// responses, completes sessions and forwards debriefs.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	"github.com/invisible-tech/incident-sim/internal/catalog"
	"github.com/invisible-tech/incident-sim/internal/config"
	"github.com/invisible-tech/incident-sim/internal/content"
	"github.com/invisible-tech/incident-sim/internal/engine"
	"github.com/invisible-tech/incident-sim/internal/evaluation"
	"github.com/invisible-tech/incident-sim/internal/timeline"
	"github.com/invisible-tech/incident-sim/internal/types"
	"github.com/invisible-tech/incident-sim/pkg/analytics"
	"github.com/invisible-tech/incident-sim/pkg/scenario"
)

var (
	// ErrSessionNotFound is returned for an unknown or evicted session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrScenarioNotFound is returned when starting from an unknown scenario.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrSessionNotActive is returned when executing against a completed session.
	ErrSessionNotActive = errors.New("session not active")
)

// Prometheus metrics (registered once).
var (
	commandsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_sim_commands_executed_total",
			Help: "Total defender commands executed",
		},
		[]string{"command", "success"},
	)
	alertsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_sim_alerts_generated_total",
			Help: "Total alerts raised during sessions",
		},
		[]string{"severity", "source"},
	)
	phaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incident_sim_phase_transitions_total",
			Help: "Total attacker kill-chain phase transitions",
		},
		[]string{"phase"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "incident_sim_active_sessions",
			Help: "Number of active simulation sessions",
		},
	)
	finalScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "incident_sim_final_score",
			Help:    "Final scores of completed sessions",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"ending"},
	)
)

func init() {
	prometheus.MustRegister(commandsExecuted)
	prometheus.MustRegister(alertsGenerated)
	prometheus.MustRegister(phaseTransitions)
	prometheus.MustRegister(activeSessions)
	prometheus.MustRegister(finalScores)
}

// entry is one stored session. mu serializes every access to it. pressured,
// awarded and hinted hold the pressure senders, achievement IDs and hints
// already delivered.
type entry struct {
	mu        sync.Mutex
	session   *types.Session
	timeline  *timeline.Manager
	pressured sets.Set[string]
	awarded   sets.Set[string]
	hinted    sets.Set[string]
}

func (e *entry) active() bool {
	return e.session.Status == types.StatusActive
}

// ExecuteResult is the outcome of one command plus the flavor content it
// triggered.
type ExecuteResult struct {
	Response        *types.Response          `json:"response"`
	TimelineEvents  []timeline.Event         `json:"timeline_events"`
	PressureMessage *content.PressureMessage `json:"pressure_message,omitempty"`
	TeamMessages    []content.TeamMessage    `json:"team_messages,omitempty"`
	Achievements    []content.Achievement    `json:"achievements,omitempty"`
}

// TimelineFilter selects timeline events. Critical wins over Type. Limit
// keeps the most recent events; zero means no limit.
type TimelineFilter struct {
	Type     timeline.EventType
	Critical bool
	Limit    int
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock sets the clock used for timestamps.
func WithClock(clk clock.PassiveClock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithRand sets the attacker's random source.
func WithRand(r engine.Rand) Option {
	return func(c *Controller) { c.rand = r }
}

// Controller manages simulation sessions.
type Controller struct {
	cfg       config.SimulatorConfig
	log       *logrus.Logger
	clock     clock.PassiveClock
	rand      engine.Rand
	engine    *engine.Engine
	scenarios *scenario.Registry
	sessions  *lru.Cache[string, *entry]
	analytics *analytics.Client
}

// New creates a new Controller with the given config, scenario registry and logger.
func New(cfg config.SimulatorConfig, scenarios *scenario.Registry, log *logrus.Logger, opts ...Option) (*Controller, error) {
	c := &Controller{
		cfg:       cfg,
		log:       log,
		clock:     clock.RealClock{},
		scenarios: scenarios,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rand == nil {
		c.rand = engine.NewRand(cfg.Seed)
	}
	if c.scenarios == nil {
		c.scenarios = scenario.NewRegistry()
	}
	c.engine = engine.New(engine.Config{Rand: c.rand, Clock: c.clock}, log)

	cache, err := lru.NewWithEvict[string, *entry](cfg.SessionCacheSize, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	c.sessions = cache
	c.initAnalytics()
	return c, nil
}

func (c *Controller) initAnalytics() {
	if !c.cfg.AnalyticsEnabled {
		return
	}
	c.analytics = analytics.NewClient(analytics.Config{
		APIEndpoint: c.cfg.AnalyticsEndpoint,
		APIKey:      c.cfg.AnalyticsAPIKey,
		Timeout:     c.cfg.AnalyticsTimeout,
	}, c.log)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.analytics.HealthCheck(ctx); err != nil {
			c.log.WithError(err).Warn("Analytics health check failed, will retry on first debrief")
		} else {
			c.log.Info("Analytics API connection verified")
		}
	}()
}

func (c *Controller) onEvict(id string, e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active() {
		activeSessions.Dec()
		c.log.WithField("session_id", id).Warn("Active session evicted from cache")
	}
}

func (c *Controller) lookup(id string) (*entry, error) {
	e, ok := c.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

func (c *Controller) store(s *types.Session, tl *timeline.Manager) {
	e := &entry{
		session:   s,
		timeline:  tl,
		pressured: sets.New[string](),
		awarded:   sets.New[string](),
		hinted:    sets.New[string](),
	}
	if e.active() {
		activeSessions.Inc()
	}
	c.sessions.Remove(s.ID)
	c.sessions.Add(s.ID, e)
}

// Commands returns the command catalog.
func (c *Controller) Commands() []catalog.Definition {
	return c.engine.Catalog().List()
}

// Scenarios returns the available scenarios.
func (c *Controller) Scenarios() []*scenario.Scenario {
	return c.scenarios.List()
}

// StartSession creates a session from scenarioID for userID. An empty
// scenarioID selects the built-in scenario.
func (c *Controller) StartSession(scenarioID, userID string) (*types.Session, error) {
	if scenarioID == "" {
		scenarioID = scenario.DefaultID
	}
	scn, ok := c.scenarios.Get(scenarioID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, scenarioID)
	}

	s := scn.NewSession(userID, c.clock.Now())
	tl := timeline.New(c.clock)
	tl.Add(timeline.EventSystem, "Simulation started", scn.Name, types.SeverityInfo, map[string]any{
		"scenario_id": scn.ID,
		"user_id":     s.UserID,
	})
	for _, a := range s.Alerts {
		addAlertEvent(tl, a)
	}
	c.store(s, tl)

	c.log.WithFields(logrus.Fields{
		"session_id":  s.ID,
		"scenario_id": scn.ID,
		"user_id":     s.UserID,
	}).Info("Session started")
	return s.Clone(), nil
}

// GetSession returns a copy of the session with id.
func (c *Controller) GetSession(id string) (*types.Session, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Execute runs command against the session with id.
func (c *Controller) Execute(id, command string, params map[string]any) (*ExecuteResult, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if !e.active() {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotActive, id)
	}

	prevPhase := s.AttackerState.CurrentPhase
	prevActions := len(s.AttackerActions)

	resp := c.engine.Execute(s, command, params)
	commandsExecuted.WithLabelValues(commandLabel(c.engine.Catalog(), command), strconv.FormatBool(resp.Success)).Inc()

	res := &ExecuteResult{Response: resp}
	add := func(ev timeline.Event) { res.TimelineEvents = append(res.TimelineEvents, ev) }

	sev := types.SeverityInfo
	if !resp.Success {
		sev = types.SeverityLow
	}
	add(e.timeline.Add(timeline.EventCommand, command, resp.Message, sev, map[string]any{
		"parameters": maps.Clone(params),
		"success":    resp.Success,
	}))
	for _, act := range s.AttackerActions[prevActions:] {
		add(e.timeline.Add(timeline.EventAttacker, "Attacker adapted", act.Action, types.SeverityHigh, map[string]any{
			"triggered_by": act.TriggeredBy,
			"time":         act.Time,
		}))
	}
	for _, a := range resp.NewAlerts {
		alertsGenerated.WithLabelValues(string(a.Severity), a.Source).Inc()
		add(addAlertEvent(e.timeline, a))
	}
	if cur := s.AttackerState.CurrentPhase; cur != prevPhase {
		phaseTransitions.WithLabelValues(string(cur)).Inc()
		add(e.timeline.Add(timeline.EventSystem, "Attacker phase changed",
			fmt.Sprintf("Attacker moved from %s to %s", prevPhase, cur), types.SeverityHigh,
			map[string]any{"from": string(prevPhase), "to": string(cur)}))
	}

	if resp.Success {
		if msg, ok := content.PressureAt(s.SimulationTime); ok && !e.pressured.Has(msg.Sender) {
			e.pressured.Insert(msg.Sender)
			res.PressureMessage = &msg
			add(e.timeline.Add(timeline.EventMessage, msg.Sender, msg.Message, msg.Urgency, map[string]any{
				"trigger_time": msg.TriggerTime,
			}))
		}
	}
	if resp.Success && c.cfg.RealtimeEvents {
		c.realtime(e, res, add)
	}
	for _, a := range content.Achievements(s.Metrics, len(s.CommandsHistory)) {
		if e.awarded.Has(a.ID) {
			continue
		}
		e.awarded.Insert(a.ID)
		res.Achievements = append(res.Achievements, a)
	}

	c.log.WithFields(logrus.Fields{
		"session_id": id,
		"command":    command,
		"success":    resp.Success,
		"phase":      s.AttackerState.CurrentPhase,
		"sim_time":   s.SimulationTime,
	}).Debug("Session command processed")
	return res, nil
}

// realtime draws the background events that follow a successful command:
// at most one random event, then at most one team message.
func (c *Controller) realtime(e *entry, res *ExecuteResult, add func(timeline.Event)) {
	s := e.session
	if ev, ok := content.DrawRandomEvent(c.rand); ok {
		switch ev.Kind {
		case content.RandomEventAlert:
			a := ev.Alert(c.clock.Now())
			s.Alerts = append(s.Alerts, a)
			res.Response.NewAlerts = append(res.Response.NewAlerts, a.Clone())
			alertsGenerated.WithLabelValues(string(a.Severity), a.Source).Inc()
			add(addAlertEvent(e.timeline, a))
		case content.RandomEventSystem:
			add(e.timeline.Add(timeline.EventSystem, ev.Title, ev.Description, ev.Severity, map[string]any{
				"positive": ev.Positive,
			}))
		}
	}
	if msg, ok := content.DrawTeamMessage(c.rand); ok {
		res.TeamMessages = append(res.TeamMessages, msg)
		add(e.timeline.Add(timeline.EventMessage, msg.Sender, msg.Message, types.SeverityInfo, map[string]any{
			"type": msg.Type,
		}))
	}
}

// Advice returns the assistant's advice for the session with id.
func (c *Controller) Advice(id string) (content.Advice, error) {
	e, err := c.lookup(id)
	if err != nil {
		return content.Advice{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return content.Analyze(e.session), nil
}

// Hint returns the next unused hint for the session with id. The hint track
// follows the difficulty of the session's scenario.
func (c *Controller) Hint(id string) (content.Hint, error) {
	e, err := c.lookup(id)
	if err != nil {
		return content.Hint{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	level := content.HintMedium
	if scn, ok := c.scenarios.Get(e.session.ScenarioID); ok {
		level = hintLevel(scn.Difficulty)
	}
	h := content.NextHint(level, e.hinted)
	if h.Available {
		e.timeline.Add(timeline.EventMessage, "Assistant", h.Hint, types.SeverityInfo, map[string]any{
			"level": string(level),
		})
	}
	return h, nil
}

func hintLevel(difficulty string) content.HintLevel {
	switch difficulty {
	case scenario.DifficultyBeginner:
		return content.HintEasy
	case scenario.DifficultyAdvanced:
		return content.HintHard
	}
	return content.HintMedium
}

// Complete evaluates and finalizes the session with id. A session can be
// completed only once; later calls return types.ErrSessionFinalized.
func (c *Controller) Complete(id string) (*types.EvaluationResult, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	wasActive := e.active()
	result := evaluation.Evaluate(s)
	if err := s.Complete(result, c.clock.Now()); err != nil {
		return nil, fmt.Errorf("complete session %s: %w", id, err)
	}
	if wasActive {
		activeSessions.Dec()
	}
	finalScores.WithLabelValues(result.EndingType).Observe(result.FinalScore)
	e.timeline.Add(timeline.EventSystem, "Simulation completed", result.EndingDescription, types.SeverityInfo, map[string]any{
		"final_score": result.FinalScore,
		"grade":       result.Grade,
		"ending_type": result.EndingType,
	})

	c.log.WithFields(logrus.Fields{
		"session_id":  id,
		"final_score": result.FinalScore,
		"grade":       result.Grade,
		"ending":      result.EndingType,
	}).Info("Session completed")

	c.sendDebrief(&analytics.Debrief{
		SessionID:   s.ID,
		ScenarioID:  s.ScenarioID,
		UserID:      s.UserID,
		CompletedAt: *s.EndTime,
		Evaluation:  result,
		Commands:    len(s.CommandsHistory),
		Timeline:    e.timeline.Timeline(),
	})
	return result, nil
}

func (c *Controller) sendDebrief(d *analytics.Debrief) {
	if c.analytics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.AnalyticsTimeout)
		defer cancel()
		if err := c.analytics.SendDebrief(ctx, d); err != nil {
			c.log.WithError(err).WithField("session_id", d.SessionID).Error("Failed to send debrief to analytics API")
		}
	}()
}

// Timeline returns the session's timeline events selected by f.
func (c *Controller) Timeline(id string, f TimelineFilter) ([]timeline.Event, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var events []timeline.Event
	switch {
	case f.Critical:
		events = e.timeline.Critical()
	case f.Type != "":
		events = e.timeline.ByType(f.Type)
	default:
		return e.timeline.Recent(f.Limit), nil
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[len(events)-f.Limit:]
	}
	return events, nil
}

// Snapshot returns the session with id as opaque JSON.
func (c *Controller) Snapshot(id string) ([]byte, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return json.Marshal(e.session)
}

// Restore loads a session from a Snapshot, replacing any session with the
// same ID. The restored session starts a fresh timeline.
func (c *Controller) Restore(data []byte) (*types.Session, error) {
	var s types.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("invalid snapshot: missing session id")
	}
	if !s.AttackerState.CurrentPhase.Valid() {
		return nil, fmt.Errorf("invalid snapshot: unknown phase %q", s.AttackerState.CurrentPhase)
	}
	s.Normalize()

	tl := timeline.New(c.clock)
	tl.Add(timeline.EventSystem, "Session restored", "Session restored from snapshot", types.SeverityInfo, map[string]any{
		"simulation_time": s.SimulationTime,
	})
	c.store(&s, tl)

	c.log.WithField("session_id", s.ID).Info("Session restored")
	return s.Clone(), nil
}

func addAlertEvent(tl *timeline.Manager, a *types.Alert) timeline.Event {
	return tl.Add(timeline.EventAlert, a.Title, a.Description, a.Severity, map[string]any{
		"alert_id": a.ID,
		"source":   a.Source,
	})
}

// commandLabel bounds metric cardinality to catalog names.
func commandLabel(cat *catalog.Catalog, name string) string {
	if _, ok := cat.Lookup(name); ok {
		return name
	}
	return "unknown"
}
