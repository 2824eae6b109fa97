// Package evaluation scores a finished simulation session and produces the
// debrief shown to the trainee.
package evaluation

import (
	"math"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/invisible-tech/incident-sim/internal/catalog"
	"github.com/invisible-tech/incident-sim/internal/types"
)

// Ending types.
const (
	EndingEarlySuccess          = "early_success"
	EndingLateContainment       = "late_containment"
	EndingBusinessImpact        = "business_impact"
	EndingSuccessfulContainment = "successful_containment"
)

// Grades.
const (
	GradeExcellent        = "excellent"
	GradeVeryGood         = "very good"
	GradeGood             = "good"
	GradeAcceptable       = "acceptable"
	GradeNeedsImprovement = "needs improvement"
)

var endingDescriptions = map[string]string{
	EndingEarlySuccess:          "Outstanding! The attack was contained in its early stages before any significant damage occurred.",
	EndingLateContainment:       "Late containment. The attack was stopped, but only after the attacker achieved some of their objectives.",
	EndingBusinessImpact:        "Significant business impact. The attack was contained, but with noticeable service disruption.",
	EndingSuccessfulContainment: "Success! The attack was contained effectively while preserving business continuity.",
}

// Recommendations.
const (
	RecommendResponseTime = "Improve the speed of your response to security incidents"
	RecommendForensics    = "Focus more on preserving forensic evidence for legal follow-up"
	RecommendContinuity   = "Balance security actions against business continuity"
	RecommendAttackerPace = "Respond faster to stop the attacker from progressing"
	RecommendStress       = "Develop stress management skills for crisis situations"
	RecommendKeepPractice = "Excellent performance! Keep training on more complex scenarios"
)

var (
	investigationCommands = sets.New(catalog.QueryLogs, catalog.CheckIAMActivity, catalog.AnalyzeNetworkTraffic)
	containmentCommands   = sets.New(catalog.IsolateHost, catalog.IsolateNetwork, catalog.DisableAccount, catalog.BlockIP)

	advancedPhases = sets.New(types.PhaseDataExfiltration, types.PhasePersistence, types.PhaseCoverTracks)
	earlyPhases    = sets.New(types.PhaseReconnaissance, types.PhaseInitialAccess)
	latePhases     = sets.New(types.PhaseDataExfiltration, types.PhaseCoverTracks)
)

const (
	metricsWeight     = 0.4
	interactionWeight = 0.25
	stressWeight      = 0.15
	continuityWeight  = 0.2
)

// Evaluate scores s. It reads the session and never modifies it, so
// repeated calls on an unchanged session agree.
func Evaluate(s *types.Session) *types.EvaluationResult {
	ending := classifyEnding(s)
	interaction := AttackerInteractionScore(s)
	stress := max(0, 100-s.StressLevel)
	continuity := s.SystemState.BusinessContinuityScore

	score := metricsWeight*AverageMetrics(s.Metrics) +
		interactionWeight*interaction +
		stressWeight*stress +
		continuityWeight*continuity
	score += endingAdjustment(ending)
	score = clamp(score, 0, 100)
	score = math.Round(score*100) / 100

	return &types.EvaluationResult{
		SessionID:                s.ID,
		FinalScore:               score,
		Grade:                    Grade(score),
		EndingType:               ending,
		EndingDescription:        endingDescriptions[ending],
		Metrics:                  s.MetricsSnapshot(),
		AttackerInteractionScore: interaction,
		StressManagementScore:    stress,
		BusinessContinuityScore:  continuity,
		Recommendations:          recommendations(s),
		TimeToDetection:          firstCommandOffset(s, investigationCommands),
		TimeToContainment:        firstCommandOffset(s, containmentCommands),
	}
}

// AverageMetrics is the mean of the seven score channels. Channels are not
// clamped, so the mean can exceed 100.
func AverageMetrics(m map[string]float64) float64 {
	var sum float64
	for _, ch := range types.MetricChannels {
		sum += m[ch]
	}
	return sum / float64(len(types.MetricChannels))
}

// AttackerInteractionScore rates how well the defender handled the attacker.
func AttackerInteractionScore(s *types.Session) float64 {
	score := 70.0
	if len(s.AttackerActions) < 3 {
		score += 15
	}
	if advancedPhases.Has(s.AttackerState.CurrentPhase) {
		score -= 20
	}
	score += 5 * float64(sets.New(s.AttackerState.BlockedPaths...).Len())
	return clamp(score, 0, 100)
}

// Grade maps a final score to its tier.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return GradeExcellent
	case score >= 80:
		return GradeVeryGood
	case score >= 70:
		return GradeGood
	case score >= 60:
		return GradeAcceptable
	default:
		return GradeNeedsImprovement
	}
}

func classifyEnding(s *types.Session) string {
	a := s.AttackerState
	switch {
	case earlyPhases.Has(a.CurrentPhase) && len(a.BlockedPaths) >= 2:
		return EndingEarlySuccess
	case latePhases.Has(a.CurrentPhase):
		return EndingLateContainment
	case s.SystemState.BusinessContinuityScore < 60:
		return EndingBusinessImpact
	default:
		return EndingSuccessfulContainment
	}
}

// endingAdjustment returns the bonus or penalty for an ending. No ending
// rule currently produces a stealth outcome, so the penalty never applies.
// TODO: drop or wire the stealth penalty once product decides whether an
// undetected-attacker ending exists.
func endingAdjustment(ending string) float64 {
	switch {
	case strings.Contains(ending, "success"):
		return 10
	case strings.Contains(ending, "stealth"):
		return -20
	}
	return 0
}

func recommendations(s *types.Session) []string {
	var out []string
	if s.Metrics[types.MetricResponseTime] < 70 {
		out = append(out, RecommendResponseTime)
	}
	if s.Metrics[types.MetricForensicPreservation] < 70 {
		out = append(out, RecommendForensics)
	}
	if s.SystemState.BusinessContinuityScore < 80 {
		out = append(out, RecommendContinuity)
	}
	if len(s.AttackerActions) > 5 {
		out = append(out, RecommendAttackerPace)
	}
	if s.StressLevel > 70 {
		out = append(out, RecommendStress)
	}
	if len(out) == 0 {
		out = append(out, RecommendKeepPractice)
	}
	return out
}

// firstCommandOffset returns the seconds from session start to the first
// command in names, in history order.
func firstCommandOffset(s *types.Session, names sets.Set[string]) *float64 {
	for _, c := range s.CommandsHistory {
		if names.Has(c.Command) {
			v := s.Elapsed(c.Timestamp)
			return &v
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
