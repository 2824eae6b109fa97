package content

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/invisible-tech/incident-sim/internal/catalog"
	"github.com/invisible-tech/incident-sim/internal/types"
)

// AdviceLevel grades assistant advice.
type AdviceLevel string

const (
	AdviceInfo     AdviceLevel = "info"
	AdviceSuccess  AdviceLevel = "success"
	AdviceWarning  AdviceLevel = "warning"
	AdviceCritical AdviceLevel = "critical"
)

// Advice is the assistant's read of a session.
type Advice struct {
	Level            AdviceLevel `json:"severity"`
	Message          string      `json:"message"`
	SuggestedActions []string    `json:"suggested_actions"`
	Reasoning        string      `json:"reasoning"`
}

// Analyze inspects s and returns the single most pressing piece of advice.
// Rules are checked in priority order and the first match wins.
func Analyze(s *types.Session) Advice {
	commands := len(s.CommandsHistory)
	a := s.AttackerState

	switch {
	case commands < 2 && s.SimulationTime > 3:
		return Advice{
			Level:   AdviceWarning,
			Message: "Looks like you need a start. Let me help.",
			SuggestedActions: []string{
				catalog.QueryLogs + ": start by investigating the logs",
				catalog.CheckIAMActivity + ": look for suspicious IAM activity",
			},
			Reasoning: "Investigating early reduces time to detection",
		}

	case a.Progress > 70:
		adv := Advice{
			Level:            AdviceCritical,
			Message:          "The attacker is advancing fast. Act now.",
			SuggestedActions: []string{},
			Reasoning:        fmt.Sprintf("The attacker is in the %s phase", a.CurrentPhase),
		}
		switch a.CurrentPhase {
		case types.PhaseLateralMovement:
			adv.SuggestedActions = []string{
				catalog.IsolateNetwork + ": isolate the network to stop lateral movement",
				catalog.IsolateHost + ": isolate compromised hosts",
			}
		case types.PhaseDataExfiltration:
			adv.SuggestedActions = []string{
				catalog.EnableDLP + ": turn on data loss prevention now",
				catalog.SecureS3Bucket + ": lock down S3 buckets",
			}
		}
		return adv

	case s.SimulationTime > 5 && !s.SystemState.LogsPreserved:
		return Advice{
			Level:   AdviceWarning,
			Message: "Don't forget to preserve forensic evidence!",
			SuggestedActions: []string{
				catalog.PreserveLogs + ": keep the logs for the legal investigation",
				catalog.CaptureMemoryDump + ": capture a memory image",
			},
			Reasoning: "Forensic evidence is needed for prosecution and for the post-incident review",
		}

	case s.SystemState.BusinessContinuityScore < 70:
		return Advice{
			Level:   AdviceWarning,
			Message: "Business continuity is suffering.",
			SuggestedActions: []string{
				"Focus on targeted containment",
				"Avoid broad network isolation",
			},
			Reasoning: "Security has to be balanced against keeping the business running",
		}

	case averageMetric(s.Metrics) > 85 && commands > 3:
		return Advice{
			Level:   AdviceSuccess,
			Message: "Excellent work. Keep it up.",
			SuggestedActions: []string{
				"Continue systematic approach",
				"Don't forget to document everything",
			},
			Reasoning: "Your methodical approach is paying off",
		}

	case commands > 0:
		return Advice{
			Level:            AdviceInfo,
			Message:          "Good progress. Keep investigating.",
			SuggestedActions: []string{},
			Reasoning:        "Every action brings the threat closer to containment",
		}
	}
	return Advice{Level: AdviceInfo, SuggestedActions: []string{}}
}

func averageMetric(m map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum / float64(len(m))
}

// HintLevel selects a hint track.
type HintLevel string

const (
	HintEasy   HintLevel = "easy"
	HintMedium HintLevel = "medium"
	HintHard   HintLevel = "hard"
)

var hints = map[HintLevel][]string{
	HintEasy: {
		"Hint: start by checking the logs to find where the attack came from",
		"Hint: isolating compromised hosts stops the attack from spreading",
		"Hint: preserve evidence before you clean anything up",
	},
	HintMedium: {
		"Watch for abnormal traffic patterns",
		"Check recent changes to IAM permissions",
		"Look for C2 (command and control) connections",
	},
	HintHard: {
		"Analyze the indicators of compromise in depth",
		"Trace lateral movement across the network",
		"Hunt for persistence mechanisms",
	},
}

// Hint is one hint, or a notice that the track is exhausted.
type Hint struct {
	Hint      string `json:"hint"`
	Available bool   `json:"available"`
}

// NextHint returns the first hint of level not yet in given and records it
// there. Unknown levels use the medium track.
func NextHint(level HintLevel, given sets.Set[string]) Hint {
	track, ok := hints[level]
	if !ok {
		track = hints[HintMedium]
	}
	for _, h := range track {
		if !given.Has(h) {
			given.Insert(h)
			return Hint{Hint: h, Available: true}
		}
	}
	return Hint{Hint: "You have used every available hint!", Available: false}
}

// TutorialStep is one step of the beginner walkthrough.
type TutorialStep struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

var tutorialSteps = []TutorialStep{
	{Step: 1, Title: "Welcome to the simulation!", Description: "You are a SOC analyst. Your goal: contain a cyber attack.", Action: "Start by reviewing the alerts panel"},
	{Step: 2, Title: "Use the command console", Description: "Run commands directly or use the quick action buttons", Action: "Try: query_logs query=failed_login"},
	{Step: 3, Title: "Watch the attacker", Description: "The adaptive attacker reacts to your actions", Action: "Keep an eye on the attacker progress bar"},
	{Step: 4, Title: "Preserve evidence", Description: "Forensic evidence matters for legal follow-up", Action: "Run: preserve_logs source=cloudtrail"},
	{Step: 5, Title: "Contain the threat", Description: "Use isolation and blocking to stop the attacker", Action: "Isolate compromised hosts and block suspicious IPs"},
}

// Tutorial returns step n, counting from 1.
func Tutorial(n int) (TutorialStep, bool) {
	if n < 1 || n > len(tutorialSteps) {
		return TutorialStep{}, false
	}
	return tutorialSteps[n-1], true
}
