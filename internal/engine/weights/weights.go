// Package weights maps (progression stage, live performance signals) to the
// four-domain mixing vector. The manager is a pure function of its inputs plus
// the read-only base table; audit logging of the resulting vector belongs to
// the caller.
package weights

import (
	"fmt"

	"github.com/yungbote/transition-engine/internal/engine"
)

// baseTable holds the authoritative per-stage weights. Each row sums to 1.0.
var baseTable = map[engine.Stage]engine.WeightVector{
	engine.StageOnboarding:   {Learner: 0.40, Knowledge: 0.22, Engagement: 0.28, Assessment: 0.10},
	engine.StageIntroduction: {Learner: 0.32, Knowledge: 0.28, Engagement: 0.22, Assessment: 0.18},
	engine.StagePractice:     {Learner: 0.27, Knowledge: 0.32, Engagement: 0.18, Assessment: 0.23},
	engine.StageApplication:  {Learner: 0.25, Knowledge: 0.27, Engagement: 0.16, Assessment: 0.32},
	engine.StageMastery:      {Learner: 0.22, Knowledge: 0.23, Engagement: 0.15, Assessment: 0.40},
}

// Adaptation trigger thresholds.
const (
	strugglingSuccessRate  = 0.6
	highPerformerRate      = 0.85
	lowEngagementTrend     = 0.5
	largePrerequisiteGap   = 0.3
	highStressLevel        = 0.7
	strongFlowIndicator    = 0.8
	highConfusionIndicator = 0.6
	microAdaptationDecay   = 0.7
)

// Base returns the unmodified table row for a stage. This is also the
// WeightCalculationError fallback.
func Base(stage engine.Stage) (engine.WeightVector, error) {
	w, ok := baseTable[stage]
	if !ok {
		return engine.WeightVector{}, fmt.Errorf("no base weights for stage %q", stage)
	}
	return w, nil
}

// Current applies the performance adaptations and decayed micro-adaptations to
// the stage's base row, then renormalizes so the result sums to exactly 1.0.
// Invalid signals produce ErrWeightCalculation; the caller should then use
// Base.
func Current(stage engine.Stage, sig engine.PerformanceSignals) (engine.WeightVector, error) {
	w, err := Base(stage)
	if err != nil {
		return engine.WeightVector{}, err
	}
	if err := validateSignals(sig); err != nil {
		return engine.WeightVector{}, err
	}

	// Performance adaptations: additive and independent, several can apply in
	// one tick.
	if sig.SuccessRate < strugglingSuccessRate {
		w.Learner += 0.10
		w.Knowledge -= 0.05
		w.Assessment -= 0.05
	}
	if sig.SuccessRate > highPerformerRate {
		w.Assessment += 0.08
		w.Learner -= 0.05
		w.Engagement -= 0.03
	}
	if sig.EngagementTrend < lowEngagementTrend {
		w.Engagement += 0.12
		w.Knowledge -= 0.07
		w.Assessment -= 0.05
	}
	if sig.PrerequisiteGap > largePrerequisiteGap {
		w.Knowledge += 0.10
		w.Learner -= 0.05
		w.Engagement -= 0.05
	}

	// Micro-adaptations react to momentary state and decay fast; the delta is
	// scaled down before it is added.
	if sig.StressLevel > highStressLevel {
		w.Learner += microAdaptationDecay * 0.15
		w.Assessment -= microAdaptationDecay * 0.10
		w.Knowledge -= microAdaptationDecay * 0.05
	}
	if sig.FlowIndicator > strongFlowIndicator {
		w.Learner -= microAdaptationDecay * 0.10
		w.Engagement -= microAdaptationDecay * 0.05
		w.Assessment += microAdaptationDecay * 0.15
	}
	if sig.ConfusionIndicator > highConfusionIndicator {
		w.Knowledge += microAdaptationDecay * 0.12
		w.Assessment -= microAdaptationDecay * 0.08
		w.Engagement -= microAdaptationDecay * 0.04
	}

	return w.Normalize(), nil
}

func validateSignals(sig engine.PerformanceSignals) error {
	checks := []struct {
		name  string
		value float64
	}{
		{"success_rate", sig.SuccessRate},
		{"engagement_trend", sig.EngagementTrend},
		{"prerequisite_gap", sig.PrerequisiteGap},
		{"stress_level", sig.StressLevel},
		{"flow_indicator", sig.FlowIndicator},
		{"confusion_indicator", sig.ConfusionIndicator},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > 1 || c.value != c.value {
			return fmt.Errorf("%w: %s=%v out of range", engine.ErrWeightCalculation, c.name, c.value)
		}
	}
	return nil
}
