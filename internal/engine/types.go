package engine

import (
	"fmt"
	"strings"
	"time"
)

// Domain identifies one of the four model-scorer inputs. The extra
// "integration" domain exists only for cache keying of whole-tick results.
type Domain string

const (
	DomainLearner     Domain = "learner"
	DomainKnowledge   Domain = "knowledge"
	DomainEngagement  Domain = "engagement"
	DomainAssessment  Domain = "assessment"
	DomainIntegration Domain = "integration"
)

// ScoringDomains lists the four scorer domains in canonical order.
var ScoringDomains = []Domain{DomainLearner, DomainKnowledge, DomainEngagement, DomainAssessment}

// Stage is the learner's progression phase. It selects the base weight row.
type Stage string

const (
	StageOnboarding   Stage = "onboarding"
	StageIntroduction Stage = "introduction"
	StagePractice     Stage = "practice"
	StageApplication  Stage = "application"
	StageMastery      Stage = "mastery"
)

// ParseStage validates a stage label from the telemetry collaborator. A bad
// stage is the one hard error a caller can see; everything downstream degrades
// instead of failing.
func ParseStage(s string) (Stage, error) {
	switch Stage(strings.ToLower(strings.TrimSpace(s))) {
	case StageOnboarding:
		return StageOnboarding, nil
	case StageIntroduction:
		return StageIntroduction, nil
	case StagePractice:
		return StagePractice, nil
	case StageApplication:
		return StageApplication, nil
	case StageMastery:
		return StageMastery, nil
	default:
		return "", fmt.Errorf("unknown stage %q", s)
	}
}

// ComputeMode selects between the full weighted sub-factor computation and the
// cheap approximation used under load shedding.
type ComputeMode string

const (
	ModeFull       ComputeMode = "full"
	ModeSimplified ComputeMode = "simplified"
)

// Competency is one tracked skill with its current mastery level in [0,1].
type Competency struct {
	ID    string  `json:"id"`
	Level float64 `json:"level"`
}

// AssessmentEvent is one graded interaction, newest-first in
// FeatureBundle.Events.
type AssessmentEvent struct {
	Score      float64   `json:"score"`
	Difficulty float64   `json:"difficulty"`
	At         time.Time `json:"at"`
}

// FeatureBundle is the immutable per-tick input snapshot for one scorer. The
// telemetry collaborator prepares the numeric features; this engine never sees
// raw learner data. Features carries named scalars; Competencies and Events
// carry the structured inputs the learner and assessment scorers need.
type FeatureBundle struct {
	Domain       Domain             `json:"domain"`
	Timestamp    time.Time          `json:"timestamp"`
	Features     map[string]float64 `json:"features"`
	Competencies []Competency       `json:"competencies,omitempty"`
	Events       []AssessmentEvent  `json:"events,omitempty"`
}

// Feature returns a named scalar or ErrIncompleteFeatureData when absent.
// Scorers never guess a default for a required feature.
func (b FeatureBundle) Feature(name string) (float64, error) {
	v, ok := b.Features[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrIncompleteFeatureData, b.Domain, name)
	}
	return v, nil
}

// ScoreResult is one scorer's output for one tick.
type ScoreResult struct {
	Domain   Domain        `json:"domain"`
	Value    float64       `json:"value"`
	Duration time.Duration `json:"duration"`
	CacheHit bool          `json:"cache_hit"`
	Mode     ComputeMode   `json:"mode"`
}

// WeightVector holds the four cross-domain mixing proportions. Invariant after
// Normalize: components sum to 1.0 within 1e-6 and each is >= 0.
type WeightVector struct {
	Learner    float64 `json:"learner"`
	Knowledge  float64 `json:"knowledge"`
	Engagement float64 `json:"engagement"`
	Assessment float64 `json:"assessment"`
}

func (w WeightVector) Sum() float64 {
	return w.Learner + w.Knowledge + w.Engagement + w.Assessment
}

// For returns the weight for a scoring domain.
func (w WeightVector) For(d Domain) float64 {
	switch d {
	case DomainLearner:
		return w.Learner
	case DomainKnowledge:
		return w.Knowledge
	case DomainEngagement:
		return w.Engagement
	case DomainAssessment:
		return w.Assessment
	default:
		return 0
	}
}

// Normalize floors negative components at zero and proportionally rescales so
// the vector sums to exactly 1.0. Proportional rescale, never a clamp: clamping
// would silently redistribute weight toward whichever component hit a bound.
func (w WeightVector) Normalize() WeightVector {
	if w.Learner < 0 {
		w.Learner = 0
	}
	if w.Knowledge < 0 {
		w.Knowledge = 0
	}
	if w.Engagement < 0 {
		w.Engagement = 0
	}
	if w.Assessment < 0 {
		w.Assessment = 0
	}
	sum := w.Sum()
	if sum <= 0 {
		// Degenerate input: fall back to an even split.
		return WeightVector{Learner: 0.25, Knowledge: 0.25, Engagement: 0.25, Assessment: 0.25}
	}
	return WeightVector{
		Learner:    w.Learner / sum,
		Knowledge:  w.Knowledge / sum,
		Engagement: w.Engagement / sum,
		Assessment: w.Assessment / sum,
	}
}

// Validate checks the sum invariant.
func (w WeightVector) Validate() error {
	if d := w.Sum() - 1.0; d > 1e-6 || d < -1e-6 {
		return fmt.Errorf("%w: weights sum to %v", ErrWeightCalculation, w.Sum())
	}
	if w.Learner < 0 || w.Knowledge < 0 || w.Engagement < 0 || w.Assessment < 0 {
		return fmt.Errorf("%w: negative component", ErrWeightCalculation)
	}
	return nil
}

// TransitionState is the evolving decision signal. Exactly one authoritative
// instance exists per learner session; it is replaced wholesale each tick and
// external readers only ever receive copies.
type TransitionState struct {
	Value     float64   `json:"value"`
	Stage     Stage     `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PerformanceSignals is the live performance snapshot the weight manager adapts
// from. All fields are expected in [0,1].
type PerformanceSignals struct {
	SuccessRate        float64 `json:"success_rate"`
	EngagementTrend    float64 `json:"engagement_trend"`
	PrerequisiteGap    float64 `json:"prerequisite_gap"`
	StressLevel        float64 `json:"stress_level"`
	FlowIndicator      float64 `json:"flow_indicator"`
	ConfusionIndicator float64 `json:"confusion_indicator"`
}

// IntegrationResult is the output of one full tick, on either the nominal or
// the degraded path. Duration is recorded even when the fallback ladder ran.
type IntegrationResult struct {
	TickID         string                 `json:"tick_id"`
	LearnerID      string                 `json:"learner_id"`
	State          TransitionState        `json:"state"`
	Scores         map[Domain]ScoreResult `json:"scores"`
	Weights        WeightVector           `json:"weights"`
	Interaction    float64                `json:"interaction"`
	Stochastic     float64                `json:"stochastic"`
	Duration       time.Duration          `json:"duration"`
	Degraded       bool                   `json:"degraded"`
	DegradedReason string                 `json:"degraded_reason,omitempty"`
}

// PerformanceSample is one tick's timing telemetry, consumed by the monitor.
type PerformanceSample struct {
	TickDuration    time.Duration            `json:"tick_duration"`
	ScorerDurations map[Domain]time.Duration `json:"scorer_durations"`
	CacheHitRatio   float64                  `json:"cache_hit_ratio"`
	OverBudget      bool                     `json:"over_budget"`
	Timestamp       time.Time                `json:"timestamp"`
}

// Clamp bounds v to [lo, hi]. All scorers and the integrator share this policy;
// outputs are clamped, never rescaled.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to the unit interval.
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }
