package scorer

import (
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

// Learner readiness sub-factor weights.
const (
	learnerStaticWeight     = 0.20
	learnerBehaviorWeight   = 0.30
	learnerTrajectoryWeight = 0.35
	learnerPsychWeight      = 0.15

	trajectoryVelocityWeight = 0.50
	trajectoryBreadthWeight  = 0.30
	trajectoryMasteryWeight  = 0.20

	// referenceVelocity is the rate the learning-velocity ratio is capped
	// against.
	referenceVelocity = 1.0

	// masteryThreshold is the level above which a competency counts as
	// mastered for the trajectory mastery ratio.
	masteryThreshold = 0.8
)

// LearnerScorer scores learner readiness from profile, behavior, trajectory
// and psychological-state features.
type LearnerScorer struct{}

func (LearnerScorer) Domain() engine.Domain { return engine.DomainLearner }

func (s LearnerScorer) Score(b engine.FeatureBundle, mode engine.ComputeMode) (engine.ScoreResult, error) {
	start := time.Now()
	if err := checkDomain(b, engine.DomainLearner); err != nil {
		return engine.ScoreResult{}, err
	}

	behavior, err := b.Feature("behavioral_pattern")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	if mode == engine.ModeSimplified {
		// Behavior is the cheapest signal that still tracks the full score.
		return result(engine.DomainLearner, behavior, mode, start), nil
	}

	static, err := b.Feature("static_profile")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	psych, err := b.Feature("psychological_state")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	trajectory, err := trajectoryScore(b)
	if err != nil {
		return engine.ScoreResult{}, err
	}

	v := learnerStaticWeight*static +
		learnerBehaviorWeight*behavior +
		learnerTrajectoryWeight*trajectory +
		learnerPsychWeight*psych
	return result(engine.DomainLearner, v, mode, start), nil
}

// trajectoryScore combines learning velocity, competency breadth and mastery
// ratio into the trajectory sub-score.
func trajectoryScore(b engine.FeatureBundle) (float64, error) {
	velocity, err := b.Feature("learning_velocity")
	if err != nil {
		return 0, err
	}
	expected, err := b.Feature("expected_competencies")
	if err != nil {
		return 0, err
	}

	velocityRatio := engine.Clamp01(velocity / referenceVelocity)

	var breadth float64
	if expected > 0 {
		breadth = engine.Clamp01(float64(len(b.Competencies)) / expected)
	}

	var mastery float64
	if len(b.Competencies) > 0 {
		mastered := 0
		for _, c := range b.Competencies {
			if c.Level > masteryThreshold {
				mastered++
			}
		}
		mastery = float64(mastered) / float64(len(b.Competencies))
	}

	return trajectoryVelocityWeight*velocityRatio +
		trajectoryBreadthWeight*breadth +
		trajectoryMasteryWeight*mastery, nil
}
