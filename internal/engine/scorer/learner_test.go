package scorer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

func learnerBundle() engine.FeatureBundle {
	return engine.FeatureBundle{
		Domain:    engine.DomainLearner,
		Timestamp: time.Now(),
		Features: map[string]float64{
			"static_profile":        0.6,
			"behavioral_pattern":    0.7,
			"psychological_state":   0.5,
			"learning_velocity":     0.8,
			"expected_competencies": 4,
		},
		Competencies: []engine.Competency{
			{ID: "algebra", Level: 0.9},
			{ID: "geometry", Level: 0.85},
			{ID: "fractions", Level: 0.5},
			{ID: "graphs", Level: 0.2},
		},
	}
}

func TestLearnerScoreFullMode(t *testing.T) {
	r, err := LearnerScorer{}.Score(learnerBundle(), engine.ModeFull)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	// trajectory: 0.50*0.8 + 0.30*(4/4) + 0.20*(2/4) = 0.8
	want := 0.20*0.6 + 0.30*0.7 + 0.35*0.8 + 0.15*0.5
	if math.Abs(r.Value-want) > 1e-9 {
		t.Fatalf("learner score = %v, want %v", r.Value, want)
	}
}

func TestLearnerSimplifiedUsesBehaviorOnly(t *testing.T) {
	b := engine.FeatureBundle{
		Domain:   engine.DomainLearner,
		Features: map[string]float64{"behavioral_pattern": 0.7},
	}
	r, err := LearnerScorer{}.Score(b, engine.ModeSimplified)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if r.Value != 0.7 {
		t.Fatalf("simplified learner score = %v, want 0.7", r.Value)
	}
}

func TestTrajectoryVelocityCapped(t *testing.T) {
	b := learnerBundle()
	b.Features["learning_velocity"] = 3.5
	b.Competencies = nil
	v, err := trajectoryScore(b)
	if err != nil {
		t.Fatalf("trajectoryScore: %v", err)
	}
	// Velocity ratio caps at 1.0; no competencies means zero breadth and mastery.
	if math.Abs(v-0.50) > 1e-9 {
		t.Fatalf("trajectory = %v, want 0.50", v)
	}
}

func TestLearnerMissingFeature(t *testing.T) {
	b := learnerBundle()
	delete(b.Features, "psychological_state")
	_, err := LearnerScorer{}.Score(b, engine.ModeFull)
	if !errors.Is(err, engine.ErrIncompleteFeatureData) {
		t.Fatalf("expected ErrIncompleteFeatureData, got %v", err)
	}
}

func TestLearnerScoreClamped(t *testing.T) {
	b := learnerBundle()
	for k := range b.Features {
		b.Features[k] = 1.0
	}
	b.Features["learning_velocity"] = 10
	b.Features["expected_competencies"] = 1
	r, err := LearnerScorer{}.Score(b, engine.ModeFull)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if r.Value < 0 || r.Value > 1 {
		t.Fatalf("score %v out of [0,1]", r.Value)
	}
}
