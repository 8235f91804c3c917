package scorer

import (
	"errors"
	"math"
	"testing"

	"github.com/yungbote/transition-engine/internal/engine"
)

func assessmentBundle(events []engine.AssessmentEvent) engine.FeatureBundle {
	return engine.FeatureBundle{
		Domain: engine.DomainAssessment,
		Features: map[string]float64{
			"competency_consistency": 0.8,
			"transfer_evidence":      0.6,
			"metacognitive_accuracy": 0.7,
			"peer_validation":        0.5,
			"authentic_performance":  0.4,
		},
		Events: events,
	}
}

func TestRecentPerformanceDecay(t *testing.T) {
	// Newest event dominates: a perfect newest score against a failed older one
	// must land above the plain average.
	events := []engine.AssessmentEvent{
		{Score: 1.0, Difficulty: 0.5},
		{Score: 0.0, Difficulty: 0.5},
	}
	got := recentPerformance(events)
	// (1.0*1 + 0.0*0.9) / 1.9 = 0.5263..., adjustment at difficulty 0.5 is 1.0.
	want := 1.0 / 1.9
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("recentPerformance = %v, want %v", got, want)
	}
}

func TestRecentPerformanceWindowCap(t *testing.T) {
	// 15 events, the last 5 are zeros outside the window and must not matter.
	events := make([]engine.AssessmentEvent, 15)
	for i := range events {
		events[i] = engine.AssessmentEvent{Score: 0.9, Difficulty: 0.5}
	}
	for i := 10; i < 15; i++ {
		events[i].Score = 0
	}
	got := recentPerformance(events)
	if math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("recentPerformance = %v, want 0.9", got)
	}
}

func TestDifficultyAdjustmentScalesRecent(t *testing.T) {
	hard := recentPerformance([]engine.AssessmentEvent{{Score: 0.6, Difficulty: 1.0}})
	easy := recentPerformance([]engine.AssessmentEvent{{Score: 0.6, Difficulty: 0.0}})
	if math.Abs(hard-0.6*1.25) > 1e-9 {
		t.Fatalf("hard-material performance = %v, want %v", hard, 0.6*1.25)
	}
	if math.Abs(easy-0.6*0.75) > 1e-9 {
		t.Fatalf("easy-material performance = %v, want %v", easy, 0.6*0.75)
	}
}

func TestAssessmentScoreFullMode(t *testing.T) {
	events := []engine.AssessmentEvent{{Score: 0.8, Difficulty: 0.5}}
	r, err := AssessmentScorer{}.Score(assessmentBundle(events), engine.ModeFull)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := 0.30*0.8 + 0.25*0.8 + 0.20*0.6 + 0.10*0.7 + 0.10*0.5 + 0.05*0.4
	if math.Abs(r.Value-want) > 1e-9 {
		t.Fatalf("assessment score = %v, want %v", r.Value, want)
	}
}

func TestAssessmentSimplifiedPlainAverage(t *testing.T) {
	events := []engine.AssessmentEvent{
		{Score: 1.0, Difficulty: 0.9},
		{Score: 0.5, Difficulty: 0.1},
	}
	r, err := AssessmentScorer{}.Score(assessmentBundle(events), engine.ModeSimplified)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(r.Value-0.75) > 1e-9 {
		t.Fatalf("simplified assessment score = %v, want 0.75", r.Value)
	}
}

func TestAssessmentNoEvents(t *testing.T) {
	_, err := AssessmentScorer{}.Score(assessmentBundle(nil), engine.ModeFull)
	if !errors.Is(err, engine.ErrIncompleteFeatureData) {
		t.Fatalf("expected ErrIncompleteFeatureData, got %v", err)
	}
}
