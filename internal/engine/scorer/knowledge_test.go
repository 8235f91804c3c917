package scorer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

func knowledgeBundle(features map[string]float64) engine.FeatureBundle {
	return engine.FeatureBundle{
		Domain:    engine.DomainKnowledge,
		Timestamp: time.Now(),
		Features:  features,
	}
}

func TestDifficultyAlignmentInsideFlowChannel(t *testing.T) {
	// difficulty = competency + 0.2 sits inside [competency+0.1, competency+0.3].
	if got := difficultyAlignment(0.6, 0.4); got != 1.0 {
		t.Fatalf("in-channel alignment = %v, want 1.0", got)
	}
	if got := difficultyAlignment(0.5, 0.4); got != 1.0 {
		t.Fatalf("channel floor alignment = %v, want 1.0", got)
	}
	if got := difficultyAlignment(0.7, 0.4); got != 1.0 {
		t.Fatalf("channel ceiling alignment = %v, want 1.0", got)
	}
}

func TestDifficultyAlignmentOverchallenge(t *testing.T) {
	// 0.2 above the channel ceiling: 1.0 - 0.2*3 = 0.4.
	got := difficultyAlignment(0.4+0.5, 0.4)
	if math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("overchallenge alignment = %v, want 0.4", got)
	}
	// Far above the ceiling it floors at 0.1.
	if got := difficultyAlignment(2.0, 0.4); got != 0.1 {
		t.Fatalf("extreme overchallenge alignment = %v, want 0.1", got)
	}
}

func TestDifficultyAlignmentUnderchallenge(t *testing.T) {
	// 0.2 below the channel floor: 1.0 - 0.2*2 = 0.6.
	got := difficultyAlignment(0.3, 0.4)
	if math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("underchallenge alignment = %v, want 0.6", got)
	}
	// Far below it floors at 0.3.
	if got := difficultyAlignment(0.0, 0.9); got != 0.3 {
		t.Fatalf("extreme underchallenge alignment = %v, want 0.3", got)
	}
}

func TestKnowledgeScoreFullMode(t *testing.T) {
	b := knowledgeBundle(map[string]float64{
		"prerequisite_completion": 0.8,
		"content_difficulty":      0.6,
		"learner_competency":      0.4,
		"objective_clarity":       0.9,
		"engagement_potential":    0.7,
		"real_world_relevance":    0.5,
	})
	r, err := KnowledgeScorer{}.Score(b, engine.ModeFull)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := 0.25*0.8 + 0.25*1.0 + 0.20*0.9 + 0.15*0.7 + 0.15*0.5
	if math.Abs(r.Value-want) > 1e-9 {
		t.Fatalf("knowledge score = %v, want %v", r.Value, want)
	}
	if r.Domain != engine.DomainKnowledge {
		t.Fatalf("unexpected domain %q", r.Domain)
	}
}

func TestKnowledgeMissingFeature(t *testing.T) {
	b := knowledgeBundle(map[string]float64{"content_difficulty": 0.5})
	_, err := KnowledgeScorer{}.Score(b, engine.ModeFull)
	if !errors.Is(err, engine.ErrIncompleteFeatureData) {
		t.Fatalf("expected ErrIncompleteFeatureData, got %v", err)
	}
}

func TestKnowledgeDomainMismatch(t *testing.T) {
	b := knowledgeBundle(nil)
	b.Domain = engine.DomainLearner
	_, err := KnowledgeScorer{}.Score(b, engine.ModeFull)
	if !errors.Is(err, engine.ErrDomainMismatch) {
		t.Fatalf("expected ErrDomainMismatch, got %v", err)
	}
}

func TestKnowledgeSimplifiedUsesAlignmentOnly(t *testing.T) {
	b := knowledgeBundle(map[string]float64{
		"content_difficulty": 0.6,
		"learner_competency": 0.4,
	})
	r, err := KnowledgeScorer{}.Score(b, engine.ModeSimplified)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if r.Value != 1.0 {
		t.Fatalf("simplified knowledge score = %v, want 1.0", r.Value)
	}
	if r.Mode != engine.ModeSimplified {
		t.Fatalf("mode = %q", r.Mode)
	}
}
