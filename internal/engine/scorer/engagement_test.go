package scorer

import (
	"errors"
	"math"
	"testing"

	"github.com/yungbote/transition-engine/internal/engine"
)

func TestEngagementScoreFullMode(t *testing.T) {
	b := engine.FeatureBundle{
		Domain: engine.DomainEngagement,
		Features: map[string]float64{
			"session_engagement":       0.9,
			"historical_consistency":   0.6,
			"vr_presence":              0.8,
			"social_engagement":        0.3,
			"predicted_sustainability": 0.7,
		},
	}
	r, err := EngagementScorer{}.Score(b, engine.ModeFull)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := 0.40*0.9 + 0.20*0.6 + 0.20*0.8 + 0.10*0.3 + 0.10*0.7
	if math.Abs(r.Value-want) > 1e-9 {
		t.Fatalf("engagement score = %v, want %v", r.Value, want)
	}
}

func TestEngagementSimplifiedUsesSessionOnly(t *testing.T) {
	b := engine.FeatureBundle{
		Domain:   engine.DomainEngagement,
		Features: map[string]float64{"session_engagement": 0.42},
	}
	r, err := EngagementScorer{}.Score(b, engine.ModeSimplified)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if r.Value != 0.42 {
		t.Fatalf("simplified engagement score = %v, want 0.42", r.Value)
	}
}

func TestEngagementMissingFeature(t *testing.T) {
	b := engine.FeatureBundle{
		Domain:   engine.DomainEngagement,
		Features: map[string]float64{"session_engagement": 0.9},
	}
	_, err := EngagementScorer{}.Score(b, engine.ModeFull)
	if !errors.Is(err, engine.ErrIncompleteFeatureData) {
		t.Fatalf("expected ErrIncompleteFeatureData, got %v", err)
	}
}

func TestForDomainCoversScoringDomains(t *testing.T) {
	for _, d := range engine.ScoringDomains {
		s, err := ForDomain(d)
		if err != nil {
			t.Fatalf("ForDomain(%s): %v", d, err)
		}
		if s.Domain() != d {
			t.Fatalf("scorer for %s reports %s", d, s.Domain())
		}
	}
	if _, err := ForDomain(engine.Domain("orbital")); err == nil {
		t.Fatal("expected error for unknown domain")
	}
}
