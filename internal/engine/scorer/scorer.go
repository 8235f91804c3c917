// Package scorer holds the four model scorers. Each one is a pure function of
// its feature bundle plus fixed per-domain constants, which is what makes the
// computation cache sound. The per-domain sub-factor weights are compiled-in
// constants, distinct from the runtime cross-domain WeightVector.
package scorer

import (
	"fmt"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

// Scorer converts one domain's feature bundle into a normalized score.
type Scorer interface {
	Domain() engine.Domain
	Score(bundle engine.FeatureBundle, mode engine.ComputeMode) (engine.ScoreResult, error)
}

// ForDomain returns the scorer for a scoring domain.
func ForDomain(d engine.Domain) (Scorer, error) {
	switch d {
	case engine.DomainLearner:
		return LearnerScorer{}, nil
	case engine.DomainKnowledge:
		return KnowledgeScorer{}, nil
	case engine.DomainEngagement:
		return EngagementScorer{}, nil
	case engine.DomainAssessment:
		return AssessmentScorer{}, nil
	default:
		return nil, fmt.Errorf("no scorer for domain %q", d)
	}
}

// All returns the four scorers in canonical domain order.
func All() []Scorer {
	return []Scorer{LearnerScorer{}, KnowledgeScorer{}, EngagementScorer{}, AssessmentScorer{}}
}

func checkDomain(b engine.FeatureBundle, want engine.Domain) error {
	if b.Domain != want {
		return fmt.Errorf("%w: scorer %s got bundle %s", engine.ErrDomainMismatch, want, b.Domain)
	}
	return nil
}

func result(d engine.Domain, value float64, mode engine.ComputeMode, start time.Time) engine.ScoreResult {
	return engine.ScoreResult{
		Domain:   d,
		Value:    engine.Clamp01(value),
		Duration: time.Since(start),
		Mode:     mode,
	}
}
