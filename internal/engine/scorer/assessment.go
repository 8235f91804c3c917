package scorer

import (
	"fmt"
	"math"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

// Assessment confidence sub-factor weights.
const (
	assessmentRecentWeight        = 0.30
	assessmentConsistencyWeight   = 0.25
	assessmentTransferWeight      = 0.20
	assessmentMetacognitiveWeight = 0.10
	assessmentPeerWeight          = 0.10
	assessmentAuthenticWeight     = 0.05

	// Recent performance looks at the last 10 events with exponential decay
	// per step back from the newest.
	recentEventWindow = 10
	recentEventDecay  = 0.9
)

// AssessmentScorer scores assessment confidence from recent graded events plus
// consistency, transfer, metacognition, peer and authentic-task signals.
type AssessmentScorer struct{}

func (AssessmentScorer) Domain() engine.Domain { return engine.DomainAssessment }

func (s AssessmentScorer) Score(b engine.FeatureBundle, mode engine.ComputeMode) (engine.ScoreResult, error) {
	start := time.Now()
	if err := checkDomain(b, engine.DomainAssessment); err != nil {
		return engine.ScoreResult{}, err
	}
	if len(b.Events) == 0 {
		return engine.ScoreResult{}, fmt.Errorf("%w: assessment/events", engine.ErrIncompleteFeatureData)
	}

	if mode == engine.ModeSimplified {
		// Plain average of the recent window, no decay or difficulty scaling.
		n := len(b.Events)
		if n > recentEventWindow {
			n = recentEventWindow
		}
		var sum float64
		for _, e := range b.Events[:n] {
			sum += e.Score
		}
		return result(engine.DomainAssessment, sum/float64(n), mode, start), nil
	}

	recent := recentPerformance(b.Events)

	consistency, err := b.Feature("competency_consistency")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	transfer, err := b.Feature("transfer_evidence")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	metacognitive, err := b.Feature("metacognitive_accuracy")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	peer, err := b.Feature("peer_validation")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	authentic, err := b.Feature("authentic_performance")
	if err != nil {
		return engine.ScoreResult{}, err
	}

	v := assessmentRecentWeight*recent +
		assessmentConsistencyWeight*consistency +
		assessmentTransferWeight*transfer +
		assessmentMetacognitiveWeight*metacognitive +
		assessmentPeerWeight*peer +
		assessmentAuthenticWeight*authentic
	return result(engine.DomainAssessment, v, mode, start), nil
}

// recentPerformance is the exponentially decayed average of the last 10 events
// (newest first), scaled by a difficulty adjustment so strong scores on hard
// material count for more than strong scores on easy material.
func recentPerformance(events []engine.AssessmentEvent) float64 {
	n := len(events)
	if n > recentEventWindow {
		n = recentEventWindow
	}
	var weighted, norm, difficulty float64
	for i := 0; i < n; i++ {
		w := math.Pow(recentEventDecay, float64(i))
		weighted += events[i].Score * w
		norm += w
		difficulty += events[i].Difficulty
	}
	avg := weighted / norm
	meanDifficulty := engine.Clamp01(difficulty / float64(n))

	// Maps mean difficulty 0..1 onto a 0.75..1.25 multiplier.
	adjustment := 0.75 + 0.5*meanDifficulty
	return engine.Clamp01(avg * adjustment)
}
