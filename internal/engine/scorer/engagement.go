package scorer

import (
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

// Engagement sub-factor weights.
const (
	engagementSessionWeight        = 0.40
	engagementHistoricalWeight     = 0.20
	engagementPresenceWeight       = 0.20
	engagementSocialWeight         = 0.10
	engagementSustainabilityWeight = 0.10
)

// EngagementScorer scores current and predicted engagement, VR presence
// indicators included.
type EngagementScorer struct{}

func (EngagementScorer) Domain() engine.Domain { return engine.DomainEngagement }

func (s EngagementScorer) Score(b engine.FeatureBundle, mode engine.ComputeMode) (engine.ScoreResult, error) {
	start := time.Now()
	if err := checkDomain(b, engine.DomainEngagement); err != nil {
		return engine.ScoreResult{}, err
	}

	session, err := b.Feature("session_engagement")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	if mode == engine.ModeSimplified {
		return result(engine.DomainEngagement, session, mode, start), nil
	}

	historical, err := b.Feature("historical_consistency")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	presence, err := b.Feature("vr_presence")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	social, err := b.Feature("social_engagement")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	sustainability, err := b.Feature("predicted_sustainability")
	if err != nil {
		return engine.ScoreResult{}, err
	}

	v := engagementSessionWeight*session +
		engagementHistoricalWeight*historical +
		engagementPresenceWeight*presence +
		engagementSocialWeight*social +
		engagementSustainabilityWeight*sustainability
	return result(engine.DomainEngagement, v, mode, start), nil
}
