package scorer

import (
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

// Content readiness sub-factor weights.
const (
	knowledgePrereqWeight    = 0.25
	knowledgeDifficultyWt    = 0.25
	knowledgeClarityWeight   = 0.20
	knowledgeEngagementWt    = 0.15
	knowledgeRelevanceWeight = 0.15

	// Flow channel: content difficulty within [competency+0.1, competency+0.3]
	// is ideally challenging.
	flowChannelLow  = 0.1
	flowChannelHigh = 0.3

	// Outside the channel the alignment score decays linearly, faster above
	// (overchallenge) than below (boredom), each to its own floor.
	underChallengeDecay = 2.0
	underChallengeFloor = 0.3
	overChallengeDecay  = 3.0
	overChallengeFloor  = 0.1
)

// KnowledgeScorer scores content readiness: how well the candidate content
// matches what the learner can absorb right now.
type KnowledgeScorer struct{}

func (KnowledgeScorer) Domain() engine.Domain { return engine.DomainKnowledge }

func (s KnowledgeScorer) Score(b engine.FeatureBundle, mode engine.ComputeMode) (engine.ScoreResult, error) {
	start := time.Now()
	if err := checkDomain(b, engine.DomainKnowledge); err != nil {
		return engine.ScoreResult{}, err
	}

	difficulty, err := b.Feature("content_difficulty")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	competency, err := b.Feature("learner_competency")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	alignment := difficultyAlignment(difficulty, competency)

	if mode == engine.ModeSimplified {
		return result(engine.DomainKnowledge, alignment, mode, start), nil
	}

	prereq, err := b.Feature("prerequisite_completion")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	clarity, err := b.Feature("objective_clarity")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	potential, err := b.Feature("engagement_potential")
	if err != nil {
		return engine.ScoreResult{}, err
	}
	relevance, err := b.Feature("real_world_relevance")
	if err != nil {
		return engine.ScoreResult{}, err
	}

	v := knowledgePrereqWeight*prereq +
		knowledgeDifficultyWt*alignment +
		knowledgeClarityWeight*clarity +
		knowledgeEngagementWt*potential +
		knowledgeRelevanceWeight*relevance
	return result(engine.DomainKnowledge, v, mode, start), nil
}

// difficultyAlignment scores how far content difficulty sits from the
// learner's flow channel.
func difficultyAlignment(difficulty, competency float64) float64 {
	lo := competency + flowChannelLow
	hi := competency + flowChannelHigh
	switch {
	case difficulty >= lo && difficulty <= hi:
		return 1.0
	case difficulty < lo:
		v := 1.0 - (lo-difficulty)*underChallengeDecay
		if v < underChallengeFloor {
			return underChallengeFloor
		}
		return v
	default:
		v := 1.0 - (difficulty-hi)*overChallengeDecay
		if v < overChallengeFloor {
			return overChallengeFloor
		}
		return v
	}
}
