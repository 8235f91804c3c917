package integrator

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
	"github.com/yungbote/transition-engine/internal/engine/weights"
)

// Degraded-result reasons, surfaced on IntegrationResult and as metric labels.
const (
	reasonPartialScores = "partial_scores"
	reasonStaleResult   = "stale_result"
	reasonNeutral       = "neutral_default"
	reasonCritical      = "critical_load_shed"
)

// fallbackTick resolves a tick when at least one scorer failed or missed its
// deadline. Ladder: renormalize over the surviving domains when two or more
// made it; otherwise decay the last good result; otherwise the neutral
// midpoint. The caller always gets a value.
func (e *Engine) fallbackTick(s *session, learnerID string, stage engine.Stage, sig engine.PerformanceSignals, scores map[engine.Domain]engine.ScoreResult, errs map[engine.Domain]error, start time.Time) engine.IntegrationResult {
	for d, err := range errs {
		e.log.Debug("scorer failed, tick degrading", "learner_id", learnerID, "domain", string(d), "error", err)
		if e.metrics != nil {
			e.metrics.ScorerError.Inc(string(d), errKind(err))
		}
	}

	if len(scores) >= 2 {
		res := e.partialIntegrate(s, learnerID, stage, sig, scores, start)
		res.Degraded = true
		res.DegradedReason = reasonPartialScores + ":" + failedList(errs)
		return res
	}

	if prev, ok := e.lastGood(learnerID); ok {
		value := e.decayToward(prev.State.Value, start.Sub(prev.State.UpdatedAt))
		return engine.IntegrationResult{
			TickID:         e.tickID(s),
			LearnerID:      learnerID,
			State:          engine.TransitionState{Value: value, Stage: stage},
			Scores:         scores,
			Weights:        prev.Weights,
			Degraded:       true,
			DegradedReason: reasonStaleResult,
		}
	}

	return engine.IntegrationResult{
		TickID:         e.tickID(s),
		LearnerID:      learnerID,
		State:          engine.TransitionState{Value: e.midpoint(), Stage: stage},
		Scores:         scores,
		Degraded:       true,
		DegradedReason: reasonNeutral,
	}
}

// partialIntegrate reruns the combination restricted to the domains that
// succeeded, with their weights renormalized to sum to 1.0.
func (e *Engine) partialIntegrate(s *session, learnerID string, stage engine.Stage, sig engine.PerformanceSignals, scores map[engine.Domain]engine.ScoreResult, start time.Time) engine.IntegrationResult {
	wv, err := weights.Current(stage, sig)
	if err != nil {
		wv, _ = weights.Base(stage)
	}
	for _, d := range engine.ScoringDomains {
		if _, ok := scores[d]; !ok {
			wv = zeroDomain(wv, d)
		}
	}
	wv = wv.Normalize()

	var sum float64
	for _, d := range engine.ScoringDomains {
		if r, ok := scores[d]; ok {
			sum += wv.For(d) * r.Value
		}
	}
	inter := e.interaction(wv, scores)
	noise := e.noise(s)
	next := e.advance(s, sum+inter, noise, start)

	return engine.IntegrationResult{
		TickID:      e.tickID(s),
		LearnerID:   learnerID,
		State:       engine.TransitionState{Value: next, Stage: stage},
		Scores:      scores,
		Weights:     wv,
		Interaction: inter,
		Stochastic:  noise,
	}
}

// criticalTick serves the terminal-but-recoverable load-shedding state: no
// scorers run at all, the last-known state is returned with time decay.
func (e *Engine) criticalTick(s *session, learnerID string, stage engine.Stage, start time.Time) engine.IntegrationResult {
	value := s.state.Value
	if !s.state.UpdatedAt.IsZero() {
		value = e.decayToward(value, start.Sub(s.state.UpdatedAt))
	}
	return engine.IntegrationResult{
		TickID:         e.tickID(s),
		LearnerID:      learnerID,
		State:          engine.TransitionState{Value: value, Stage: stage},
		Degraded:       true,
		DegradedReason: reasonCritical,
	}
}

// lastGood pulls the most recent non-degraded result from the cache; expiry
// is the integration TTL.
func (e *Engine) lastGood(learnerID string) (engine.IntegrationResult, bool) {
	v, ok := e.cache.Peek(lastResultKey(learnerID))
	if !ok {
		return engine.IntegrationResult{}, false
	}
	res, ok := v.(engine.IntegrationResult)
	return res, ok
}

// decayToward pulls a stale value toward the range midpoint, one decay factor
// per elapsed second.
func (e *Engine) decayToward(value float64, elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	factor := math.Pow(e.cfg.FallbackDecayPerSecond, elapsed.Seconds())
	mid := e.midpoint()
	return engine.Clamp(mid+(value-mid)*factor, e.cfg.StateMin, e.cfg.StateMax)
}

func (e *Engine) midpoint() float64 {
	return (e.cfg.StateMin + e.cfg.StateMax) / 2
}

func zeroDomain(wv engine.WeightVector, d engine.Domain) engine.WeightVector {
	switch d {
	case engine.DomainLearner:
		wv.Learner = 0
	case engine.DomainKnowledge:
		wv.Knowledge = 0
	case engine.DomainEngagement:
		wv.Engagement = 0
	case engine.DomainAssessment:
		wv.Assessment = 0
	}
	return wv
}

func failedList(errs map[engine.Domain]error) string {
	names := make([]string, 0, len(errs))
	for d := range errs {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func errKind(err error) string {
	switch {
	case errors.Is(err, engine.ErrDomainMismatch):
		return "domain_mismatch"
	case errors.Is(err, engine.ErrIncompleteFeatureData):
		return "incomplete_features"
	case errors.Is(err, engine.ErrScorerTimeout):
		return "timeout"
	case errors.Is(err, engine.ErrCacheUnavailable):
		return "cache_unavailable"
	case errors.Is(err, engine.ErrEngineTimeout):
		return "engine_timeout"
	default:
		return "other"
	}
}
