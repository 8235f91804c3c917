// Package integrator runs the per-tick fan-out/fan-in over the four model
// scorers and owns the only mutable state in the engine: each learner's
// transition state. Ticks are strictly serialized per learner and fully
// concurrent across learners.
package integrator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/transition-engine/internal/engine"
	"github.com/yungbote/transition-engine/internal/engine/cache"
	"github.com/yungbote/transition-engine/internal/engine/monitor"
	"github.com/yungbote/transition-engine/internal/engine/scorer"
	"github.com/yungbote/transition-engine/internal/engine/weights"
	"github.com/yungbote/transition-engine/internal/observability"
	"github.com/yungbote/transition-engine/internal/platform/logger"
)

// Config carries the tunables of the integration step. All durations sit
// inside the caller's frame budget.
type Config struct {
	ScorerDeadline time.Duration
	TickDeadline   time.Duration
	FrameBudget    time.Duration

	Beta            float64
	InteractionGain float64
	MaxInteraction  float64

	StateMin     float64
	StateMax     float64
	InitialState float64

	SmoothingTau           time.Duration
	FallbackDecayPerSecond float64

	ScorerTTL      time.Duration
	IntegrationTTL time.Duration

	// Seed makes every session's stochastic term reproducible. Zero keeps
	// reproducibility per learner; vary it to decorrelate deployments.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.ScorerDeadline <= 0 {
		c.ScorerDeadline = 3 * time.Millisecond
	}
	if c.TickDeadline <= 0 {
		c.TickDeadline = 5 * time.Millisecond
	}
	if c.FrameBudget <= 0 {
		c.FrameBudget = 11 * time.Millisecond
	}
	if c.MaxInteraction <= 0 {
		c.MaxInteraction = 0.05
	}
	if c.InteractionGain == 0 {
		c.InteractionGain = 0.2
	}
	if c.StateMax <= c.StateMin {
		c.StateMin, c.StateMax = 0, 1
	}
	if c.InitialState < c.StateMin || c.InitialState > c.StateMax {
		c.InitialState = (c.StateMin + c.StateMax) / 2
	}
	if c.SmoothingTau <= 0 {
		c.SmoothingTau = 250 * time.Millisecond
	}
	if c.FallbackDecayPerSecond <= 0 || c.FallbackDecayPerSecond > 1 {
		c.FallbackDecayPerSecond = 0.95
	}
	if c.ScorerTTL <= 0 {
		c.ScorerTTL = 5 * time.Second
	}
	if c.IntegrationTTL <= 0 {
		c.IntegrationTTL = 30 * time.Second
	}
	return c
}

// Deps are the engine's collaborators. Metrics and Sink may be nil; Now
// defaults to time.Now and exists so tests can freeze the clock; Scorers
// defaults to the four production scorers.
type Deps struct {
	Log     *logger.Logger
	Cache   *cache.Cache
	Monitor *monitor.Monitor
	Metrics *observability.Metrics
	Sink    EventSink
	Now     func() time.Time
	Scorers []scorer.Scorer
}

// EventSink receives finished tick results off the hot path. Offer must never
// block; it reports false when the event was dropped.
type EventSink interface {
	Offer(engine.IntegrationResult) bool
}

type session struct {
	mu    sync.Mutex
	state engine.TransitionState
	rng   *rand.Rand
}

// Engine orchestrates ticks.
type Engine struct {
	cfg     Config
	log     *logger.Logger
	cache   *cache.Cache
	monitor *monitor.Monitor
	metrics *observability.Metrics
	sink    EventSink
	now     func() time.Time
	scorers map[engine.Domain]scorer.Scorer

	mu       sync.Mutex
	sessions map[string]*session
}

func New(cfg Config, deps Deps) *Engine {
	cfg = cfg.withDefaults()
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(0)
	}
	if deps.Monitor == nil {
		deps.Monitor = monitor.New(monitor.Config{Budget: cfg.FrameBudget}, deps.Log, nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(deps.Scorers) == 0 {
		deps.Scorers = scorer.All()
	}
	scorers := make(map[engine.Domain]scorer.Scorer, len(engine.ScoringDomains))
	for _, s := range deps.Scorers {
		scorers[s.Domain()] = s
	}
	return &Engine{
		cfg:      cfg,
		log:      deps.Log.With("component", "integrator"),
		cache:    deps.Cache,
		monitor:  deps.Monitor,
		metrics:  deps.Metrics,
		sink:     deps.Sink,
		now:      deps.Now,
		scorers:  scorers,
		sessions: make(map[string]*session),
	}
}

// Tick computes the next transition state for one learner. It always returns
// a result; degraded conditions are reported through the Degraded flag, never
// as an error.
func (e *Engine) Tick(ctx context.Context, learnerID string, stage engine.Stage, bundles map[engine.Domain]engine.FeatureBundle, sig engine.PerformanceSignals) engine.IntegrationResult {
	start := e.now()
	s := e.session(learnerID, stage)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := e.monitor.Snapshot()

	var res engine.IntegrationResult
	var scores map[engine.Domain]engine.ScoreResult
	if snap.FallbackOnly {
		res = e.criticalTick(s, learnerID, stage, start)
	} else {
		var errs map[engine.Domain]error
		scores, errs = e.fanOut(ctx, learnerID, bundles, snap)
		if len(errs) == 0 {
			res = e.integrate(s, learnerID, stage, sig, scores, start)
		} else {
			res = e.fallbackTick(s, learnerID, stage, sig, scores, errs, start)
		}
	}

	res.Duration = e.now().Sub(start)
	res.State.UpdatedAt = start
	res.State.Stage = stage

	// The authoritative state is replaced wholesale, never partially mutated.
	s.state = res.State

	if !res.Degraded {
		e.cache.Put(lastResultKey(learnerID), res, e.cfg.IntegrationTTL)
	}
	e.record(res, scores, start)
	return res
}

// Snapshot returns an immutable copy of a learner's current transition state.
func (e *Engine) Snapshot(learnerID string) (engine.TransitionState, error) {
	e.mu.Lock()
	s, ok := e.sessions[learnerID]
	e.mu.Unlock()
	if !ok {
		return engine.TransitionState{}, fmt.Errorf("%w: %s", engine.ErrUnknownSession, learnerID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// Remove drops a learner session. Cached scorer results are invalidated with
// it.
func (e *Engine) Remove(learnerID string) {
	e.mu.Lock()
	_, ok := e.sessions[learnerID]
	delete(e.sessions, learnerID)
	e.mu.Unlock()
	if ok {
		for _, d := range engine.ScoringDomains {
			e.cache.Invalidate(learnerID, d)
		}
		e.cache.Invalidate(learnerID, engine.DomainIntegration)
	}
}

// Sessions reports the live session count.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *Engine) session(learnerID string, stage engine.Stage) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[learnerID]
	if !ok {
		s = &session{
			state: engine.TransitionState{Value: e.cfg.InitialState, Stage: stage},
			rng:   rand.New(rand.NewSource(e.seedFor(learnerID))),
		}
		e.sessions[learnerID] = s
	}
	return s
}

func (e *Engine) seedFor(learnerID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(learnerID))
	return int64(h.Sum64()) ^ e.cfg.Seed
}

// fanOut launches the four scorer invocations concurrently and joins on all
// of them or the tick deadline, whichever comes first. Late scorers are
// abandoned from the tick's perspective; their computations finish in the
// background and land in the cache for the next tick.
func (e *Engine) fanOut(ctx context.Context, learnerID string, bundles map[engine.Domain]engine.FeatureBundle, snap monitor.Snapshot) (map[engine.Domain]engine.ScoreResult, map[engine.Domain]error) {
	scores := make(map[engine.Domain]engine.ScoreResult, len(engine.ScoringDomains))
	errs := make(map[engine.Domain]error)

	ttl := time.Duration(float64(e.cfg.ScorerTTL) * snap.TTLScale)

	type outcome struct {
		d   engine.Domain
		r   engine.ScoreResult
		err error
	}
	ch := make(chan outcome, len(engine.ScoringDomains))

	launched := 0
	for _, d := range engine.ScoringDomains {
		b, ok := bundles[d]
		if !ok {
			errs[d] = fmt.Errorf("%w: no %s bundle", engine.ErrIncompleteFeatureData, d)
			continue
		}
		sc, ok := e.scorers[d]
		if !ok {
			errs[d] = fmt.Errorf("%w: no scorer registered for %s", engine.ErrIncompleteFeatureData, d)
			continue
		}
		launched++
		go func(d engine.Domain, sc scorer.Scorer, b engine.FeatureBundle) {
			r, err := e.scoreOne(sc, learnerID, b, snap.ScorerMode, ttl)
			ch <- outcome{d: d, r: r, err: err}
		}(d, sc, b)
	}

	deadline := time.NewTimer(e.cfg.TickDeadline)
	defer deadline.Stop()

	received := 0
join:
	for received < launched {
		select {
		case o := <-ch:
			received++
			if o.err != nil {
				errs[o.d] = o.err
			} else {
				scores[o.d] = o.r
			}
		case <-deadline.C:
			break join
		case <-ctx.Done():
			break join
		}
	}
	for _, d := range engine.ScoringDomains {
		if _, ok := scores[d]; ok {
			continue
		}
		if _, ok := errs[d]; ok {
			continue
		}
		errs[d] = fmt.Errorf("%w: %s not joined before tick deadline", engine.ErrScorerTimeout, d)
	}
	return scores, errs
}

// scoreOne routes a scorer invocation through the cache under the per-scorer
// soft deadline. On expiry the in-flight computation keeps running so its
// result can still populate the cache.
func (e *Engine) scoreOne(sc scorer.Scorer, learnerID string, b engine.FeatureBundle, mode engine.ComputeMode, ttl time.Duration) (engine.ScoreResult, error) {
	key := e.cache.KeyFor(learnerID, b, mode)

	type out struct {
		r   engine.ScoreResult
		hit bool
		err error
	}
	done := make(chan out, 1)
	go func() {
		r, hit, err := cache.GetOrCompute(e.cache, key, ttl, func() (engine.ScoreResult, error) {
			return sc.Score(b, mode)
		})
		done <- out{r: r, hit: hit, err: err}
	}()

	t := time.NewTimer(e.cfg.ScorerDeadline)
	defer t.Stop()
	select {
	case o := <-done:
		if o.err != nil {
			return engine.ScoreResult{}, o.err
		}
		o.r.CacheHit = o.hit
		return o.r, nil
	case <-t.C:
		return engine.ScoreResult{}, fmt.Errorf("%w: %s", engine.ErrScorerTimeout, b.Domain)
	}
}

// integrate is the nominal path: all four scores arrived in time.
func (e *Engine) integrate(s *session, learnerID string, stage engine.Stage, sig engine.PerformanceSignals, scores map[engine.Domain]engine.ScoreResult, start time.Time) engine.IntegrationResult {
	wv, err := weights.Current(stage, sig)
	if err != nil {
		// Invalid adaptation inputs always fall back to the unmodified base
		// row; the tick itself is still a full four-domain computation.
		wv, _ = weights.Base(stage)
		e.log.Warn("weight adaptation rejected, using base table", "stage", string(stage), "error", err)
	}

	var sum float64
	for _, d := range engine.ScoringDomains {
		sum += wv.For(d) * scores[d].Value
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

// interaction is the bounded cross-domain correction: centered pairwise
// products weighted by both domains' weights. High engagement together with
// high knowledge readiness reinforces more than either alone; two weak
// domains drag the sum down symmetrically.
func (e *Engine) interaction(wv engine.WeightVector, scores map[engine.Domain]engine.ScoreResult) float64 {
	var raw float64
	ds := engine.ScoringDomains
	for i := 0; i < len(ds); i++ {
		si, ok := scores[ds[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(ds); j++ {
			sj, ok := scores[ds[j]]
			if !ok {
				continue
			}
			raw += wv.For(ds[i]) * wv.For(ds[j]) * (si.Value - 0.5) * (sj.Value - 0.5)
		}
	}
	return engine.Clamp(e.cfg.InteractionGain*raw, -e.cfg.MaxInteraction, e.cfg.MaxInteraction)
}

// noise is the bounded Gaussian exploration term, expressed as a fraction of
// the state range.
func (e *Engine) noise(s *session) float64 {
	return e.cfg.Beta * engine.Clamp(s.rng.NormFloat64()*0.25, -1, 1)
}

// advance blends the integrated target into the previous state with a
// time-constant smoothing factor, applies the stochastic term, and clamps to
// the valid range.
func (e *Engine) advance(s *session, integrated, noise float64, start time.Time) float64 {
	width := e.cfg.StateMax - e.cfg.StateMin
	target := e.cfg.StateMin + width*engine.Clamp01(integrated)

	alpha := 1.0
	if !s.state.UpdatedAt.IsZero() {
		dt := start.Sub(s.state.UpdatedAt)
		if dt < 0 {
			dt = 0
		}
		alpha = 1 - math.Exp(-float64(dt)/float64(e.cfg.SmoothingTau))
	}
	next := s.state.Value + alpha*(target-s.state.Value) + noise*width
	return engine.Clamp(next, e.cfg.StateMin, e.cfg.StateMax)
}

// tickID draws from the session RNG so a fixed seed reproduces the whole
// result, id included.
func (e *Engine) tickID(s *session) string {
	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func lastResultKey(learnerID string) cache.Key {
	return cache.Key{LearnerID: learnerID, Domain: engine.DomainIntegration, Fingerprint: "last"}
}

func (e *Engine) record(res engine.IntegrationResult, scores map[engine.Domain]engine.ScoreResult, start time.Time) {
	durations := make(map[engine.Domain]time.Duration, len(scores))
	for d, r := range scores {
		durations[d] = r.Duration
	}
	sample := engine.PerformanceSample{
		TickDuration:    res.Duration,
		ScorerDurations: durations,
		CacheHitRatio:   e.cache.HitRatio(),
		OverBudget:      res.Duration > e.cfg.FrameBudget,
		Timestamp:       start,
	}
	e.monitor.Observe(sample)

	if m := e.metrics; m != nil {
		status := "nominal"
		if res.Degraded {
			status = "degraded"
		}
		m.TickDuration.Observe(res.Duration.Seconds(), status)
		m.TickTotal.Inc(status, res.DegradedReason)
		for d, r := range scores {
			m.ScorerDuration.Observe(r.Duration.Seconds(), string(d), string(r.Mode))
		}
		m.CacheHitRatio.Set(sample.CacheHitRatio)
		m.MonitorLevel.Set(float64(e.monitor.Level()))
		if sample.OverBudget {
			m.OverBudget.Inc()
		}
	}

	if e.sink != nil {
		if !e.sink.Offer(res) && e.metrics != nil {
			e.metrics.EventsDropped.Inc()
		}
	}
}
