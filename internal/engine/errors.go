package engine

import "errors"

// Failure taxonomy for scoring and integration. Scorer-level errors never
// escape a tick as hard failures; the fallback ladder resolves them and the
// caller sees a degraded result instead.
var (
	// ErrDomainMismatch means a bundle was handed to the wrong scorer.
	ErrDomainMismatch = errors.New("feature bundle domain mismatch")

	// ErrIncompleteFeatureData means a required feature was absent from the
	// bundle. The scorer refuses to guess.
	ErrIncompleteFeatureData = errors.New("incomplete feature data")

	// ErrScorerTimeout means a scorer exceeded its soft deadline.
	ErrScorerTimeout = errors.New("scorer deadline exceeded")

	// ErrWeightCalculation means adaptation inputs were invalid; the caller
	// falls back to the unmodified base table.
	ErrWeightCalculation = errors.New("weight calculation failed")

	// ErrCacheUnavailable means the computation cache rejected an operation.
	ErrCacheUnavailable = errors.New("computation cache unavailable")

	// ErrEngineTimeout means the whole tick blew the engine deadline.
	ErrEngineTimeout = errors.New("engine deadline exceeded")

	// ErrUnknownSession is returned for snapshot reads of learners that have
	// never ticked.
	ErrUnknownSession = errors.New("unknown learner session")
)
