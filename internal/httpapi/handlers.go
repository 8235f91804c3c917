package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/transition-engine/internal/engine"
	"github.com/yungbote/transition-engine/internal/engine/integrator"
	"github.com/yungbote/transition-engine/internal/platform/logger"
)

// TickHandler exposes the integration engine to the session layer.
type TickHandler struct {
	eng *integrator.Engine
	log *logger.Logger
}

func NewTickHandler(eng *integrator.Engine, log *logger.Logger) *TickHandler {
	return &TickHandler{eng: eng, log: log.With("component", "tick_handler")}
}

// TickRequest is the per-tick input from the telemetry collaborator.
type TickRequest struct {
	LearnerID         string                          `json:"learner_id"`
	Stage             string                          `json:"stage"`
	Bundles           map[string]engine.FeatureBundle `json:"bundles"`
	RecentPerformance engine.PerformanceSignals       `json:"recent_performance"`
}

type scorerResultJSON struct {
	Value      float64 `json:"value"`
	CacheHit   bool    `json:"cache_hit"`
	DurationMS float64 `json:"duration_ms"`
}

// TickResponse mirrors the engine's IntegrationResult on the wire.
type TickResponse struct {
	TickID          string                      `json:"tick_id"`
	TransitionState float64                     `json:"transition_state"`
	Stage           string                      `json:"stage"`
	WeightsUsed     engine.WeightVector         `json:"weights_used"`
	ScorerResults   map[string]scorerResultJSON `json:"scorer_results"`
	DegradedMode    bool                        `json:"degraded_mode"`
	DegradedReason  string                      `json:"degraded_reason,omitempty"`
	DurationMS      float64                     `json:"duration_ms"`
}

// Tick runs one integration tick. Degraded conditions are normal responses;
// only a malformed request is an error.
func (h *TickHandler) Tick(c *gin.Context) {
	var req TickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.LearnerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "learner_id is required"})
		return
	}
	stage, err := engine.ParseStage(req.Stage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bundles := make(map[engine.Domain]engine.FeatureBundle, len(req.Bundles))
	for name, b := range req.Bundles {
		if b.Domain == "" {
			b.Domain = engine.Domain(name)
		}
		bundles[engine.Domain(name)] = b
	}

	res := h.eng.Tick(c.Request.Context(), req.LearnerID, stage, bundles, req.RecentPerformance)

	scorers := make(map[string]scorerResultJSON, len(res.Scores))
	for d, r := range res.Scores {
		scorers[string(d)] = scorerResultJSON{
			Value:      r.Value,
			CacheHit:   r.CacheHit,
			DurationMS: float64(r.Duration) / float64(time.Millisecond),
		}
	}
	c.JSON(http.StatusOK, TickResponse{
		TickID:          res.TickID,
		TransitionState: res.State.Value,
		Stage:           string(res.State.Stage),
		WeightsUsed:     res.Weights,
		ScorerResults:   scorers,
		DegradedMode:    res.Degraded,
		DegradedReason:  res.DegradedReason,
		DurationMS:      float64(res.Duration) / float64(time.Millisecond),
	})
}

// SessionState returns an immutable snapshot of the learner's current
// transition state.
func (h *TickHandler) SessionState(c *gin.Context) {
	state, err := h.eng.Snapshot(c.Param("learner_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown learner session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transition_state": state.Value,
		"stage":            string(state.Stage),
		"updated_at":       state.UpdatedAt,
	})
}

// DeleteSession drops the learner's session and cached computations.
func (h *TickHandler) DeleteSession(c *gin.Context) {
	h.eng.Remove(c.Param("learner_id"))
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
