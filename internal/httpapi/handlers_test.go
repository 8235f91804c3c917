package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/transition-engine/internal/config"
	"github.com/yungbote/transition-engine/internal/engine/integrator"
	"github.com/yungbote/transition-engine/internal/observability"
	"github.com/yungbote/transition-engine/internal/platform/logger"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	eng := integrator.New(integrator.Config{Seed: 1}, integrator.Deps{Log: log})
	h := NewTickHandler(eng, log)
	cfg := &config.Config{Env: "test"}
	return NewRouter(cfg, log, observability.NewMetrics(), h)
}

func tickBody() map[string]any {
	features := func(kv map[string]float64) map[string]any {
		return map[string]any{"features": kv}
	}
	return map[string]any{
		"learner_id": "learner-1",
		"stage":      "practice",
		"bundles": map[string]any{
			"learner": features(map[string]float64{
				"static_profile":        0.6,
				"behavioral_pattern":    0.7,
				"psychological_state":   0.5,
				"learning_velocity":     0.8,
				"expected_competencies": 3,
			}),
			"knowledge": features(map[string]float64{
				"prerequisite_completion": 0.8,
				"content_difficulty":      0.6,
				"learner_competency":      0.45,
				"objective_clarity":       0.9,
				"engagement_potential":    0.7,
				"real_world_relevance":    0.5,
			}),
			"engagement": features(map[string]float64{
				"session_engagement":       0.9,
				"historical_consistency":   0.6,
				"vr_presence":              0.8,
				"social_engagement":        0.3,
				"predicted_sustainability": 0.7,
			}),
			"assessment": map[string]any{
				"features": map[string]float64{
					"competency_consistency": 0.8,
					"transfer_evidence":      0.6,
					"metacognitive_accuracy": 0.7,
					"peer_validation":        0.5,
					"authentic_performance":  0.4,
				},
				"events": []map[string]any{
					{"score": 0.8, "difficulty": 0.5},
					{"score": 0.7, "difficulty": 0.6},
				},
			},
		},
		"recent_performance": map[string]float64{
			"success_rate":     0.7,
			"engagement_trend": 0.7,
		},
	}
}

func postTick(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/tick", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTickEndpoint(t *testing.T) {
	router := testRouter(t)

	w := postTick(t, router, tickBody())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TickResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.TickID == "" {
		t.Fatal("empty tick_id")
	}
	if resp.TransitionState < 0 || resp.TransitionState > 1 {
		t.Fatalf("transition_state %v out of range", resp.TransitionState)
	}
	if resp.Stage != "practice" {
		t.Fatalf("stage = %q", resp.Stage)
	}
	if sum := resp.WeightsUsed.Sum(); math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("weights sum %v, want 1.0", sum)
	}
	if resp.DegradedMode {
		// All four bundles were complete.
		t.Fatalf("degraded response: %s", resp.DegradedReason)
	}
	if len(resp.ScorerResults) != 4 {
		t.Fatalf("scorer_results has %d entries", len(resp.ScorerResults))
	}
}

func TestTickDegradedOnMissingBundle(t *testing.T) {
	router := testRouter(t)

	body := tickBody()
	bundles := body["bundles"].(map[string]any)
	delete(bundles, "assessment")

	w := postTick(t, router, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TickResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.DegradedMode {
		t.Fatal("missing bundle response not degraded")
	}
	if resp.WeightsUsed.Assessment != 0 {
		t.Fatalf("missing domain kept weight %v", resp.WeightsUsed.Assessment)
	}
}

func TestTickRejectsBadRequests(t *testing.T) {
	router := testRouter(t)

	cases := []struct {
		name string
		body any
	}{
		{"missing learner_id", map[string]any{"stage": "practice"}},
		{"bad stage", map[string]any{"learner_id": "l", "stage": "phd"}},
	}
	for _, tc := range cases {
		w := postTick(t, router, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tc.name, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/tick", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d", w.Code)
	}
}

func TestSessionStateLifecycle(t *testing.T) {
	router := testRouter(t)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := get("/v1/sessions/learner-1/state"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", w.Code)
	}

	if w := postTick(t, router, tickBody()); w.Code != http.StatusOK {
		t.Fatalf("tick status = %d", w.Code)
	}
	w := get("/v1/sessions/learner-1/state")
	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d", w.Code)
	}
	var state struct {
		TransitionState float64 `json:"transition_state"`
		Stage           string  `json:"stage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if state.Stage != "practice" {
		t.Fatalf("stage = %q", state.Stage)
	}

	del := httptest.NewRecorder()
	router.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/v1/sessions/learner-1", nil))
	if del.Code != http.StatusOK {
		t.Fatalf("delete status = %d", del.Code)
	}
	if w := get("/v1/sessions/learner-1/state"); w.Code != http.StatusNotFound {
		t.Fatalf("deleted session status = %d", w.Code)
	}
}

func TestHealthcheckAndMetrics(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthcheck status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("te_")) {
		t.Fatalf("metrics body missing series: %s", w.Body.String())
	}
}
