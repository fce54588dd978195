// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/moodloop/moodloop/internal/embed"
	"github.com/moodloop/moodloop/internal/experience"
	"github.com/moodloop/moodloop/internal/logging"
	"github.com/moodloop/moodloop/internal/oracle"
	"github.com/moodloop/moodloop/internal/policy"
	"github.com/moodloop/moodloop/internal/profile"
	"github.com/moodloop/moodloop/internal/recommend"
	"github.com/moodloop/moodloop/internal/reward"
	"github.com/moodloop/moodloop/internal/session"
	"github.com/moodloop/moodloop/internal/vecindex"
)

func testItems() []profile.Item {
	return []profile.Item{
		{ContentID: "med-001", Title: "Ocean Breathing", Genres: []string{"meditation"}, Category: "meditation", DurationMinutes: 15},
		{ContentID: "com-001", Title: "Stand-Up Special", Genres: []string{"comedy"}, Category: "movie", DurationMinutes: 60},
		{ContentID: "hor-001", Title: "The Cellar", Genres: []string{"horror"}, Category: "movie", DurationMinutes: 95},
		{ContentID: "nat-001", Title: "Forest Walks", Genres: []string{"nature"}, Category: "documentary", DurationMinutes: 45},
	}
}

// newTestServer wires a full in-memory stack behind the router with rate
// limiting disabled.
func newTestServer(t *testing.T, items []profile.Item) *httptest.Server {
	t.Helper()
	logger := logging.NewTestLogger(io.Discard)

	idx := vecindex.New()
	codec := embed.NewCodec()
	profiler := profile.NewProfiler(idx, codec, logger)
	if len(items) > 0 {
		if err := profiler.Load(items); err != nil {
			t.Fatalf("load catalog: %v", err)
		}
	}

	qstore := policy.NewQStore(nil, nil, logger)
	explore := policy.NewExplorationController(policy.DefaultExplorationParams, nil, nil, logger)
	rewards := reward.NewCalculator(reward.DefaultParams)
	expLog := experience.NewLog(100, nil, nil, logger)
	sessions := session.NewStore(time.Hour, nil, logger)

	cfg := recommend.DefaultConfig
	cfg.Seed = 42
	cfg.CacheTTL = 0
	engine := recommend.NewEngine(cfg, idx, profiler, codec, qstore, explore, rewards, expLog, sessions, logger)

	catalogPath := writeCatalogFile(t, items)
	h := NewHandler(engine, oracle.NewStaticClient(), profiler, nil, catalogPath, logger)

	rcfg := DefaultRouterConfig()
	rcfg.RateLimitDisabled = true
	srv := httptest.NewServer(NewRouter(h, rcfg))
	t.Cleanup(srv.Close)
	return srv
}

func writeCatalogFile(t *testing.T, items []profile.Item) string {
	t.Helper()
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func postJSON(t *testing.T, url string, body any) (*http.Response, Envelope) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp, decodeEnvelope(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, Envelope) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) Envelope {
	t.Helper()
	defer resp.Body.Close()
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func recommendBody(userID string) map[string]any {
	return map[string]any{
		"user_id": userID,
		"current_state": map[string]any{
			"valence": -0.6, "arousal": 0.2, "stress": 0.7, "confidence": 0.9,
		},
		"limit": 3,
	}
}

func TestRecommendEndpoint(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, env := postJSON(t, srv.URL+"/api/v1/recommend", recommendBody("u1"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !env.Success || env.Error != nil {
		t.Fatalf("envelope = %+v, want success", env)
	}
	if env.Timestamp.IsZero() {
		t.Error("envelope timestamp not set")
	}

	data, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatal(err)
	}
	var out recommend.Response
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Recommendations) != 3 {
		t.Fatalf("recommendations = %d, want 3", len(out.Recommendations))
	}
	if out.ExplorationRate != 0.30 {
		t.Errorf("exploration_rate = %v, want 0.30", out.ExplorationRate)
	}
	for _, rec := range out.Recommendations {
		if rec.ContentID == "" || rec.Title == "" || rec.Reasoning == "" {
			t.Errorf("incomplete recommendation: %+v", rec)
		}
	}
}

func TestRecommendEndpointValidation(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, env := postJSON(t, srv.URL+"/api/v1/recommend", map[string]any{
		"current_state": map[string]any{"valence": 0.0},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != CodeInvalidInput {
		t.Fatalf("error = %+v, want code %s", env.Error, CodeInvalidInput)
	}
}

func TestRecommendEndpointMalformedJSON(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, err := http.Post(srv.URL+"/api/v1/recommend", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	env := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != CodeInvalidInput {
		t.Fatalf("status = %d, error = %+v; want 400 %s", resp.StatusCode, env.Error, CodeInvalidInput)
	}
}

func TestRecommendEndpointEmptyCatalog(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, env := postJSON(t, srv.URL+"/api/v1/recommend", recommendBody("u1"))
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, env = %+v; empty catalog should yield empty success", resp.StatusCode, env)
	}
}

func TestFeedbackEndpointClosesLoop(t *testing.T) {
	srv := newTestServer(t, testItems())

	_, env := postJSON(t, srv.URL+"/api/v1/recommend", recommendBody("u1"))
	data, _ := json.Marshal(env.Data)
	var out recommend.Response
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	top := out.Recommendations[0]

	resp, fenv := postJSON(t, srv.URL+"/api/v1/feedback", map[string]any{
		"user_id":    "u1",
		"content_id": top.ContentID,
		"actual_post_state": map[string]any{
			"valence": 0.2, "arousal": -0.2, "stress": 0.35, "confidence": 0.85,
		},
		"watch_duration": 880.0,
		"total_duration": 900.0,
		"completed":      true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feedback status = %d: %+v", resp.StatusCode, fenv.Error)
	}

	fdata, _ := json.Marshal(fenv.Data)
	var result recommend.FeedbackResult
	if err := json.Unmarshal(fdata, &result); err != nil {
		t.Fatal(err)
	}
	if !result.PolicyUpdated {
		t.Error("policy_updated = false")
	}
	if result.Reward.Total <= 0 {
		t.Errorf("reward = %v, want positive for a well-aligned transition", result.Reward.Total)
	}
	if result.LearningProgress.TotalExperiences != 1 {
		t.Errorf("total_experiences = %d, want 1", result.LearningProgress.TotalExperiences)
	}
}

func TestFeedbackEndpointNoPendingSession(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, env := postJSON(t, srv.URL+"/api/v1/feedback", map[string]any{
		"user_id":    "ghost",
		"content_id": "med-001",
		"actual_post_state": map[string]any{
			"valence": 0.1, "arousal": 0.0, "stress": 0.4, "confidence": 0.8,
		},
		"watch_duration": 100.0,
		"total_duration": 900.0,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != CodeInvalidInput {
		t.Fatalf("error = %+v, want %s", env.Error, CodeInvalidInput)
	}
	if reason := env.Error.Details["reason"]; reason != ReasonNoPendingSession {
		t.Errorf("details.reason = %v, want %s", reason, ReasonNoPendingSession)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, env := postJSON(t, srv.URL+"/api/v1/emotion/analyze", map[string]any{
		"user_id": "u1",
		"text":    "I feel anxious and overwhelmed by work stress",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, env.Error)
	}

	data, _ := json.Marshal(env.Data)
	var out analyzeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.State.PrimaryEmotion == "" {
		t.Error("primary_emotion missing")
	}
	if out.State.Valence >= 0 {
		t.Errorf("valence = %v, want negative for anxious text", out.State.Valence)
	}
	if out.Desired.Reason == "" {
		t.Error("desired reasoning missing")
	}
	if out.Desired.TargetStress >= out.State.Stress {
		t.Errorf("target stress %v not below current %v", out.Desired.TargetStress, out.State.Stress)
	}
}

func TestAnalyzeEndpointRequiresText(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, env := postJSON(t, srv.URL+"/api/v1/emotion/analyze", map[string]any{"user_id": "u1"})
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != CodeInvalidInput {
		t.Fatalf("status = %d, error = %+v; want 400 %s", resp.StatusCode, env.Error, CodeInvalidInput)
	}
}

func TestProgressEndpoints(t *testing.T) {
	srv := newTestServer(t, testItems())

	// Fresh user: full view and summary agree on the exploring stage.
	resp, env := getJSON(t, srv.URL+"/api/v1/progress/u1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress status = %d", resp.StatusCode)
	}
	data, _ := json.Marshal(env.Data)
	var p experience.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Stage != experience.StageExploring {
		t.Errorf("stage = %q, want %q", p.Stage, experience.StageExploring)
	}

	resp, env = getJSON(t, srv.URL+"/api/v1/progress/u1/summary")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	sdata, _ := json.Marshal(env.Data)
	var s progressSummary
	if err := json.Unmarshal(sdata, &s); err != nil {
		t.Fatal(err)
	}
	if s.Stage != p.Stage || s.Epsilon != p.Epsilon {
		t.Errorf("summary %+v disagrees with full view %+v", s, p)
	}
}

func TestPolicyResetEndpoint(t *testing.T) {
	srv := newTestServer(t, testItems())

	// Drive epsilon down with a few feedback rounds.
	for i := 0; i < 3; i++ {
		_, env := postJSON(t, srv.URL+"/api/v1/recommend", recommendBody("u1"))
		data, _ := json.Marshal(env.Data)
		var out recommend.Response
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatal(err)
		}
		postJSON(t, srv.URL+"/api/v1/feedback", map[string]any{
			"user_id":    "u1",
			"content_id": out.Recommendations[0].ContentID,
			"actual_post_state": map[string]any{
				"valence": 0.2, "arousal": -0.2, "stress": 0.35, "confidence": 0.85,
			},
			"watch_duration": 880.0,
			"total_duration": 900.0,
			"completed":      true,
		})
	}

	resp, env := postJSON(t, srv.URL+"/api/v1/policy/u1/reset", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}
	data, _ := json.Marshal(env.Data)
	var out struct {
		Epsilon float64 `json:"epsilon"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Epsilon != 0.30 {
		t.Errorf("epsilon after reset = %v, want initial 0.30", out.Epsilon)
	}
}

func TestPolicyResetScopes(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, env := postJSON(t, srv.URL+"/api/v1/policy/u1/reset?scope=full", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("full reset status = %d: %+v", resp.StatusCode, env.Error)
	}
	data, _ := json.Marshal(env.Data)
	var out struct {
		Scope string `json:"scope"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Scope != "full" {
		t.Errorf("scope = %q, want full", out.Scope)
	}

	resp, env = postJSON(t, srv.URL+"/api/v1/policy/u1/reset?scope=everything", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != CodeInvalidInput {
		t.Errorf("bad scope: status = %d, error = %+v; want 400 %s", resp.StatusCode, env.Error, CodeInvalidInput)
	}
}

func TestCatalogReloadEndpoint(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, env := postJSON(t, srv.URL+"/api/v1/catalog/reload", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d: %+v", resp.StatusCode, env.Error)
	}
	data, _ := json.Marshal(env.Data)
	var out struct {
		Items int `json:"items"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Items != len(testItems()) {
		t.Errorf("items = %d, want %d", out.Items, len(testItems()))
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, _ := getJSON(t, srv.URL+"/api/v1/health/live")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d, want 200", resp.StatusCode)
	}

	resp, _ = getJSON(t, srv.URL+"/api/v1/health/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", resp.StatusCode)
	}

	// No catalog: not ready.
	empty := newTestServer(t, nil)
	resp, env := getJSON(t, empty.URL+"/api/v1/health/ready")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status on empty catalog = %d, want 503", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != CodeInternal {
		t.Errorf("error = %+v, want %s", env.Error, CodeInternal)
	}
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	srv := newTestServer(t, testItems())

	resp, err := http.Get(srv.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRateLimitRejects(t *testing.T) {
	logger := logging.NewTestLogger(io.Discard)
	idx := vecindex.New()
	codec := embed.NewCodec()
	profiler := profile.NewProfiler(idx, codec, logger)
	if err := profiler.Load(testItems()); err != nil {
		t.Fatal(err)
	}
	engine := recommend.NewEngine(recommend.DefaultConfig, idx, profiler, codec,
		policy.NewQStore(nil, nil, logger),
		policy.NewExplorationController(policy.DefaultExplorationParams, nil, nil, logger),
		reward.NewCalculator(reward.DefaultParams),
		experience.NewLog(100, nil, nil, logger),
		session.NewStore(time.Hour, nil, logger),
		logger)
	h := NewHandler(engine, oracle.NewStaticClient(), profiler, nil, "", logger)

	cfg := DefaultRouterConfig()
	cfg.ReadPerMinute = 2
	srv := httptest.NewServer(NewRouter(h, cfg))
	defer srv.Close()

	var last int
	var lastEnv Envelope
	for i := 0; i < 4; i++ {
		resp, env := getJSON(t, fmt.Sprintf("%s/api/v1/health/live", srv.URL))
		last = resp.StatusCode
		lastEnv = env
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want 429", last)
	}
	if lastEnv.Error == nil || lastEnv.Error.Code != CodeInternal {
		t.Errorf("rate limit error = %+v, want %s envelope", lastEnv.Error, CodeInternal)
	}
}
