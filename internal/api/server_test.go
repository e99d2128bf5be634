package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studyspot-cli/internal/catalog"
	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/scorer"
)

type fakeRecorder struct {
	mu   sync.Mutex
	recs []*model.QueryRecord
	err  error
}

func (f *fakeRecorder) RecordQuery(_ context.Context, rec *model.QueryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Recommend = scorer.DefaultRecommendConfig()
	cfg.Server.CORSOrigins = []string{"*"}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, rec QueryRecorder) http.Handler {
	t.Helper()
	cat, err := catalog.Load(context.Background(), catalog.Builtin())
	require.NoError(t, err)
	return NewServer(cat, scorer.NewEngine(cfg.Recommend), rec, cfg).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const strictBody = `{"origin":"sinseol","max_minutes":60,"work_type":"skip","outlet_pref":"skip",
	"vibe_pref":"skip","seating_pref":"skip","price_pref":"skip","open_late":"skip"}`

func TestHealth(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","spots":12}`, rr.Body.String())
}

func TestListSpots(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rr := do(t, h, http.MethodGet, "/spots", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Source string            `json:"source"`
		Spots  []model.StudySpot `json:"spots"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "builtin", resp.Source)
	assert.Len(t, resp.Spots, 12)
}

func TestMatchStrict(t *testing.T) {
	rec := &fakeRecorder{}
	h := newTestServer(t, testConfig(), rec)

	rr := do(t, h, http.MethodPost, "/match/strict", strictBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Count   int           `json:"count"`
		Matches []model.Match `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	// Every builtin spot is within an hour of Sinseol-dong.
	assert.Equal(t, 12, resp.Count)
	assert.Len(t, resp.Matches, 12)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, model.ModeStrict, rec.recs[0].Mode)
	assert.Equal(t, 12, rec.recs[0].ResultCount)
	assert.JSONEq(t, strictBody, string(rec.recs[0].Request))
}

func TestMatchStrict_EmptyIsNotAnError(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	body := strings.Replace(strictBody, `"max_minutes":60`, `"max_minutes":1`, 1)
	rr := do(t, h, http.MethodPost, "/match/strict", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"matches":[]}`, rr.Body.String())
}

func TestMatchWeighted_Defaults(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	rr := do(t, h, http.MethodPost, "/match/weighted", strictBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out scorer.Outcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, model.ModeWeighted, out.Mode)
	require.NotNil(t, out.Ranking)
	assert.Len(t, out.Ranking.Results, 3)
	assert.Equal(t, 3, out.Ranking.Requested)
	assert.Equal(t, 1, out.Ranking.MaxScore)
	// Long explanations by default.
	assert.Contains(t, out.Ranking.Results[0].Explanation, "Travel time matched")
}

func TestRecommend_FallsBack(t *testing.T) {
	rec := &fakeRecorder{}
	h := newTestServer(t, testConfig(), rec)

	body := strings.Replace(strictBody, `"max_minutes":60`, `"max_minutes":1`, 1)
	rr := do(t, h, http.MethodPost, "/recommend", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var out scorer.Outcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, model.ModeAuto, out.Requested)
	assert.Equal(t, model.ModeWeighted, out.Mode)
	assert.True(t, out.FellBack)
	require.NotNil(t, out.Ranking)
	assert.Len(t, out.Ranking.Results, 3)

	require.Len(t, rec.recs, 1)
	assert.True(t, rec.recs[0].FellBack)
	assert.Equal(t, model.ModeAuto, rec.recs[0].Mode)
}

func TestQuery_InvalidInput(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"bad json", "/match/strict", `{"origin":`, "unexpected end of JSON input"},
		{"unknown origin", "/match/strict", strings.Replace(strictBody, "sinseol", "gangnam", 1), "origin"},
		{"missing attribute", "/match/strict", `{"origin":"sinseol","max_minutes":10}`, "work_type is required"},
		{"weight out of range", "/match/weighted", strings.Replace(strictBody, `"origin"`, `"travel_weight":9,"origin"`, 1), "travel_weight"},
		{"bad explain mode", "/recommend", strings.Replace(strictBody, `"origin"`, `"explain_mode":"verbose","origin"`, 1), "explain_mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
}

func TestRecordFailureDoesNotFailRequest(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database is locked")}
	h := newTestServer(t, testConfig(), rec)

	rr := do(t, h, http.MethodPost, "/recommend", strictBody)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, rec.recs, 1)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 2
	h := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/spots", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/spots", "").Code)
	rr := do(t, h, http.MethodGet, "/spots", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// Health and metrics stay outside the limiter.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)
	do(t, h, http.MethodPost, "/recommend", strictBody)

	rr := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "studyspot_queries_total")
	assert.Contains(t, rr.Body.String(), "studyspot_catalog_spots 12")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeaderIsAccepted(t *testing.T) {
	h := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
