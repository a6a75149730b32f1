// README: End-to-end handler tests through the gin router with in-memory dependencies.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"shiftroute/internal/ai"
	httptransport "shiftroute/internal/http"
	"shiftroute/internal/infra"
	"shiftroute/internal/modules/aiusage"
	"shiftroute/internal/modules/demand/demandtest"
	"shiftroute/internal/modules/history"
	"shiftroute/internal/modules/planner"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

// memoryHistory is both the planner recorder and the handler history.
type memoryHistory struct {
	entries map[types.ID]history.Entry
}

func (m *memoryHistory) Record(_ context.Context, owner types.ID, r route.Route) error {
	m.entries[r.ID] = history.Entry{ID: r.ID, Owner: owner, Route: r}
	return nil
}

func (m *memoryHistory) List(_ context.Context, owner types.ID, _ int) ([]history.Summary, error) {
	var out []history.Summary
	for _, e := range m.entries {
		if e.Owner == owner {
			out = append(out, e.Summary())
		}
	}
	return out, nil
}

func (m *memoryHistory) Get(_ context.Context, owner, id types.ID) (*history.Entry, error) {
	e, ok := m.entries[id]
	if !ok || e.Owner != owner {
		return nil, history.ErrNotFound
	}
	return &e, nil
}

type stubBriefer struct {
	err   error
	calls int
}

func (b *stubBriefer) Brief(_ context.Context, r route.Route) (*ai.Briefing, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &ai.Briefing{Summary: "Plan for " + r.Algorithm}, nil
}

type stubQuota struct {
	err      error
	used     int
	refunded int
}

func (q *stubQuota) UseBriefing(context.Context, string) error {
	if q.err != nil {
		return q.err
	}
	q.used++
	return nil
}

func (q *stubQuota) RefundBriefing(context.Context, string) error {
	q.refunded++
	return nil
}

type fixture struct {
	router  *gin.Engine
	history *memoryHistory
	briefer *stubBriefer
}

func newFixture(t *testing.T, deps httptransport.RouterDeps) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hist := &memoryHistory{entries: make(map[types.ID]history.Entry)}
	opts := planner.DefaultOptions()
	opts.QLearning.Seed = 3
	opts.Greedy.Seed = 3
	svc := planner.NewService(demandtest.Table(), demandtest.GreatCircle(), opts, hist)

	deps.Planner = svc
	deps.History = hist
	if deps.Briefer == nil {
		deps.Briefer = &stubBriefer{}
	}
	deps.Verifier = infra.NoopVerifier{}
	b, _ := deps.Briefer.(*stubBriefer)
	return fixture{router: httptransport.NewRouter(deps), history: hist, briefer: b}
}

func (f fixture) do(method, path string, body any, caller string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("Authorization", "Bearer "+caller)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func optimizeBody(algorithm string) map[string]any {
	return map[string]any{
		"start":     map[string]float64{"lat": demandtest.Tanjong.Lat, "lng": demandtest.Tanjong.Lng},
		"startHour": 8,
		"endHour":   14,
		"algorithm": algorithm,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, httptransport.RouterDeps{})
	w := f.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())

	w = f.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAPI_RequiresToken(t *testing.T) {
	f := newFixture(t, httptransport.RouterDeps{})
	w := f.do(http.MethodPost, "/api/routes/optimize", optimizeBody("greedy"), "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptimize_StoresRouteForCaller(t *testing.T) {
	f := newFixture(t, httptransport.RouterDeps{})
	w := f.do(http.MethodPost, "/api/routes/optimize", optimizeBody("greedy"), "driver-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r route.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	require.Equal(t, "greedy", r.Algorithm)
	require.NoError(t, route.Verify(r, route.DefaultBreak()))

	w = f.do(http.MethodGet, "/api/routes/"+string(r.ID), nil, "driver-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/routes/"+string(r.ID), nil, "driver-2")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/routes?limit=5", nil, "driver-1")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Routes []history.Summary `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Routes, 1)
	require.Equal(t, r.ID, list.Routes[0].ID)
}

func TestOptimize_BadRequests(t *testing.T) {
	f := newFixture(t, httptransport.RouterDeps{})

	req := httptest.NewRequest(http.MethodPost, "/api/routes/optimize", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer driver-1")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/routes/optimize", optimizeBody("simulated-annealing"), "driver-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "algorithm")
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t, httptransport.RouterDeps{})
	w := f.do(http.MethodPost, "/api/dropoffs/evaluate", map[string]any{
		"start": demandtest.Tanjong,
		"candidates": []types.Point{
			demandtest.Tampines, demandtest.Novena,
		},
		"hour": 8,
	}, "driver-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Candidates []planner.DropoffEvaluation `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 2)
	require.Equal(t, demandtest.Novena, resp.Candidates[0].Location)

	w = f.do(http.MethodPost, "/api/dropoffs/evaluate", map[string]any{"start": demandtest.Tanjong, "hour": 8}, "driver-1")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommend(t *testing.T) {
	f := newFixture(t, httptransport.RouterDeps{})
	w := f.do(http.MethodPost, "/api/pickups/recommend", map[string]any{
		"dropoff": demandtest.Tanjong,
		"hour":    9,
	}, "driver-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec planner.PickupRecommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.True(t, rec.Primary.Reachable)
}

func TestBriefing(t *testing.T) {
	f := newFixture(t, httptransport.RouterDeps{})
	w := f.do(http.MethodPost, "/api/routes/optimize", optimizeBody("reinforcement"), "driver-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var r route.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))

	w = f.do(http.MethodPost, "/api/routes/"+string(r.ID)+"/briefing", nil, "driver-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "Plan for reinforcement")
	require.Equal(t, 1, f.briefer.calls)

	w = f.do(http.MethodPost, "/api/routes/not-a-uuid/briefing", nil, "driver-1")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/routes/"+uuid.NewString()+"/briefing", nil, "driver-1")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBriefing_QuotaAndFailures(t *testing.T) {
	tests := []struct {
		name string
		deps httptransport.RouterDeps
		want int
	}{
		{"quota exhausted", httptransport.RouterDeps{Quota: &stubQuota{err: aiusage.ErrQuotaExceeded}}, http.StatusTooManyRequests},
		{"model error", httptransport.RouterDeps{Briefer: &stubBriefer{err: errors.New("upstream 500")}}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.deps)
			w := f.do(http.MethodPost, "/api/routes/optimize", optimizeBody("greedy"), "driver-1")
			require.Equal(t, http.StatusOK, w.Code)
			var r route.Route
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))

			w = f.do(http.MethodPost, "/api/routes/"+string(r.ID)+"/briefing", nil, "driver-1")
			require.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestBriefing_RefundsQuotaWhenModelFails(t *testing.T) {
	tests := []struct {
		name         string
		briefer      *stubBriefer
		want         int
		wantRefunded int
	}{
		{"success keeps the charge", &stubBriefer{}, http.StatusOK, 0},
		{"model error refunds", &stubBriefer{err: errors.New("upstream 500")}, http.StatusBadGateway, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quota := &stubQuota{}
			f := newFixture(t, httptransport.RouterDeps{Briefer: tt.briefer, Quota: quota})
			w := f.do(http.MethodPost, "/api/routes/optimize", optimizeBody("greedy"), "driver-1")
			require.Equal(t, http.StatusOK, w.Code)
			var r route.Route
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))

			w = f.do(http.MethodPost, "/api/routes/"+string(r.ID)+"/briefing", nil, "driver-1")
			require.Equal(t, tt.want, w.Code, w.Body.String())
			require.Equal(t, 1, quota.used)
			require.Equal(t, tt.wantRefunded, quota.refunded)
		})
	}
}
