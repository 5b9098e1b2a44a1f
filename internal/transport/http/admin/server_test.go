package adminhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hlrecap/internal/runner"
	"hlrecap/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuns struct {
	runs      []model.RecapRunModel
	err       error
	lastLimit int
}

func (f *fakeRuns) Save(context.Context, *model.RecapRunModel) error { return nil }

func (f *fakeRuns) Last(context.Context) (*model.RecapRunModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.runs) == 0 {
		return nil, nil
	}
	run := f.runs[0]
	return &run, nil
}

func (f *fakeRuns) List(_ context.Context, limit int) ([]model.RecapRunModel, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type fakeTrigger struct {
	report *runner.RunReport
	err    error
	calls  []model.ScanType
}

func (f *fakeTrigger) Run(_ context.Context, scan model.ScanType) (*runner.RunReport, error) {
	f.calls = append(f.calls, scan)
	return f.report, f.err
}

func (f *fakeTrigger) Running() bool { return false }

func sampleRuns() []model.RecapRunModel {
	base := time.Date(2024, 5, 2, 0, 5, 0, 0, time.UTC)
	newer := model.RecapRunModel{ID: "run-2", ScanType: model.ScanTypeScheduled, StartedAt: base.UnixMilli(), FinishedAt: base.Add(1500 * time.Millisecond).UnixMilli(), Accounts: 3, Sent: 2, Bots: 1, TotalTrades: 640}
	_ = newer.SetDetails(model.RunDetails{BotAccounts: []string{"0xbot"}})
	older := model.RecapRunModel{ID: "run-1", ScanType: model.ScanTypeOnce, StartedAt: base.Add(-24 * time.Hour).UnixMilli(), FinishedAt: base.Add(-24 * time.Hour).UnixMilli()}
	return []model.RecapRunModel{newer, older}
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func newTestServer(t *testing.T, runs *fakeRuns, trigger *fakeTrigger) *Server {
	t.Helper()
	cfg := ServerConfig{Addr: "127.0.0.1:0"}
	if runs != nil {
		cfg.Runs = runs
	}
	if trigger != nil {
		cfg.Trigger = trigger
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeRuns{}, nil)
	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","running":false}`, rec.Body.String())
}

func TestLastRun(t *testing.T) {
	s := newTestServer(t, &fakeRuns{runs: sampleRuns()}, nil)
	rec := do(t, s, http.MethodGet, "/api/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)

	var body runView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-2", body.ID)
	assert.Equal(t, model.ScanTypeScheduled, body.ScanType)
	assert.Equal(t, "2024-05-02T00:05:00Z", body.StartedAt)
	assert.Equal(t, int64(1500), body.DurationMS)
	assert.Equal(t, 640, body.TotalTrades)
	assert.Equal(t, []string{"0xbot"}, body.Details.BotAccounts)
}

func TestLastRun_Empty(t *testing.T) {
	s := newTestServer(t, &fakeRuns{}, nil)
	rec := do(t, s, http.MethodGet, "/api/runs/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastRun_StoreError(t *testing.T) {
	s := newTestServer(t, &fakeRuns{err: errors.New("locked")}, nil)
	rec := do(t, s, http.MethodGet, "/api/runs/last")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "locked")
}

func TestListRuns(t *testing.T) {
	runs := &fakeRuns{runs: sampleRuns()}
	s := newTestServer(t, runs, nil)

	rec := do(t, s, http.MethodGet, "/api/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs  []runView `json:"runs"`
		Limit int       `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "run-2", body.Runs[0].ID)
	assert.Equal(t, 1, body.Limit)

	rec = do(t, s, http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRunLimit, runs.lastLimit)

	rec = do(t, s, http.MethodGet, "/api/runs?limit=100000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxRunLimit, runs.lastLimit)

	rec = do(t, s, http.MethodGet, "/api/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/runs?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerRun(t *testing.T) {
	trigger := &fakeTrigger{report: &runner.RunReport{ID: "manual-1", ScanType: model.ScanTypeManual, Accounts: 2, Sent: 2}}
	s := newTestServer(t, &fakeRuns{}, trigger)

	rec := do(t, s, http.MethodPost, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var report runner.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "manual-1", report.ID)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, []model.ScanType{model.ScanTypeManual}, trigger.calls)
}

func TestTriggerRun_Conflict(t *testing.T) {
	trigger := &fakeTrigger{err: runner.ErrRunInProgress}
	s := newTestServer(t, nil, trigger)
	rec := do(t, s, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/runs/last")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTriggerRun_Error(t *testing.T) {
	s := newTestServer(t, nil, &fakeTrigger{err: context.Canceled})
	rec := do(t, s, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTriggerRoute_AbsentWithoutTrigger(t *testing.T) {
	s := newTestServer(t, &fakeRuns{}, nil)
	rec := do(t, s, http.MethodPost, "/api/runs")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
