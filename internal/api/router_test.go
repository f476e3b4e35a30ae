package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/scheduler"
	"github.com/wonny/thetascan/internal/store"
	"github.com/wonny/thetascan/pkg/logger"
	"github.com/wonny/thetascan/pkg/metrics"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeJobs map[string]scheduler.JobStats

func (f fakeJobs) GetJobStats() map[string]scheduler.JobStats { return f }

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	ok := NewRouter(Deps{DB: fakePinger{}}, logger.NewNop())
	rec := serve(t, ok, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	down := NewRouter(Deps{DB: fakePinger{err: errors.New("conn refused")}}, logger.NewNop())
	rec = serve(t, down, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "conn refused")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.New(reg)
	recorder.SymbolProcessed("scanned")

	rec := serve(t, NewRouter(Deps{Gatherer: reg}, logger.NewNop()), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "thetascan_"), "recorder metrics must be exposed")
}

func TestOptionalRoutesDisabled(t *testing.T) {
	r := NewRouter(Deps{}, logger.NewNop())
	assert.Equal(t, http.StatusNotFound, serve(t, r, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, r, "/jobs").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, r, "/runs").Code)
}

func TestJobs(t *testing.T) {
	jobs := fakeJobs{"scan": {JobName: "scan", Schedule: "0 30 16 * * 1-5", TotalRuns: 2}}
	rec := serve(t, NewRouter(Deps{Jobs: jobs}, logger.NewNop()), "/jobs")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]scheduler.JobStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got["scan"].TotalRuns)
}

func TestRuns(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run_a", "run_b", "run_c"} {
		require.NoError(t, mem.Runs().Create(ctx, contracts.NewScanRun(id, base.Add(time.Duration(i)*time.Minute))))
	}
	r := NewRouter(Deps{Runs: mem.Runs()}, logger.NewNop())

	rec := serve(t, r, "/runs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []contracts.ScanRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	assert.Equal(t, http.StatusBadRequest, serve(t, r, "/runs?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, r, "/runs?limit=0").Code)
}
