package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erbolatt/gamewatch/internal/scheduler"
)

func newTestRouter(t *testing.T) (*gin.Engine, *scheduler.Scheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sched := scheduler.New(time.UTC, nil)
	require.NoError(t, sched.Register(scheduler.Job{
		Name: "compare",
		Spec: "0 0 1 1 *",
		Run:  func(context.Context) error { return nil },
	}))

	h := NewHandler(sched, nil)
	r := gin.New()
	r.GET("/api/jobs", h.ListJobs)
	r.GET("/api/runs", h.ListRuns)
	r.POST("/api/jobs/:name/run", h.TriggerJob)
	return r, sched
}

func TestListJobs(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var jobs []scheduler.JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "compare", jobs[0].Name)
	assert.Nil(t, jobs[0].LastRun)
}

func TestTriggerJob(t *testing.T) {
	r, sched := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/compare/run", nil))

	require.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["run_id"])

	require.Eventually(t, func() bool {
		return len(sched.Runs()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTriggerUnknownJob(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/nope/run", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRuns(t *testing.T) {
	r, sched := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/jobs/compare/run", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return len(sched.Runs()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var runs []scheduler.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "compare", runs[0].Job)
}
