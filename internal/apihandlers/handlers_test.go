package apihandlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmarket/internal/apihandlers"
	"taskmarket/internal/app"
	"taskmarket/internal/config"
)

func newTestRouter(t *testing.T) (*gin.Engine, *app.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Ledger.Mode = config.LedgerModeMemory
	cfg.Actor.Address = "alice"
	cfg.Poll.Interval = time.Hour

	a, err := app.NewApp(cfg)
	require.NoError(t, err)
	a.Log.SetOutput(io.Discard)

	router := gin.New()
	apihandlers.RegisterRoutes(router, apihandlers.NewAPIHandler(a))
	return router, a
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func submitJob(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs", gin.H{
		"actor":       "alice",
		"description": "transcribe an interview",
		"reward":      "500000",
		"deadline":    time.Now().Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			JobID string `json:"job_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.JobID)
	return resp.Data.JobID
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	jobID := submitJob(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/claim", gin.H{"actor": "bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/complete", gin.H{"actor": "bob", "result": "done"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/verify", gin.H{"actor": "alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/balance/bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"500000"`)
}

func TestListJobsForAddress(t *testing.T) {
	router, _ := newTestRouter(t)
	jobID := submitJob(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs?address=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), jobID)
	assert.Contains(t, rec.Body.String(), `"status":"PENDING"`)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorKindsMapToStatuses(t *testing.T) {
	router, _ := newTestRouter(t)
	jobID := submitJob(t, router)

	// Submitter claiming their own job.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/claim", gin.H{"actor": "alice"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "permission_denied")

	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/claim", gin.H{"actor": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Claiming an already claimed job conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/claim", gin.H{"actor": "carol"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")

	// Wrong actor completing.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/complete", gin.H{"actor": "carol", "result": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeletedJobIsGone(t *testing.T) {
	router, a := newTestRouter(t)
	jobID := submitJob(t, router)

	type deleter interface{ DeleteJob(string) }
	a.Gateway.(deleter).DeleteJob(jobID)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s", jobID), nil)
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs/"+jobID+"/claim", gin.H{"actor": "bob"})
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), "deleted")
}

func TestSubmitValidationErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs", gin.H{
		"actor":       "alice",
		"description": "task",
		"reward":      "not-a-number",
		"deadline":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs", gin.H{
		"actor":       "alice",
		"description": "task",
		"reward":      "0",
		"deadline":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")
}

func TestManualRefreshEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	submitJob(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/refresh", gin.H{"address": "alice"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/refresh", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
