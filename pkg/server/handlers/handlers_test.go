package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/fingraph"
	"github.com/finsight/fingraph/pkg/replay"
	"github.com/finsight/fingraph/pkg/types"
)

// fakeIngestor is a scriptable fingraph.Ingestor for handler tests.
type fakeIngestor struct {
	runStats    *types.RunStatistics
	runErr      error
	replayStats *replay.ReplayStats
	replayErr   error
	llmState    types.ConnectionState
	graphState  types.ConnectionState
}

func (f *fakeIngestor) RunIngestion(ctx context.Context, text string, prov types.Provenance, opts *fingraph.RunOptions) (*types.RunStatistics, error) {
	return f.runStats, f.runErr
}

func (f *fakeIngestor) PingDependencies(ctx context.Context) map[string]types.ConnectionStatus {
	return map[string]types.ConnectionStatus{
		"llm":   {State: f.llmState},
		"graph": {State: f.graphState},
	}
}

func (f *fakeIngestor) ReplayJournal(ctx context.Context) (*replay.ReplayStats, error) {
	return f.replayStats, f.replayErr
}

func (f *fakeIngestor) Close(ctx context.Context) error { return nil }

func healthyFake() *fakeIngestor {
	return &fakeIngestor{
		runStats: &types.RunStatistics{
			RunID:           "run-1",
			State:           types.RunCompleted,
			ChunksProcessed: 2,
			ChunksSucceeded: 2,
		},
		replayStats: &replay.ReplayStats{EntriesReplayed: 1, StatementsExecuted: 3},
		llmState:    types.ConnectionOK,
		graphState:  types.ConnectionOK,
	}
}

func router(h func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h(r)
	return r
}

func TestHealthCheck(t *testing.T) {
	r := router(func(r *gin.Engine) {
		r.GET("/health", NewHealthHandler(nil).HealthCheck)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "fingraph", response["service"])
	assert.Contains(t, response, "timestamp")
	assert.Contains(t, response, "version")
}

func TestReadinessCheckReportsDependencyStates(t *testing.T) {
	fake := healthyFake()
	r := router(func(r *gin.Engine) {
		r.GET("/ready", NewHealthHandler(fake).ReadinessCheck)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ready", response["status"])
	checks := response["checks"].(map[string]any)
	assert.Contains(t, checks, "llm")
	assert.Contains(t, checks, "graph")
}

func TestReadinessCheckNotReadyWithoutLLM(t *testing.T) {
	fake := healthyFake()
	fake.llmState = types.ConnectionUnreachable
	r := router(func(r *gin.Engine) {
		r.GET("/ready", NewHealthHandler(fake).ReadinessCheck)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadinessCheckGraphDownStillReady(t *testing.T) {
	fake := healthyFake()
	fake.graphState = types.ConnectionUnreachable
	r := router(func(r *gin.Engine) {
		r.GET("/ready", NewHealthHandler(fake).ReadinessCheck)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestText(t *testing.T) {
	fake := healthyFake()
	r := router(func(r *gin.Engine) {
		r.POST("/api/v1/ingest/text", NewIngestHandler(fake).IngestText)
	})

	body, _ := json.Marshal(map[string]any{
		"document_id": "10k-2025",
		"text":        "Globex supplies components to Acme Corp.",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	stats := response["stats"].(map[string]any)
	assert.Equal(t, "run-1", stats["run_id"])
}

func TestIngestTextValidation(t *testing.T) {
	r := router(func(r *gin.Engine) {
		r.POST("/api/v1/ingest/text", NewIngestHandler(healthyFake()).IngestText)
	})

	tests := []map[string]any{
		{"text": "no document id"},
		{"document_id": "doc"},
		{"document_id": "doc", "text": "   "},
	}
	for _, payload := range tests {
		body, _ := json.Marshal(payload)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/text", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %v", payload)
	}
}

func TestIngestTextDependencyFailure(t *testing.T) {
	fake := healthyFake()
	fake.runErr = &types.DependencyUnavailableError{
		Dependency: "llm",
		Status:     types.ConnectionStatus{State: types.ConnectionUnreachable},
	}
	fake.runStats = &types.RunStatistics{State: types.RunAborted}
	r := router(func(r *gin.Engine) {
		r.POST("/api/v1/ingest/text", NewIngestHandler(fake).IngestText)
	})

	body, _ := json.Marshal(map[string]any{"document_id": "doc", "text": "text"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReplay(t *testing.T) {
	r := router(func(r *gin.Engine) {
		r.POST("/api/v1/replay", NewIngestHandler(healthyFake()).Replay)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/replay", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, float64(1), response["entries_replayed"])
}
