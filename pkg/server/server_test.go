package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/fingraph"
	"github.com/finsight/fingraph/pkg/config"
	"github.com/finsight/fingraph/pkg/replay"
	"github.com/finsight/fingraph/pkg/types"
)

type stubIngestor struct{}

func (s *stubIngestor) RunIngestion(ctx context.Context, text string, prov types.Provenance, opts *fingraph.RunOptions) (*types.RunStatistics, error) {
	return &types.RunStatistics{RunID: "run-1", State: types.RunCompleted}, nil
}

func (s *stubIngestor) PingDependencies(ctx context.Context) map[string]types.ConnectionStatus {
	return map[string]types.ConnectionStatus{
		"llm":   {State: types.ConnectionOK},
		"graph": {State: types.ConnectionOK},
	}
}

func (s *stubIngestor) ReplayJournal(ctx context.Context) (*replay.ReplayStats, error) {
	return &replay.ReplayStats{}, nil
}

func (s *stubIngestor) Close(ctx context.Context) error { return nil }

func newTestServer() *Server {
	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0
	cfg.Server.Mode = "test"

	s := New(cfg, &stubIngestor{})
	s.Setup()
	return s
}

func TestRoutesRegistered(t *testing.T) {
	s := newTestServer()

	for _, route := range []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/health/detailed", http.StatusOK},
		{http.MethodPost, "/api/v1/replay", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, route.status, w.Code, "%s %s", route.method, route.path)
	}
}

func TestCORSPreflights(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/ingest/text", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
