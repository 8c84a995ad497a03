package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/finsight/fingraph/pkg/types"
)

// Config holds graph connection settings.
type Config struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// Timeout bounds each batch transaction and each ping.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Neo4jWriter implements GraphWriter on the official Bolt driver. The
// connection is established on first use, not at construction, so the
// pipeline can start in degraded mode when the database is down.
type Neo4jWriter struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	client neo4j.DriverWithContext
}

// NewNeo4jWriter creates a writer without dialing the database.
func NewNeo4jWriter(cfg Config, logger *slog.Logger) *Neo4jWriter {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jWriter{cfg: cfg, logger: logger}
}

// connect lazily creates the underlying driver. The driver itself dials on
// first query, so this only validates the URI and credentials shape.
func (w *Neo4jWriter) connect() (neo4j.DriverWithContext, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		return w.client, nil
	}
	client, err := neo4j.NewDriverWithContext(w.cfg.URI,
		neo4j.BasicAuth(w.cfg.Username, w.cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}
	w.client = client
	w.logger.Debug("graph driver created", "uri", w.cfg.URI, "database", w.cfg.Database)
	return client, nil
}

// Ping runs a trivial query and classifies the failure mode. Wrong
// credentials and an unreachable service produce different suggestions, so
// an operator can tell which knob to turn.
func (w *Neo4jWriter) Ping(ctx context.Context) types.ConnectionStatus {
	status := types.ConnectionStatus{
		Endpoint:  w.cfg.URI,
		CheckedAt: time.Now().UTC(),
	}

	client, err := w.connect()
	if err != nil {
		status.State = types.ConnectionNotReady
		status.Message = err.Error()
		status.Suggestion = fmt.Sprintf("Check that the graph URI %q is well formed (e.g. bolt://localhost:7687)", w.cfg.URI)
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	session := client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: w.cfg.Database})
	defer session.Close(ctx)

	_, err = session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "RETURN 1 AS ok", nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return w.classifyPingError(status, err)
	}

	status.State = types.ConnectionOK
	status.Message = "graph database reachable"
	return status
}

func (w *Neo4jWriter) classifyPingError(status types.ConnectionStatus, err error) types.ConnectionStatus {
	status.Message = err.Error()
	msg := strings.ToLower(err.Error())

	var neoErr *db.Neo4jError
	switch {
	case errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "authentication"):
		status.State = types.ConnectionAuthFailed
		status.Suggestion = fmt.Sprintf("Check the graph username (%s) and password in your configuration", w.cfg.Username)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "dial tcp"), strings.Contains(msg, "unable to retrieve routing table"),
		strings.Contains(msg, "connectivityerror"):
		status.State = types.ConnectionUnreachable
		status.Suggestion = fmt.Sprintf("Check that Neo4j is running at %s. Try: docker ps | grep neo4j", w.cfg.URI)
	default:
		status.State = types.ConnectionNotReady
		status.Suggestion = "The database answered but is not ready; check the server logs"
	}
	return status
}

// ExecuteBatch runs all statements inside one explicit transaction. Any
// statement failure rolls the whole batch back; the returned error carries a
// retriable/fatal classification for the coordinator.
func (w *Neo4jWriter) ExecuteBatch(ctx context.Context, statements []types.GraphStatement) (*BatchResult, error) {
	if len(statements) == 0 {
		return &BatchResult{}, nil
	}

	client, err := w.connect()
	if err != nil {
		return nil, &types.GraphWriteError{Class: types.WriteFatal, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	session := client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: w.cfg.Database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		batch := &BatchResult{}
		for _, st := range statements {
			res, err := tx.Run(ctx, st.Template, st.Parameters)
			if err != nil {
				return nil, err
			}
			summary, err := res.Consume(ctx)
			if err != nil {
				return nil, err
			}
			counters := summary.Counters()
			batch.StatementsRun++
			batch.NodesCreated += counters.NodesCreated()
			batch.RelationshipsCreated += counters.RelationshipsCreated()
			batch.PropertiesSet += counters.PropertiesSet()
		}
		return batch, nil
	})
	if err != nil {
		class := ClassifyWriteError(err)
		w.logger.Warn("graph batch failed",
			"statements", len(statements), "class", string(class), "error", err)
		return nil, &types.GraphWriteError{Class: class, Err: err}
	}

	batch := result.(*BatchResult)
	w.logger.Debug("graph batch committed",
		"statements", batch.StatementsRun,
		"nodes_created", batch.NodesCreated,
		"relationships_created", batch.RelationshipsCreated)
	return batch, nil
}

// Close shuts the driver down if a connection was ever made.
func (w *Neo4jWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client == nil {
		return nil
	}
	err := w.client.Close(ctx)
	w.client = nil
	return err
}

// ClassifyWriteError decides whether a failed batch is worth retrying.
// Transient server states and network trouble are retriable; syntax, schema
// and constraint violations will fail the same way every time.
func ClassifyWriteError(err error) types.WriteErrorClass {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.WriteRetriable
	}

	var neoErr *db.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.HasPrefix(neoErr.Code, "Neo.TransientError"):
			return types.WriteRetriable
		case strings.HasPrefix(neoErr.Code, "Neo.ClientError"),
			strings.HasPrefix(neoErr.Code, "Neo.DatabaseError.Schema"),
			strings.HasPrefix(neoErr.Code, "Neo.DatabaseError.Statement"):
			return types.WriteFatal
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"timeout",
		"service unavailable",
		"connectivityerror",
		"pool closed",
	} {
		if strings.Contains(msg, pattern) {
			return types.WriteRetriable
		}
	}
	return types.WriteFatal
}
