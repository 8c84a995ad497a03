package fingraph

import (
	"context"
	"log/slog"
	"time"

	"github.com/finsight/fingraph/pkg/chunker"
	"github.com/finsight/fingraph/pkg/extractor"
	"github.com/finsight/fingraph/pkg/graph"
	"github.com/finsight/fingraph/pkg/nlp"
	"github.com/finsight/fingraph/pkg/replay"
	"github.com/finsight/fingraph/pkg/telemetry"
	"github.com/finsight/fingraph/pkg/translator"
	"github.com/finsight/fingraph/pkg/types"
)

// Ingestor is the main interface for turning financial documents into graph
// updates.
type Ingestor interface {
	// RunIngestion chunks the text, extracts knowledge from each chunk and
	// writes the resulting statements to the graph store. Per-chunk
	// failures are tolerated and reported on the returned statistics; the
	// error return is reserved for run-level failures (missing LLM,
	// unrelieved memory pressure, cancellation).
	RunIngestion(ctx context.Context, text string, prov types.Provenance, opts *RunOptions) (*types.RunStatistics, error)

	// PingDependencies probes the LLM service and the graph store.
	PingDependencies(ctx context.Context) map[string]types.ConnectionStatus

	// ReplayJournal drains journaled statements from earlier degraded runs
	// into the graph store.
	ReplayJournal(ctx context.Context) (*replay.ReplayStats, error)

	// Close releases all resources.
	Close(ctx context.Context) error
}

// Config holds configuration for the ingestion client.
type Config struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int
	// ChunkSlack is the tolerated overshoot fraction before a long
	// sentence is hard-cut.
	ChunkSlack float64
	// ExtractionWorkers bounds concurrent LLM calls.
	ExtractionWorkers int
	// BatchSize is the number of chunks admitted per processing wave.
	BatchSize int
	// MemoryCeilingBytes aborts the run when heap usage stays above this
	// after forced collection. Zero disables the check.
	MemoryCeilingBytes uint64
	// AllowDegraded lets a run proceed without a reachable graph store,
	// journaling statements for later replay.
	AllowDegraded bool
	// Extraction configures the per-chunk extraction retry budget.
	Extraction extractor.Config
}

// Client implements Ingestor.
type Client struct {
	chunker    *chunker.Chunker
	extractor  *extractor.Extractor
	translator *translator.Translator
	llm        nlp.Client
	writer     graph.GraphWriter // nil when no graph store is configured
	journal    *replay.Journal   // nil when replay is disabled
	recorder   *telemetry.RunRecorder
	config     *Config
	logger     *slog.Logger
}

// Option customizes optional client collaborators.
type Option func(*Client)

// WithJournal attaches a replay journal for degraded runs.
func WithJournal(journal *replay.Journal) Option {
	return func(c *Client) { c.journal = journal }
}

// WithRecorder attaches a telemetry recorder.
func WithRecorder(recorder *telemetry.RunRecorder) Option {
	return func(c *Client) { c.recorder = recorder }
}

// NewClient creates an ingestion client. llmClient is required; writer may
// be nil, in which case every run is degraded.
func NewClient(llmClient nlp.Client, writer graph.GraphWriter, cfg *Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ExtractionWorkers <= 0 {
		cfg.ExtractionWorkers = 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		chunker: chunker.New(chunker.Config{
			TargetSize: cfg.ChunkSize,
			Slack:      cfg.ChunkSlack,
		}),
		translator: translator.New(translator.Config{}, logger),
		llm:        llmClient,
		writer:     writer,
		config:     cfg,
		logger:     logger,
	}
	if llmClient != nil {
		c.extractor = extractor.New(llmClient, cfg.Extraction, logger)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PingDependencies probes every external dependency and returns one status
// per dependency name.
func (c *Client) PingDependencies(ctx context.Context) map[string]types.ConnectionStatus {
	statuses := make(map[string]types.ConnectionStatus, 2)

	if c.llm != nil {
		statuses["llm"] = c.llm.Ping(ctx)
	} else {
		statuses["llm"] = types.ConnectionStatus{
			State:      types.ConnectionUnreachable,
			Message:    "no LLM client configured",
			Suggestion: "Set llm.base_url and llm.model in the configuration",
			CheckedAt:  time.Now().UTC(),
		}
	}

	if c.writer != nil {
		statuses["graph"] = c.writer.Ping(ctx)
	} else {
		statuses["graph"] = types.ConnectionStatus{
			State:      types.ConnectionUnreachable,
			Message:    "no graph store configured",
			Suggestion: "Set graph.uri, graph.username and graph.password in the configuration",
			CheckedAt:  time.Now().UTC(),
		}
	}
	return statuses
}

// ReplayJournal drains the journal into the graph store. Requires both a
// journal and a reachable writer.
func (c *Client) ReplayJournal(ctx context.Context) (*replay.ReplayStats, error) {
	if c.journal == nil {
		return &replay.ReplayStats{}, nil
	}
	if c.writer == nil {
		return nil, &types.DependencyUnavailableError{
			Dependency: "graph",
			Status: types.ConnectionStatus{
				State:   types.ConnectionUnreachable,
				Message: "no graph store configured",
			},
		}
	}
	return c.journal.Replay(ctx, c.writer)
}

// Close releases the LLM client, graph writer and journal.
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if c.llm != nil {
		if err := c.llm.Close(); err != nil {
			firstErr = err
		}
	}
	if c.writer != nil {
		if err := c.writer.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.journal != nil {
		if err := c.journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
