package fingraph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/finsight/fingraph"
	"github.com/finsight/fingraph/pkg/config"
	"github.com/finsight/fingraph/pkg/extractor"
	"github.com/finsight/fingraph/pkg/graph"
	"github.com/finsight/fingraph/pkg/logger"
	"github.com/finsight/fingraph/pkg/nlp"
	"github.com/finsight/fingraph/pkg/replay"
	"github.com/finsight/fingraph/pkg/telemetry"
)

// buildLogger creates the process logger from config.
func buildLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Log.Level, cfg.Log.Format)
}

// llmConfig maps the file/env LLM settings onto the client config. The
// client's optional fields are pointers; temperature is always forwarded
// (zero means deterministic extraction), max tokens only when set.
func llmConfig(cfg *config.Config) nlp.Config {
	out := nlp.Config{
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: &cfg.LLM.Temperature,
	}
	if cfg.LLM.MaxTokens > 0 {
		out.MaxTokens = &cfg.LLM.MaxTokens
	}
	return out
}

// buildClient assembles the full ingestion client from config: LLM client
// (with optional circuit breaker), graph writer, replay journal and
// telemetry recorder.
func buildClient(cfg *config.Config, log *slog.Logger) (*fingraph.Client, error) {
	var llmClient nlp.Client
	llmClient, err := nlp.NewOpenAIClient(cfg.LLM.APIKey, llmConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	if cfg.CircuitBreaker.Enabled {
		llmClient = nlp.NewCircuitBreakerClient(llmClient, nlp.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}, log)
	}

	writer := graph.NewNeo4jWriter(graph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
		Timeout:  cfg.Graph.Timeout,
	}, log)

	clientCfg := &fingraph.Config{
		ChunkSize:          cfg.Pipeline.ChunkSize,
		ChunkSlack:         cfg.Pipeline.ChunkSlack,
		ExtractionWorkers:  cfg.Pipeline.ExtractionWorkers,
		BatchSize:          cfg.Pipeline.BatchSize,
		MemoryCeilingBytes: uint64(cfg.Pipeline.MemoryCeilingMB) * 1024 * 1024,
		AllowDegraded:      cfg.Pipeline.AllowDegraded,
		Extraction: extractor.Config{
			Retry: &nlp.RetryConfig{
				MaxRetries:        cfg.LLM.MaxRetries,
				InitialDelay:      time.Second,
				MaxDelay:          30 * time.Second,
				BackoffMultiplier: 2.0,
			},
			Timeout: cfg.LLM.Timeout,
		},
	}

	var opts []fingraph.Option
	if cfg.Replay.Path != "" {
		journal, err := replay.Open(cfg.Replay.Path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open replay journal: %w", err)
		}
		opts = append(opts, fingraph.WithJournal(journal))
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.ParquetPath != "" {
		recorder, err := telemetry.NewRunRecorder(cfg.Telemetry.ParquetPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create telemetry recorder: %w", err)
		}
		opts = append(opts, fingraph.WithRecorder(recorder))
	}

	return fingraph.NewClient(llmClient, writer, clientCfg, log, opts...)
}
