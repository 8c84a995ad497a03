// Package telemetry records per-chunk outcomes and run summaries as Parquet
// files for offline analysis. Recording is best effort: a telemetry failure
// is logged and never fails the run.
package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/finsight/fingraph/pkg/types"
)

// ChunkRecord is one chunk's terminal outcome.
type ChunkRecord struct {
	ID            string    `parquet:"id"`
	RunID         string    `parquet:"run_id"`
	DocumentID    string    `parquet:"document_id"`
	ChunkRef      string    `parquet:"chunk_ref"`
	Timestamp     time.Time `parquet:"timestamp"`
	Outcome       string    `parquet:"outcome"` // succeeded | failed | journaled
	Stage         string    `parquet:"stage,optional"`
	Reason        string    `parquet:"reason,optional"`
	Attempts      int       `parquet:"attempts"`
	Entities      int       `parquet:"entities"`
	Relationships int       `parquet:"relationships"`
	Statements    int       `parquet:"statements"`
}

// RunRecord is one run's summary row.
type RunRecord struct {
	RunID                string    `parquet:"run_id"`
	DocumentID           string    `parquet:"document_id"`
	State                string    `parquet:"state"`
	StartedAt            time.Time `parquet:"started_at"`
	FinishedAt           time.Time `parquet:"finished_at"`
	ChunksProcessed      int       `parquet:"chunks_processed"`
	ChunksSucceeded      int       `parquet:"chunks_succeeded"`
	ChunksFailed         int       `parquet:"chunks_failed"`
	EntitiesWritten      int       `parquet:"entities_written"`
	RelationshipsWritten int       `parquet:"relationships_written"`
	StatementsExecuted   int       `parquet:"statements_executed"`
	StatementsJournaled  int       `parquet:"statements_journaled"`
}

// RunRecorder buffers chunk outcomes and flushes them, together with the run
// summary, when the run finishes.
type RunRecorder struct {
	outputDir string
	logger    *slog.Logger

	mu     sync.Mutex
	chunks []ChunkRecord
}

// NewRunRecorder creates a recorder writing under outputDir.
func NewRunRecorder(outputDir string, logger *slog.Logger) (*RunRecorder, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunRecorder{outputDir: outputDir, logger: logger}, nil
}

// RecordChunk buffers one chunk outcome.
func (r *RunRecorder) RecordChunk(record ChunkRecord) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	r.mu.Lock()
	r.chunks = append(r.chunks, record)
	r.mu.Unlock()
}

// FinishRun flushes buffered chunk rows and the run summary to two Parquet
// files named after the run. Errors are logged, not returned up the
// pipeline.
func (r *RunRecorder) FinishRun(stats *types.RunStatistics) {
	r.mu.Lock()
	chunks := r.chunks
	r.chunks = nil
	r.mu.Unlock()

	if len(chunks) > 0 {
		path := filepath.Join(r.outputDir, fmt.Sprintf("chunks_%s.parquet", stats.RunID))
		if err := parquet.WriteFile(path, chunks); err != nil {
			r.logger.Warn("failed to write chunk telemetry", "path", path, "error", err)
		}
	}

	summary := []RunRecord{{
		RunID:                stats.RunID,
		DocumentID:           stats.DocumentID,
		State:                string(stats.State),
		StartedAt:            stats.StartedAt.UTC(),
		FinishedAt:           stats.FinishedAt.UTC(),
		ChunksProcessed:      stats.ChunksProcessed,
		ChunksSucceeded:      stats.ChunksSucceeded,
		ChunksFailed:         stats.ChunksFailed,
		EntitiesWritten:      stats.EntitiesWritten,
		RelationshipsWritten: stats.RelationshipsWritten,
		StatementsExecuted:   stats.StatementsExecuted,
		StatementsJournaled:  stats.StatementsJournaled,
	}}
	path := filepath.Join(r.outputDir, fmt.Sprintf("run_%s.parquet", stats.RunID))
	if err := parquet.WriteFile(path, summary); err != nil {
		r.logger.Warn("failed to write run telemetry", "path", path, "error", err)
	}
}
