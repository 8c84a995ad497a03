package fingraph

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/fingraph/pkg/telemetry"
	"github.com/finsight/fingraph/pkg/types"
)

// RunOptions holds per-run overrides.
type RunOptions struct {
	// RunID overrides the generated run identifier.
	RunID string
}

const (
	// maxWriteAttempts bounds retries of a retriable graph write before the
	// chunk is journaled or failed.
	maxWriteAttempts = 3
	writeRetryDelay  = 500 * time.Millisecond

	// maxGCAttempts bounds forced collections under memory pressure.
	maxGCAttempts = 3
)

// chunkOutcome carries one chunk's extraction result through the write
// phase.
type chunkOutcome struct {
	chunk      types.Chunk
	result     *types.ExtractionResult
	statements []types.GraphStatement
	failure    *types.ChunkFailure
}

// RunIngestion processes one document end to end. The returned statistics
// are always non-nil, whatever the outcome.
func (c *Client) RunIngestion(ctx context.Context, text string, prov types.Provenance, opts *RunOptions) (*types.RunStatistics, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	stats := &types.RunStatistics{
		RunID:      runID,
		DocumentID: prov.DocumentID,
		State:      types.RunInit,
		StartedAt:  time.Now().UTC(),
	}

	degraded, err := c.initRun(ctx, prov, stats)
	if err != nil {
		return c.finishRun(stats, types.RunAborted), err
	}

	stats.State = types.RunRunning
	c.logger.Info("ingestion run started",
		"run", runID, "document", prov.DocumentID, "degraded", degraded)

	batch := make([]types.Chunk, 0, c.config.BatchSize)
	var runErr error
	for chunk := range c.chunker.Chunk(text, prov) {
		batch = append(batch, chunk)
		if len(batch) < c.config.BatchSize {
			continue
		}
		if runErr = c.processBatch(ctx, stats, batch, degraded); runErr != nil {
			break
		}
		batch = batch[:0]
	}
	if runErr == nil && len(batch) > 0 {
		runErr = c.processBatch(ctx, stats, batch, degraded)
	}
	if runErr != nil {
		return c.finishRun(stats, types.RunAborted), runErr
	}

	state := types.RunCompleted
	if degraded || stats.StatementsJournaled > 0 {
		state = types.RunDegraded
	}
	c.finishRun(stats, state)
	c.logger.Info("ingestion run finished",
		"run", runID,
		"state", string(stats.State),
		"chunks", stats.ChunksProcessed,
		"succeeded", stats.ChunksSucceeded,
		"failed", stats.ChunksFailed,
		"entities", stats.EntitiesWritten,
		"relationships", stats.RelationshipsWritten,
		"duration", stats.Duration())
	return stats, nil
}

// initRun validates inputs and probes dependencies. The LLM is mandatory;
// the graph store degrades the run instead of failing it, provided a journal
// exists to catch the statements.
func (c *Client) initRun(ctx context.Context, prov types.Provenance, stats *types.RunStatistics) (degraded bool, err error) {
	if err := prov.Validate(); err != nil {
		return false, err
	}

	if c.extractor == nil {
		return false, &types.DependencyUnavailableError{
			Dependency: "llm",
			Status: types.ConnectionStatus{
				State:   types.ConnectionUnreachable,
				Message: "no LLM client configured",
			},
		}
	}
	if status := c.llm.Ping(ctx); !status.Healthy() {
		c.logger.Error("LLM service unavailable",
			"run", stats.RunID, "state", string(status.State), "suggestion", status.Suggestion)
		return false, &types.DependencyUnavailableError{Dependency: "llm", Status: status}
	}

	if c.writer != nil {
		status := c.writer.Ping(ctx)
		if status.Healthy() {
			return false, nil
		}
		c.logger.Warn("graph store unavailable",
			"run", stats.RunID, "state", string(status.State), "suggestion", status.Suggestion)
		if !c.config.AllowDegraded {
			return false, &types.DependencyUnavailableError{Dependency: "graph", Status: status}
		}
		if c.journal == nil {
			return false, &types.DependencyUnavailableError{Dependency: "graph", Status: status}
		}
		return true, nil
	}

	if !c.config.AllowDegraded || c.journal == nil {
		return false, &types.DependencyUnavailableError{
			Dependency: "graph",
			Status: types.ConnectionStatus{
				State:   types.ConnectionUnreachable,
				Message: "no graph store configured",
			},
		}
	}
	return true, nil
}

// processBatch runs one wave of chunks: memory guard, concurrent extraction,
// then serialized writes in chunk order.
func (c *Client) processBatch(ctx context.Context, stats *types.RunStatistics, batch []types.Chunk, degraded bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.relieveMemoryPressure(ctx); err != nil {
		return err
	}

	outcomes := c.extractBatch(ctx, batch)

	for i := range outcomes {
		c.settleChunk(ctx, stats, &outcomes[i], degraded)
	}
	return nil
}

// extractBatch fans the batch out over the extraction worker pool. Results
// come back positionally, so writes stay in document order.
func (c *Client) extractBatch(ctx context.Context, batch []types.Chunk) []chunkOutcome {
	outcomes := make([]chunkOutcome, len(batch))
	for i, chunk := range batch {
		outcomes[i].chunk = chunk
	}

	workers := c.config.ExtractionWorkers
	if workers > len(batch) {
		workers = len(batch)
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				c.extractOne(ctx, &outcomes[i])
			}
		}()
	}
	for i := range outcomes {
		indices <- i
	}
	close(indices)
	wg.Wait()
	return outcomes
}

// extractOne runs extraction and translation for a single chunk, recording
// any failure on the outcome.
func (c *Client) extractOne(ctx context.Context, outcome *chunkOutcome) {
	result, err := c.extractor.Extract(ctx, outcome.chunk)
	if err != nil {
		failure := &types.ChunkFailure{
			ChunkRef: outcome.chunk.Ref(),
			Stage:    "extraction",
			Reason:   "model_unavailable",
		}
		var ee *types.ExtractionError
		if errors.As(err, &ee) {
			failure.Reason = string(ee.Reason)
			failure.Attempts = ee.Attempts
		}
		outcome.failure = failure
		return
	}
	outcome.result = result

	statements, err := c.translator.Translate(result)
	if err != nil {
		failure := &types.ChunkFailure{
			ChunkRef: outcome.chunk.Ref(),
			Stage:    "translation",
			Reason:   "invalid_property_value",
			Attempts: result.Attempts,
		}
		var te *types.TranslationError
		if errors.As(err, &te) {
			failure.Reason = string(te.Reason)
		}
		outcome.failure = failure
		outcome.result = nil
		return
	}
	outcome.statements = statements
}

// settleChunk applies one chunk's terminal outcome to the stats, writing or
// journaling its statements.
func (c *Client) settleChunk(ctx context.Context, stats *types.RunStatistics, outcome *chunkOutcome, degraded bool) {
	stats.ChunksProcessed++
	record := telemetry.ChunkRecord{
		RunID:      stats.RunID,
		DocumentID: stats.DocumentID,
		ChunkRef:   outcome.chunk.Ref(),
	}

	if outcome.failure != nil {
		stats.RecordFailure(*outcome.failure)
		record.Outcome = "failed"
		record.Stage = outcome.failure.Stage
		record.Reason = outcome.failure.Reason
		record.Attempts = outcome.failure.Attempts
		c.recordChunk(record)
		c.logger.Warn("chunk failed",
			"run", stats.RunID,
			"chunk", outcome.failure.ChunkRef,
			"stage", outcome.failure.Stage,
			"reason", outcome.failure.Reason)
		return
	}

	record.Attempts = outcome.result.Attempts
	record.Entities = len(outcome.result.Entities)
	record.Relationships = len(outcome.result.Relationships)
	record.Statements = len(outcome.statements)
	if outcome.result.Attempts > 1 {
		stats.ChunksRetried++
	}

	if len(outcome.statements) == 0 {
		stats.ChunksSucceeded++
		record.Outcome = "succeeded"
		c.recordChunk(record)
		return
	}

	if degraded {
		c.journalChunk(stats, outcome, record)
		return
	}

	if err := c.writeWithRetry(ctx, stats, outcome); err != nil {
		if c.journal != nil && types.Retriable(err) {
			// The store went away mid-run; fall back to the journal so the
			// chunk's work is not lost.
			c.journalChunk(stats, outcome, record)
			return
		}
		stats.RecordFailure(types.ChunkFailure{
			ChunkRef: outcome.chunk.Ref(),
			Stage:    "graph_write",
			Reason:   writeReason(err),
			Attempts: outcome.result.Attempts,
		})
		record.Outcome = "failed"
		record.Stage = "graph_write"
		record.Reason = writeReason(err)
		c.recordChunk(record)
		return
	}

	stats.ChunksSucceeded++
	for _, st := range outcome.statements {
		switch st.Kind {
		case types.StatementEntity:
			stats.EntitiesWritten++
		case types.StatementRelationship:
			stats.RelationshipsWritten++
		}
	}
	record.Outcome = "succeeded"
	c.recordChunk(record)
}

// writeWithRetry executes the chunk batch, retrying transient failures a
// bounded number of times.
func (c *Client) writeWithRetry(ctx context.Context, stats *types.RunStatistics, outcome *chunkOutcome) error {
	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		result, err := c.writer.ExecuteBatch(ctx, outcome.statements)
		if err == nil {
			stats.StatementsExecuted += result.StatementsRun
			return nil
		}
		lastErr = err
		if !types.Retriable(err) || ctx.Err() != nil {
			return err
		}
		c.logger.Warn("retrying graph write",
			"run", stats.RunID,
			"chunk", outcome.chunk.Ref(),
			"attempt", attempt,
			"error", err)
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(writeRetryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}

// journalChunk persists the chunk's statements for later replay.
func (c *Client) journalChunk(stats *types.RunStatistics, outcome *chunkOutcome, record telemetry.ChunkRecord) {
	if err := c.journal.Append(stats.RunID, outcome.chunk.Ref(), outcome.statements); err != nil {
		stats.RecordFailure(types.ChunkFailure{
			ChunkRef: outcome.chunk.Ref(),
			Stage:    "graph_write",
			Reason:   "journal_failed",
			Attempts: outcome.result.Attempts,
		})
		record.Outcome = "failed"
		record.Stage = "graph_write"
		record.Reason = "journal_failed"
		c.recordChunk(record)
		c.logger.Error("failed to journal chunk",
			"run", stats.RunID, "chunk", outcome.chunk.Ref(), "error", err)
		return
	}
	stats.ChunksSucceeded++
	stats.StatementsJournaled += len(outcome.statements)
	record.Outcome = "journaled"
	c.recordChunk(record)
}

// relieveMemoryPressure enforces the configured heap ceiling, forcing
// collection a bounded number of times before giving up on the run.
func (c *Client) relieveMemoryPressure(ctx context.Context) error {
	ceiling := c.config.MemoryCeilingBytes
	if ceiling == 0 {
		return nil
	}

	var ms runtime.MemStats
	for attempt := 0; attempt < maxGCAttempts; attempt++ {
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc <= ceiling {
			return nil
		}
		c.logger.Warn("memory pressure, forcing collection",
			"heap_bytes", ms.HeapAlloc, "ceiling_bytes", ceiling, "attempt", attempt+1)
		runtime.GC()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	runtime.ReadMemStats(&ms)
	if ms.HeapAlloc <= ceiling {
		return nil
	}
	return &types.ResourceExhaustionError{HeapBytes: ms.HeapAlloc, CeilingBytes: ceiling}
}

// finishRun stamps the terminal state and flushes telemetry.
func (c *Client) finishRun(stats *types.RunStatistics, state types.RunState) *types.RunStatistics {
	stats.State = state
	stats.FinishedAt = time.Now().UTC()
	if c.recorder != nil {
		c.recorder.FinishRun(stats)
	}
	return stats
}

func (c *Client) recordChunk(record telemetry.ChunkRecord) {
	if c.recorder != nil {
		c.recorder.RecordChunk(record)
	}
}

// writeReason names the failure class of a graph write for reporting.
func writeReason(err error) string {
	var we *types.GraphWriteError
	if errors.As(err, &we) {
		return string(we.Class)
	}
	return "fatal"
}
