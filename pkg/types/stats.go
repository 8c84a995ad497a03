package types

import "time"

// RunState is the coordinator's terminal-state machine for one ingestion run.
type RunState string

const (
	RunInit      RunState = "init"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunDegraded  RunState = "degraded"
	RunAborted   RunState = "aborted"
)

// ChunkFailure records one chunk's terminal failure inside RunStatistics.
type ChunkFailure struct {
	ChunkRef string `json:"chunk_ref"`
	Stage    string `json:"stage"` // extraction, translation, graph_write
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts,omitempty"`
}

// RunStatistics is the process-wide accumulator for one ingestion run.
// It is owned and mutated exclusively by the coordinator and returned
// read-only to the caller at run end.
type RunStatistics struct {
	RunID      string    `json:"run_id"`
	DocumentID string    `json:"document_id"`
	State      RunState  `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	ChunksProcessed      int `json:"chunks_processed"`
	ChunksSucceeded      int `json:"chunks_succeeded"`
	ChunksFailed         int `json:"chunks_failed"`
	ChunksRetried        int `json:"chunks_retried"`
	EntitiesWritten      int `json:"entities_written"`
	RelationshipsWritten int `json:"relationships_written"`
	StatementsExecuted   int `json:"statements_executed"`
	StatementsJournaled  int `json:"statements_journaled"`

	Failures []ChunkFailure `json:"failures,omitempty"`
}

// Duration returns the wall-clock time of the run.
func (s *RunStatistics) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Degraded reports whether the run finished without durable graph commits.
func (s *RunStatistics) Degraded() bool {
	return s.State == RunDegraded
}

// RecordFailure appends a per-chunk failure and bumps the failed counter.
func (s *RunStatistics) RecordFailure(f ChunkFailure) {
	s.ChunksFailed++
	s.Failures = append(s.Failures, f)
}
