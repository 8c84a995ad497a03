// Package graph writes translated statements to the graph database. One
// chunk's statement batch executes inside a single transaction, so a chunk
// either lands completely or not at all.
package graph

import (
	"context"

	"github.com/finsight/fingraph/pkg/types"
)

// GraphWriter is the storage interface the pipeline coordinator depends on.
// Implementations must make ExecuteBatch atomic per call.
type GraphWriter interface {
	// Ping probes the store and classifies the outcome, distinguishing
	// bad credentials from an unreachable service.
	Ping(ctx context.Context) types.ConnectionStatus

	// ExecuteBatch runs all statements in one transaction. On error the
	// transaction is rolled back and the error is a *types.GraphWriteError
	// classified retriable or fatal.
	ExecuteBatch(ctx context.Context, statements []types.GraphStatement) (*BatchResult, error)

	Close(ctx context.Context) error
}

// BatchResult summarizes one committed batch, from the server's own
// counters rather than client-side guesses.
type BatchResult struct {
	StatementsRun        int `json:"statements_run"`
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
	PropertiesSet        int `json:"properties_set"`
}

// Add folds another result into r.
func (r *BatchResult) Add(other *BatchResult) {
	if other == nil {
		return
	}
	r.StatementsRun += other.StatementsRun
	r.NodesCreated += other.NodesCreated
	r.RelationshipsCreated += other.RelationshipsCreated
	r.PropertiesSet += other.PropertiesSet
}
