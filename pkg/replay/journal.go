// Package replay persists graph statements that could not be written because
// the database was unavailable. Entries survive process restarts and are
// drained in journal order once the database comes back; because every
// statement is an idempotent upsert, replaying after a partial drain is safe.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/finsight/fingraph/pkg/graph"
	"github.com/finsight/fingraph/pkg/types"
)

const (
	entryPrefix = "entry/"
	seqKey      = "journal-seq"
)

// Entry is one journaled chunk batch.
type Entry struct {
	RunID       string                 `json:"run_id"`
	ChunkRef    string                 `json:"chunk_ref"`
	Statements  []types.GraphStatement `json:"statements"`
	JournaledAt time.Time              `json:"journaled_at"`
}

// ReplayStats summarizes one drain pass.
type ReplayStats struct {
	EntriesReplayed    int `json:"entries_replayed"`
	EntriesFailed      int `json:"entries_failed"`
	StatementsExecuted int `json:"statements_executed"`
}

// Journal is a durable store of pending graph statement batches.
type Journal struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
}

// Open opens (or creates) a journal at the given directory.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay journal at %s: %w", path, err)
	}
	seq, err := db.GetSequence([]byte(seqKey), 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open journal sequence: %w", err)
	}
	return &Journal{db: db, seq: seq, logger: logger}, nil
}

// Append durably records one chunk's statements for later replay.
func (j *Journal) Append(runID, chunkRef string, statements []types.GraphStatement) error {
	if len(statements) == 0 {
		return nil
	}
	n, err := j.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to advance journal sequence: %w", err)
	}

	entry := Entry{
		RunID:       runID,
		ChunkRef:    chunkRef,
		Statements:  statements,
		JournaledAt: time.Now().UTC(),
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	// Zero-padded sequence keeps lexicographic key order equal to append
	// order, which is the order Replay drains in.
	key := []byte(fmt.Sprintf("%s%020d", entryPrefix, n))
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to journal chunk %s: %w", chunkRef, err)
	}

	j.logger.Debug("journaled chunk batch",
		"run", runID, "chunk", chunkRef, "statements", len(statements))
	return nil
}

// Pending counts journaled entries awaiting replay.
func (j *Journal) Pending() (int, error) {
	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(entryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Replay drains the journal against the writer in append order. Entries are
// deleted only after their batch commits; a fatal batch error stops the
// drain so the operator can inspect, while the failed entry stays journaled.
func (j *Journal) Replay(ctx context.Context, writer graph.GraphWriter) (*ReplayStats, error) {
	stats := &ReplayStats{}

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		key, entry, err := j.oldest()
		if err != nil {
			return stats, err
		}
		if key == nil {
			return stats, nil
		}

		result, err := writer.ExecuteBatch(ctx, entry.Statements)
		if err != nil {
			stats.EntriesFailed++
			j.logger.Warn("replay batch failed",
				"run", entry.RunID, "chunk", entry.ChunkRef, "error", err)
			return stats, err
		}

		if err := j.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); err != nil {
			return stats, fmt.Errorf("failed to delete replayed entry: %w", err)
		}

		stats.EntriesReplayed++
		stats.StatementsExecuted += result.StatementsRun
		j.logger.Info("replayed journaled chunk",
			"run", entry.RunID, "chunk", entry.ChunkRef, "statements", result.StatementsRun)
	}
}

// oldest returns the first pending entry in key order, or a nil key when the
// journal is empty.
func (j *Journal) oldest() ([]byte, *Entry, error) {
	var key []byte
	var entry Entry

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(entryPrefix)
		it.Seek(prefix)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		item := it.Item()
		key = item.KeyCopy(nil)
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read journal: %w", err)
	}
	if key == nil {
		return nil, nil, nil
	}
	return key, &entry, nil
}

// Close releases the sequence and closes the store.
func (j *Journal) Close() error {
	if err := j.seq.Release(); err != nil {
		j.db.Close()
		return err
	}
	return j.db.Close()
}
