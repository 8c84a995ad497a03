package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		raw     string
		want    EntityType
		wantErr bool
	}{
		{"company", EntityCompany, false},
		{"COMPANY", EntityCompany, false},
		{"  Financial_Metric ", EntityFinancialMetric, false},
		{"person", EntityPerson, false},
		{"organization", "", true},
		{"", "", true},
		{"company; DROP", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseEntityType(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntityTypeLabel(t *testing.T) {
	assert.Equal(t, "Company", EntityCompany.Label())
	assert.Equal(t, "FinancialMetric", EntityFinancialMetric.Label())
	assert.Equal(t, "Location", EntityLocation.Label())
}

func TestParseRelationType(t *testing.T) {
	got, err := ParseRelationType("has_ceo")
	require.NoError(t, err)
	assert.Equal(t, RelationHasCEO, got)

	got, err = ParseRelationType("COMPETES_WITH")
	require.NoError(t, err)
	assert.Equal(t, RelationCompetesWith, got)

	_, err = ParseRelationType("FRIENDS_WITH")
	assert.Error(t, err)
}

func TestChunkRef(t *testing.T) {
	c := Chunk{Provenance: Provenance{DocumentID: "10k-2025"}, Index: 3}
	assert.Equal(t, "10k-2025#3", c.Ref())
}

func TestErrorTaxonomyIsSupport(t *testing.T) {
	extractErr := fmt.Errorf("chunk failed: %w", &ExtractionError{
		Reason:   ExtractionTimeout,
		Attempts: 3,
	})
	assert.True(t, errors.Is(extractErr, &ExtractionError{}))

	var ee *ExtractionError
	require.True(t, errors.As(extractErr, &ee))
	assert.Equal(t, ExtractionTimeout, ee.Reason)
	assert.Equal(t, 3, ee.Attempts)

	writeErr := &GraphWriteError{Class: WriteRetriable, Err: errors.New("connection reset")}
	assert.True(t, errors.Is(writeErr, &GraphWriteError{}))
	assert.True(t, Retriable(writeErr))
	assert.False(t, Retriable(&GraphWriteError{Class: WriteFatal, Err: errors.New("syntax")}))
	assert.False(t, Retriable(errors.New("plain")))

	assert.True(t, errors.Is(&TranslationError{Reason: TranslationUnknownEntityType}, &TranslationError{}))
	assert.True(t, errors.Is(&ResourceExhaustionError{}, &ResourceExhaustionError{}))
	assert.True(t, errors.Is(&DependencyUnavailableError{Dependency: "llm"}, &DependencyUnavailableError{}))
}

func TestRunStatisticsRecordFailure(t *testing.T) {
	stats := &RunStatistics{RunID: "run-1", State: RunRunning}
	stats.RecordFailure(ChunkFailure{ChunkRef: "doc#0", Stage: "extraction", Reason: "malformed_output", Attempts: 3})
	stats.RecordFailure(ChunkFailure{ChunkRef: "doc#2", Stage: "graph_write", Reason: "fatal"})

	assert.Equal(t, 2, stats.ChunksFailed)
	require.Len(t, stats.Failures, 2)
	assert.Equal(t, "doc#0", stats.Failures[0].ChunkRef)
}
