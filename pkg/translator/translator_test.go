package translator

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/fingraph/pkg/types"
)

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	tr := New(Config{}, nil)
	tr.now = func() time.Time {
		return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	}
	return tr
}

func sampleResult() *types.ExtractionResult {
	return &types.ExtractionResult{
		Entities: []types.ExtractedEntity{
			{Name: "Samsung", Type: types.EntityCompany, Properties: map[string]any{"sector": "electronics"}},
			{Name: "Jane Doe", Type: types.EntityPerson},
		},
		Relationships: []types.ExtractedRelationship{
			{SourceName: "Samsung", TargetName: "Jane Doe", Type: types.RelationHasCEO},
		},
		Chunk: types.Chunk{Provenance: types.Provenance{DocumentID: "10k-2025"}, Index: 3},
	}
}

func TestTranslateOrdersEntitiesBeforeRelationships(t *testing.T) {
	tr := newTestTranslator(t)

	statements, err := tr.Translate(sampleResult())
	require.NoError(t, err)
	require.Len(t, statements, 3)

	assert.Contains(t, statements[0].Template, "MERGE (n:Company {name: $name})")
	assert.Contains(t, statements[1].Template, "MERGE (n:Person {name: $name})")
	assert.Contains(t, statements[2].Template, "[r:HAS_CEO]")

	assert.Equal(t, "Samsung", statements[0].Parameters["name"])
	assert.Equal(t, "10k-2025#3", statements[0].Parameters["source"])
	assert.Equal(t, "2026-01-15T12:00:00Z", statements[0].Parameters["last_updated"])
	assert.Equal(t, "Samsung", statements[2].Parameters["source_name"])
	assert.Equal(t, "Jane Doe", statements[2].Parameters["target_name"])
}

func TestTranslateIsIdempotentInShape(t *testing.T) {
	tr := newTestTranslator(t)

	first, err := tr.Translate(sampleResult())
	require.NoError(t, err)
	second, err := tr.Translate(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, st := range first {
		assert.Contains(t, st.Template, "MERGE", "upserts must merge, never create")
		assert.NotContains(t, st.Template, "CREATE")
	}
}

func TestTranslateNeverInterpolatesExtractedContent(t *testing.T) {
	tr := newTestTranslator(t)
	hostile := `Evil'}) DETACH DELETE n //`

	result := &types.ExtractionResult{
		Entities: []types.ExtractedEntity{
			{Name: hostile, Type: types.EntityCompany, Properties: map[string]any{"note": hostile}},
		},
		Chunk: types.Chunk{Provenance: types.Provenance{DocumentID: "doc"}},
	}

	statements, err := tr.Translate(result)
	require.NoError(t, err)
	require.Len(t, statements, 1)

	assert.NotContains(t, statements[0].Template, "Evil")
	assert.NotContains(t, statements[0].Template, "DETACH")
	assert.Equal(t, hostile, statements[0].Parameters["name"])
}

func TestTranslateDedupsEntitiesLastWriteWins(t *testing.T) {
	tr := newTestTranslator(t)

	result := &types.ExtractionResult{
		Entities: []types.ExtractedEntity{
			{Name: "Acme", Type: types.EntityCompany, Properties: map[string]any{"sector": "mining", "hq": "Denver"}},
			{Name: "Acme", Type: types.EntityCompany, Properties: map[string]any{"sector": "logistics"}},
			// Same name, different type: distinct node.
			{Name: "Acme", Type: types.EntityProduct},
		},
		Chunk: types.Chunk{Provenance: types.Provenance{DocumentID: "doc"}},
	}

	statements, err := tr.Translate(result)
	require.NoError(t, err)
	require.Len(t, statements, 2)

	props := statements[0].Parameters["props"].(map[string]any)
	assert.Equal(t, "logistics", props["sector"])
	assert.Equal(t, "Denver", props["hq"])
}

func TestTranslateDedupsRelationships(t *testing.T) {
	tr := newTestTranslator(t)

	result := &types.ExtractionResult{
		Relationships: []types.ExtractedRelationship{
			{SourceName: "A", TargetName: "B", Type: types.RelationSupplies},
			{SourceName: "A", TargetName: "B", Type: types.RelationSupplies},
			{SourceName: "A", TargetName: "B", Type: types.RelationPurchases},
		},
		Chunk: types.Chunk{Provenance: types.Provenance{DocumentID: "doc"}},
	}

	statements, err := tr.Translate(result)
	require.NoError(t, err)
	assert.Len(t, statements, 2)
}

func TestTranslateRejectsNonScalarPropertyValue(t *testing.T) {
	tr := newTestTranslator(t)

	result := &types.ExtractionResult{
		Entities: []types.ExtractedEntity{
			{Name: "Acme", Type: types.EntityCompany, Properties: map[string]any{
				"subsidiaries": []any{"one", "two"},
			}},
		},
		Chunk: types.Chunk{Provenance: types.Provenance{DocumentID: "doc"}},
	}

	_, err := tr.Translate(result)
	require.Error(t, err)

	var te *types.TranslationError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.TranslationInvalidPropertyValue, te.Reason)
}

func TestTranslateEmptyResult(t *testing.T) {
	tr := newTestTranslator(t)

	statements, err := tr.Translate(&types.ExtractionResult{})
	require.NoError(t, err)
	assert.Nil(t, statements)
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"revenue", "revenue"},
		{"Revenue 2025", "revenue_2025"},
		{"q3-growth", "q3_growth"},
		{"3rd_quarter", "prop_3rd_quarter"},
		{"", "unknown"},
		{"drop table", "drop_table"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeKey(tt.in), "key %q", tt.in)
	}
}

func TestSanitizePropertiesSkipsReservedAndTruncates(t *testing.T) {
	tr := New(Config{MaxValueLength: 10}, nil)

	props, err := tr.sanitizeProperties(map[string]any{
		"name":        "overwrite attempt",
		"source":      "spoofed",
		"description": strings.Repeat("x", 100),
		"count":       float64(7),
		"flag":        true,
	})
	require.NoError(t, err)

	assert.NotContains(t, props, "name")
	assert.NotContains(t, props, "source")
	assert.Len(t, props["description"], 10)
	assert.Equal(t, float64(7), props["count"])
	assert.Equal(t, true, props["flag"])
}

func TestSanitizeValueTruncatesOnRuneBoundary(t *testing.T) {
	// "€" is three bytes; a byte-offset cut at 10 would land mid-rune.
	tr := New(Config{MaxValueLength: 10}, nil)

	got, err := tr.sanitizeValue("note", strings.Repeat("€", 20))
	require.NoError(t, err)

	s, ok := got.(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(s))
	assert.LessOrEqual(t, len(s), 10)
	assert.Equal(t, strings.Repeat("€", 3), s)
}
