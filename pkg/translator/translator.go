// Package translator turns validated extraction results into parameterized
// graph upsert statements. Labels and relationship types are spliced into
// statement templates only from the closed enumerations; every extracted
// value, including entity names, travels as a bound parameter, so hostile
// document text can never alter statement structure.
package translator

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finsight/fingraph/pkg/types"
)

const (
	// entityUpsertTemplate merges a node on its name within the type label
	// and folds the new properties in. Later writes of the same (type, name)
	// overwrite overlapping properties.
	entityUpsertTemplate = `
		MERGE (n:%s {name: $name})
		SET n += $props
		SET n.last_updated = $last_updated
		SET n.source = $source
	`

	// relationshipUpsertTemplate merges both endpoints before merging the
	// edge, so a relationship whose endpoints were extracted in another
	// chunk (or dropped by validation upstream) still lands.
	relationshipUpsertTemplate = `
		MERGE (a {name: $source_name})
		MERGE (b {name: $target_name})
		MERGE (a)-[r:%s]->(b)
		SET r += $props
		SET r.last_updated = $last_updated
	`
)

// Config controls translation behaviour.
type Config struct {
	// MaxValueLength truncates oversized string property values. Zero
	// means the default of 500.
	MaxValueLength int
}

// Translator converts extraction results into graph statements.
type Translator struct {
	cfg    Config
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Translator with sensible defaults.
func New(cfg Config, logger *slog.Logger) *Translator {
	if cfg.MaxValueLength <= 0 {
		cfg.MaxValueLength = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{cfg: cfg, logger: logger, now: time.Now}
}

// Translate produces the ordered statement list for one extraction result:
// entity upserts first, then relationship upserts, each deduplicated within
// the result. Statements are idempotent; replaying them converges to the
// same graph.
func (t *Translator) Translate(result *types.ExtractionResult) ([]types.GraphStatement, error) {
	if result.IsEmpty() {
		return nil, nil
	}

	timestamp := t.now().UTC().Format(time.RFC3339)
	source := result.Chunk.Ref()

	entities, err := t.dedupEntities(result.Entities)
	if err != nil {
		return nil, err
	}
	relationships, err := t.dedupRelationships(result.Relationships)
	if err != nil {
		return nil, err
	}

	statements := make([]types.GraphStatement, 0, len(entities)+len(relationships))
	for _, ent := range entities {
		statements = append(statements, types.GraphStatement{
			Kind:     types.StatementEntity,
			Template: fmt.Sprintf(entityUpsertTemplate, ent.Type.Label()),
			Parameters: map[string]any{
				"name":         ent.Name,
				"props":        ent.Properties,
				"last_updated": timestamp,
				"source":       source,
			},
		})
	}
	for _, rel := range relationships {
		statements = append(statements, types.GraphStatement{
			Kind:     types.StatementRelationship,
			Template: fmt.Sprintf(relationshipUpsertTemplate, string(rel.Type)),
			Parameters: map[string]any{
				"source_name":  rel.SourceName,
				"target_name":  rel.TargetName,
				"props":        rel.Properties,
				"last_updated": timestamp,
			},
		})
	}

	t.logger.Debug("translated extraction",
		"chunk", source,
		"entities", len(entities),
		"relationships", len(relationships),
		"statements", len(statements))
	return statements, nil
}

// dedupEntities collapses repeated (type, name) pairs, merging properties
// with later values winning, and sanitizes property maps.
func (t *Translator) dedupEntities(in []types.ExtractedEntity) ([]types.ExtractedEntity, error) {
	type key struct {
		entityType types.EntityType
		name       string
	}
	merged := make(map[key]*types.ExtractedEntity)
	order := make([]key, 0, len(in))

	for _, ent := range in {
		if !ent.Type.Valid() {
			return nil, &types.TranslationError{
				Reason: types.TranslationUnknownEntityType,
				Detail: fmt.Sprintf("entity %q has type %q", ent.Name, ent.Type),
			}
		}
		props, err := t.sanitizeProperties(ent.Properties)
		if err != nil {
			return nil, err
		}
		k := key{ent.Type, ent.Name}
		if existing, ok := merged[k]; ok {
			for pk, pv := range props {
				existing.Properties[pk] = pv
			}
			continue
		}
		merged[k] = &types.ExtractedEntity{Name: ent.Name, Type: ent.Type, Properties: props}
		order = append(order, k)
	}

	out := make([]types.ExtractedEntity, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out, nil
}

// dedupRelationships collapses repeated (source, target, type) triples.
func (t *Translator) dedupRelationships(in []types.ExtractedRelationship) ([]types.ExtractedRelationship, error) {
	type key struct {
		source, target string
		relType        types.RelationType
	}
	merged := make(map[key]*types.ExtractedRelationship)
	order := make([]key, 0, len(in))

	for _, rel := range in {
		if !rel.Type.Valid() {
			return nil, &types.TranslationError{
				Reason: types.TranslationUnknownEntityType,
				Detail: fmt.Sprintf("relationship %s->%s has type %q", rel.SourceName, rel.TargetName, rel.Type),
			}
		}
		props, err := t.sanitizeProperties(rel.Properties)
		if err != nil {
			return nil, err
		}
		k := key{rel.SourceName, rel.TargetName, rel.Type}
		if existing, ok := merged[k]; ok {
			for pk, pv := range props {
				existing.Properties[pk] = pv
			}
			continue
		}
		merged[k] = &types.ExtractedRelationship{
			SourceName: rel.SourceName,
			TargetName: rel.TargetName,
			Type:       rel.Type,
			Properties: props,
		}
		order = append(order, k)
	}

	out := make([]types.ExtractedRelationship, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out, nil
}

var invalidKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeKey normalizes an LLM-supplied property key into a valid graph
// identifier: only [A-Za-z0-9_], must start with a letter, lowercased.
func SanitizeKey(key string) string {
	key = invalidKeyChars.ReplaceAllString(key, "_")
	if key == "" {
		return "unknown"
	}
	first := key[0]
	if !(first >= 'a' && first <= 'z' || first >= 'A' && first <= 'Z') {
		key = "prop_" + key
	}
	return strings.ToLower(key)
}

// sanitizeProperties rewrites a property map with sanitized keys and only
// scalar values. Keys colliding after sanitization resolve by original key
// order. Reserved keys set by the templates themselves are dropped.
func (t *Translator) sanitizeProperties(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	if len(in) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		safe := SanitizeKey(k)
		switch safe {
		case "name", "last_updated", "source":
			continue
		}
		value, err := t.sanitizeValue(safe, in[k])
		if err != nil {
			return nil, err
		}
		out[safe] = value
	}
	return out, nil
}

// sanitizeValue admits scalar property values only. Strings are trimmed of
// control characters and bounded in length; nested maps and slices are the
// model improvising and are rejected.
func (t *Translator) sanitizeValue(key string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool, int, int32, int64, float32, float64:
		return v, nil
	case string:
		v = strings.Map(func(r rune) rune {
			if r < 0x20 {
				return ' '
			}
			return r
		}, v)
		v = strings.TrimSpace(v)
		if len(v) > t.cfg.MaxValueLength {
			cut := t.cfg.MaxValueLength
			for cut > 0 && !utf8.RuneStart(v[cut]) {
				cut--
			}
			v = strings.TrimSpace(v[:cut])
		}
		return v, nil
	default:
		return nil, &types.TranslationError{
			Reason: types.TranslationInvalidPropertyValue,
			Detail: fmt.Sprintf("property %q has non-scalar value of type %T", key, value),
		}
	}
}
