package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors
var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrEmptyDocumentID = errors.New("document_id cannot be empty")
	ErrEmptyText       = errors.New("text cannot be empty")
)

// EntityType is the closed set of node labels the pipeline will admit.
// Anything outside this set is rejected at validation time, never coerced.
type EntityType string

const (
	EntityCompany         EntityType = "company"
	EntityPerson          EntityType = "person"
	EntityProduct         EntityType = "product"
	EntityLocation        EntityType = "location"
	EntityFinancialMetric EntityType = "financial_metric"
	EntityEvent           EntityType = "event"
)

// EntityTypes lists all accepted entity types in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityCompany,
		EntityPerson,
		EntityProduct,
		EntityLocation,
		EntityFinancialMetric,
		EntityEvent,
	}
}

// Valid reports whether t is a member of the accepted entity type set.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCompany, EntityPerson, EntityProduct, EntityLocation,
		EntityFinancialMetric, EntityEvent:
		return true
	}
	return false
}

// Label returns the graph label for the entity type (e.g. "Company",
// "FinancialMetric"). Labels are derived from the closed enumeration only,
// so they are safe to splice into a statement template.
func (t EntityType) Label() string {
	parts := strings.Split(string(t), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// ParseEntityType normalizes a raw LLM-supplied type string and validates it
// against the accepted set. The extraction prompt asks for upper-case types
// (COMPANY, FINANCIAL_METRIC) but models frequently echo either casing.
func ParseEntityType(raw string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", raw)
	}
	return t, nil
}

// RelationType is the closed set of relationship labels from the extraction
// prompt, plus RelationRelatedTo as the generic catch-all.
type RelationType string

const (
	RelationSupplies     RelationType = "SUPPLIES"
	RelationPurchases    RelationType = "PURCHASES"
	RelationCompetesWith RelationType = "COMPETES_WITH"
	RelationHasCEO       RelationType = "HAS_CEO"
	RelationEmploys      RelationType = "EMPLOYS"
	RelationLostEmployee RelationType = "LOST_EMPLOYEE"
	RelationHired        RelationType = "HIRED"
	RelationHasDebt      RelationType = "HAS_DEBT"
	RelationOwnsAsset    RelationType = "OWNS_ASSET"
	RelationInvestsIn    RelationType = "INVESTS_IN"
	RelationLocatedIn    RelationType = "LOCATED_IN"
	RelationOperatesIn   RelationType = "OPERATES_IN"
	RelationProduces     RelationType = "PRODUCES"
	RelationManufactures RelationType = "MANUFACTURES"
	RelationRelatedTo    RelationType = "RELATED_TO"
)

// RelationTypes lists all accepted relationship types in a stable order.
func RelationTypes() []RelationType {
	return []RelationType{
		RelationSupplies, RelationPurchases, RelationCompetesWith,
		RelationHasCEO, RelationEmploys, RelationLostEmployee, RelationHired,
		RelationHasDebt, RelationOwnsAsset, RelationInvestsIn,
		RelationLocatedIn, RelationOperatesIn,
		RelationProduces, RelationManufactures,
		RelationRelatedTo,
	}
}

// Valid reports whether t is a member of the accepted relation type set.
func (t RelationType) Valid() bool {
	for _, known := range RelationTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseRelationType normalizes a raw LLM-supplied relation type and validates
// it against the accepted set.
func ParseRelationType(raw string) (RelationType, error) {
	t := RelationType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown relation type %q", raw)
	}
	return t, nil
}

// Provenance identifies where a span of source text came from.
type Provenance struct {
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number,omitempty"`
}

// Validate checks that the provenance names a source document.
func (p Provenance) Validate() error {
	if p.DocumentID == "" {
		return ErrEmptyDocumentID
	}
	return nil
}

// Chunk is a bounded span of source text, the unit of extraction work.
// Chunks are immutable once produced by the chunker and are discarded after
// their extraction completes.
type Chunk struct {
	Text       string     `json:"text"`
	Provenance Provenance `json:"provenance"`

	// Index is the zero-based sequence position within the document.
	Index int `json:"index"`
	// StartOffset and EndOffset are character offsets into the source text,
	// half-open [start, end).
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
}

// Ref returns a stable human-readable reference for logs and provenance
// properties, e.g. "10k-2025#3".
func (c Chunk) Ref() string {
	return fmt.Sprintf("%s#%d", c.Provenance.DocumentID, c.Index)
}

// ExtractedEntity is a node candidate produced by the extractor. Name is the
// deduplication key within a type: the same name extracted from different
// chunks or different runs unifies to one graph node.
type ExtractedEntity struct {
	Name       string         `json:"name"`
	Type       EntityType     `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ExtractedRelationship is an edge candidate. Endpoints are referenced by
// entity name, not by id; the translator resolves names via upsert-on-name.
type ExtractedRelationship struct {
	SourceName string         `json:"source"`
	TargetName string         `json:"target"`
	Type       RelationType   `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ExtractionResult is the validated output of one chunk's extraction.
// It is handed to the translator immediately and not retained afterwards.
type ExtractionResult struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`

	Chunk Chunk `json:"chunk"`
	// Attempts is how many LLM calls it took to obtain this result.
	Attempts int `json:"attempts"`
}

// IsEmpty reports whether the extraction produced nothing.
func (r *ExtractionResult) IsEmpty() bool {
	return r == nil || (len(r.Entities) == 0 && len(r.Relationships) == 0)
}

// StatementKind distinguishes entity upserts from relationship upserts.
type StatementKind string

const (
	StatementEntity       StatementKind = "entity"
	StatementRelationship StatementKind = "relationship"
)

// GraphStatement is one parameterized upsert against the graph store.
// The template never contains interpolated extracted content; all variable
// values travel in Parameters. Templates are drawn from a finite set per
// (entity label, relation type) combination.
type GraphStatement struct {
	Kind       StatementKind  `json:"kind"`
	Template   string         `json:"template"`
	Parameters map[string]any `json:"parameters"`
}

// ConnectionState classifies the outcome of a dependency probe.
type ConnectionState string

const (
	ConnectionOK          ConnectionState = "ok"
	ConnectionAuthFailed  ConnectionState = "auth_failed"
	ConnectionUnreachable ConnectionState = "unreachable"
	ConnectionNotReady    ConnectionState = "not_ready"
)

// ConnectionStatus is the structured result of pinging an external
// dependency, including a remediation hint on failure.
type ConnectionStatus struct {
	State      ConnectionState `json:"state"`
	Endpoint   string          `json:"endpoint,omitempty"`
	Message    string          `json:"message,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
	CheckedAt  time.Time       `json:"checked_at"`
}

// Healthy reports whether the dependency answered the probe.
func (s ConnectionStatus) Healthy() bool {
	return s.State == ConnectionOK
}
