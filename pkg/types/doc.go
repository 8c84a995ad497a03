// Package types defines the core data model for the fingraph ingestion
// pipeline.
//
// The pipeline hands off ownership strictly along the data flow:
//
//	text -> Chunk -> ExtractionResult -> []GraphStatement -> committed graph
//
// Chunks and extraction results are transient; only GraphStatements reach
// the store, and only RunStatistics survives a run. Entity and relation
// types are closed enumerations: validation rejects unknown values instead
// of admitting arbitrary labels into the graph.
//
// The package also carries the error taxonomy shared by every stage
// (ExtractionError, TranslationError, GraphWriteError,
// ResourceExhaustionError, DependencyUnavailableError). All of them support
// errors.Is / errors.As against zero-value targets.
package types
