package dto

import (
	"errors"
	"strings"

	"github.com/finsight/fingraph/pkg/types"
)

// Validation errors
var (
	ErrEmptyDocumentID   = errors.New("document_id cannot be empty")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrDocumentIDTooLong = errors.New("document_id exceeds maximum length (256)")
	ErrTextTooLong       = errors.New("text exceeds maximum length (10MB)")
)

// MaxFieldLengths defines maximum lengths for fields to prevent abuse
const (
	MaxDocumentIDLength = 256
	MaxTextLength       = 10 * 1024 * 1024
)

// IngestTextRequest is a request to run one document through the pipeline.
type IngestTextRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Text       string `json:"text" binding:"required"`
	PageNumber int    `json:"page_number,omitempty"`
	RunID      string `json:"run_id,omitempty"`
}

// Validate performs validation on IngestTextRequest
func (r *IngestTextRequest) Validate() error {
	if strings.TrimSpace(r.DocumentID) == "" {
		return ErrEmptyDocumentID
	}
	if len(r.DocumentID) > MaxDocumentIDLength {
		return ErrDocumentIDTooLong
	}
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// Provenance converts the request into pipeline provenance.
func (r *IngestTextRequest) Provenance() types.Provenance {
	return types.Provenance{
		DocumentID: r.DocumentID,
		PageNumber: r.PageNumber,
	}
}

// IngestResponse carries the run outcome back to the caller.
type IngestResponse struct {
	Success bool                 `json:"success"`
	Stats   *types.RunStatistics `json:"stats,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// ReplayResponse reports a journal drain.
type ReplayResponse struct {
	Success            bool   `json:"success"`
	EntriesReplayed    int    `json:"entries_replayed"`
	StatementsExecuted int    `json:"statements_executed"`
	Error              string `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
