package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finsight/fingraph"
	"github.com/finsight/fingraph/pkg/server/dto"
	"github.com/finsight/fingraph/pkg/types"
)

// IngestHandler handles document ingestion requests
type IngestHandler struct {
	ingestor fingraph.Ingestor
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestor fingraph.Ingestor) *IngestHandler {
	return &IngestHandler{ingestor: ingestor}
}

// IngestText handles POST /api/v1/ingest/text. The run executes
// synchronously and the full run statistics come back in the response;
// per-chunk failures are reported there, not as an HTTP error.
func (h *IngestHandler) IngestText(c *gin.Context) {
	var req dto.IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	stats, err := h.ingestor.RunIngestion(c.Request.Context(), req.Text, req.Provenance(),
		&fingraph.RunOptions{RunID: req.RunID})
	if err != nil {
		status := http.StatusInternalServerError
		var due *types.DependencyUnavailableError
		if errors.As(err, &due) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, dto.IngestResponse{
			Success: false,
			Stats:   stats,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.IngestResponse{Success: true, Stats: stats})
}

// Replay handles POST /api/v1/replay, draining journaled statements from
// earlier degraded runs into the graph store.
func (h *IngestHandler) Replay(c *gin.Context) {
	stats, err := h.ingestor.ReplayJournal(c.Request.Context())
	if err != nil {
		resp := dto.ReplayResponse{Success: false, Error: err.Error()}
		if stats != nil {
			resp.EntriesReplayed = stats.EntriesReplayed
			resp.StatementsExecuted = stats.StatementsExecuted
		}
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, dto.ReplayResponse{
		Success:            true,
		EntriesReplayed:    stats.EntriesReplayed,
		StatementsExecuted: stats.StatementsExecuted,
	})
}
