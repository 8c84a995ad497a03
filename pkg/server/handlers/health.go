package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finsight/fingraph"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	ingestor fingraph.Ingestor
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(ingestor fingraph.Ingestor) *HealthHandler {
	return &HealthHandler{ingestor: ingestor}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "fingraph",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live - Kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ReadinessCheck handles GET /ready - probes the LLM service and the graph
// store. The service reports ready when the LLM answers; a downed graph
// store only degrades ingestion, it does not stop it.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if h.ingestor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  "ingestion client not initialized",
		})
		return
	}

	statuses := h.ingestor.PingDependencies(ctx)
	for name, status := range statuses {
		check := gin.H{
			"status":  string(status.State),
			"healthy": status.Healthy(),
		}
		if status.Message != "" {
			check["message"] = status.Message
		}
		if status.Suggestion != "" {
			check["suggestion"] = status.Suggestion
		}
		checks[name] = check
	}

	if llm, ok := statuses["llm"]; !ok || !llm.Healthy() {
		ready = false
	}

	response := gin.H{
		"status":    "ready",
		"service":   "fingraph",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}
	statusCode := http.StatusOK
	if !ready {
		response["status"] = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// DetailedHealthCheck handles GET /health/detailed - adds build and runtime
// information to the readiness payload.
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	checks := gin.H{}
	if h.ingestor != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		for name, status := range h.ingestor.PingDependencies(ctx) {
			checks[name] = gin.H{
				"status":  string(status.State),
				"healthy": status.Healthy(),
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "fingraph",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"build": gin.H{
			"version":    Version,
			"git_commit": GitCommit,
			"build_time": BuildTime,
			"go_version": GoVersion,
		},
		"runtime": gin.H{
			"goroutines": runtime.NumGoroutine(),
			"heap_bytes": ms.HeapAlloc,
			"gc_cycles":  ms.NumGC,
			"num_cpu":    runtime.NumCPU(),
		},
		"checks": checks,
	})
}
