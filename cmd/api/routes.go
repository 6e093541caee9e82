package main

import (
	"net/http"

	"voice-orchestrator/internal/telephony"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, webhookPath string, calls telephony.CallWebhookHandler) {
	// Process liveness only; platform health lives on GET webhookPath.
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	calls.Register(r, webhookPath)
}
