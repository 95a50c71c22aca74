package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupHealthHandlers registers liveness and readiness probes
func (h *Handlers) SetupHealthHandlers(router *gin.RouterGroup) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ready",
			"compositions": len(h.Compositions.List()),
			"sessions":     h.Sessions.Count(),
		})
	})
}
