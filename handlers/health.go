package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports whether the store answers and how many friendship lookups
// have fallen back to not_friends since start.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{
		"status":           "ok",
		"store":            "up",
		"degraded_lookups": h.Resolver.DegradedLookups(),
	}
	if err := h.Accounts.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["store"] = "down"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
