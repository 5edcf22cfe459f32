package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultChecksLimit = 50

// GetChecks handles GET /api/checks, serving archived check runs from
// the database, newest first.
func (h *Handler) GetChecks(c *gin.Context) {
	limit := defaultChecksLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = n
	}

	runs, err := h.store.RecentChecks(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve check runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checks": runs})
}
