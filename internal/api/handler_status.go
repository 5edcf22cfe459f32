package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusResponse summarizes the latest snapshot for dashboards.
type statusResponse struct {
	LastCheck      *string `json:"last_check"`
	SlotsAvailable int     `json:"slots_available"`
	ChecksLogged   int     `json:"checks_logged"`
}

// GetStatus handles GET /api/status from the history snapshot.
func (h *Handler) GetStatus(c *gin.Context) {
	snap := h.history.Load()
	c.JSON(http.StatusOK, statusResponse{
		LastCheck:      snap.LastCheck,
		SlotsAvailable: len(snap.Slots),
		ChecksLogged:   len(snap.Checks),
	})
}

// GetSlots handles GET /api/slots, returning the most recently
// observed slot set.
func (h *Handler) GetSlots(c *gin.Context) {
	snap := h.history.Load()
	c.JSON(http.StatusOK, gin.H{
		"last_check": snap.LastCheck,
		"slots":      snap.Slots,
	})
}
