package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"slotwatch-backend/internal/history"
	"slotwatch-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	history *history.Store
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(hist *history.Store, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		history: hist,
		store:   s,
		webpush: webpushOptions,
	}
}
