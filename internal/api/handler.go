package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"habitat-backend/internal/engine"
	"habitat-backend/internal/habitat"
	"habitat-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	manager *habitat.Manager
	engine  *engine.Engine
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(manager *habitat.Manager, eng *engine.Engine, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		manager: manager,
		engine:  eng,
		store:   s,
		webpush: webpushOptions,
	}
}

// abortWithDomainError maps the engine's typed errors onto stable HTTP
// responses. Persistence failures get a generic retry message, never a
// fabricated success.
func abortWithDomainError(c *gin.Context, err error) {
	var pe *habitat.PersistenceError
	switch {
	case errors.Is(err, engine.ErrCapacityExceeded):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "zone is at capacity"})
	case errors.Is(err, engine.ErrIncompatibleHabitat):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "species cannot live in this zone"})
	case errors.Is(err, engine.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &pe):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage is temporarily unavailable, try again"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
