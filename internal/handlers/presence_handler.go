package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/labstack/echo/v4"
)

// PresenceHandler records and reports user activity
type PresenceHandler struct {
	presence *services.PresenceService
}

func NewPresenceHandler(presence *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

func (h *PresenceHandler) RegisterPresenceRoutes(g *echo.Group) {
	g.POST("/presence", h.Touch)
	g.GET("/users/:id/presence", h.GetLastActive)
}

// Touch marks the caller active now
func (h *PresenceHandler) Touch(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.presence.Touch(c.Request().Context(), s.UserID); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PresenceHandler) GetLastActive(c echo.Context) error {
	userID := c.Param("id")
	lastActive, err := h.presence.LastActive(c.Request().Context(), userID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"user_id": userID, "last_active_at": lastActive})
}
