package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PushHandler manages the caller's device push registration
type PushHandler struct {
	registrations repositories.PushRegistrationRepository
}

func NewPushHandler(registrations repositories.PushRegistrationRepository) *PushHandler {
	return &PushHandler{registrations: registrations}
}

func (h *PushHandler) RegisterPushRoutes(g *echo.Group) {
	g.PUT("/push/registration", h.Register)
	g.DELETE("/push/registration", h.Unregister)
}

// Register stores the caller's device token, replacing any previous one
func (h *PushHandler) Register(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var req models.RegisterPushRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	reg := &models.PushRegistration{
		UserID:    s.UserID,
		Token:     strings.TrimSpace(req.Token),
		Platform:  req.Platform,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.registrations.SaveRegistration(c.Request().Context(), reg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return success(c, http.StatusOK, reg)
}

func (h *PushHandler) Unregister(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	err = h.registrations.DeleteRegistration(c.Request().Context(), s.UserID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
