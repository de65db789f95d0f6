package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/middleware"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/labstack/echo/v4"
)

// currentSession returns the session set by the auth middleware
func currentSession(c echo.Context) (session.Session, error) {
	if s, ok := c.Get(middleware.SessionKey).(session.Session); ok && s.UserID != "" {
		return s, nil
	}
	s, err := session.FromContext(c.Request().Context())
	if err != nil {
		return session.Session{}, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return s, nil
}

func getUserIDFromContext(c echo.Context) string {
	s, err := currentSession(c)
	if err != nil {
		return ""
	}
	return s.UserID
}

func actorFromSession(s session.Session) events.Actor {
	return events.Actor{ID: s.UserID, Name: s.DisplayName, PhotoURL: s.PhotoURL}
}

// pagination reads page/limit query params with the given default limit, capped at 50
func pagination(c echo.Context, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = defaultLimit
	}
	return page, limit
}

func success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// serviceError maps service sentinels onto HTTP errors
func serviceError(err error) error {
	var httpErr *echo.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotMember), errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrEmptyComment),
		errors.Is(err, services.ErrInvalidParticipants),
		errors.Is(err, services.ErrSelfAction),
		errors.Is(err, events.ErrMissingPostID),
		errors.Is(err, events.ErrMissingBody):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAlreadyFollowing), errors.Is(err, services.ErrNotFollowing):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
