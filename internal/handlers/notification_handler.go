package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	feed       *services.NotificationFeed
	dispatcher *services.Dispatcher
	users      repositories.UserRepository
	tracker    *session.Tracker
	log        *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(feed *services.NotificationFeed, dispatcher *services.Dispatcher, users repositories.UserRepository, tracker *session.Tracker, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		feed:       feed,
		dispatcher: dispatcher,
		users:      users,
		tracker:    tracker,
		log:        log.Named("notification_handler"),
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.POST("/notifications", h.CreateNotification)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.GET("/notifications/stream", h.Stream)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
}

// GetNotifications returns paginated notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c, 20)

	notifications, total, err := h.feed.List(c.Request().Context(), s.UserID, page, limit)
	if err != nil {
		return serviceError(err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    notifications,
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// CreateNotification records a notification described by a free-form verb,
// as sent by clients after social actions they performed themselves.
func (h *NotificationHandler) CreateNotification(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var req models.CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ev, err := events.FromVerb(actorFromSession(s), req.TargetID, req.Verb, req.PostID, req.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if ev.IsSelf() {
		return c.NoContent(http.StatusNoContent)
	}
	if _, err := h.users.GetUserByID(c.Request().Context(), req.TargetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Target user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up target user")
	}

	record := h.dispatcher.Notify(c.Request().Context(), ev)
	// Push is a side effect; the client does not wait for it.
	h.dispatcher.EmitPush(ev)
	if record == nil {
		return c.NoContent(http.StatusAccepted)
	}
	return success(c, http.StatusCreated, record)
}

// GetGroupedNotifications buckets notifications into today, yesterday, this week and older
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	grouped, err := h.feed.Grouped(c.Request().Context(), s.UserID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, grouped)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	count, err := h.feed.UnreadCount(c.Request().Context(), s.UserID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}
	if err := h.dispatcher.MarkRead(c.Request().Context(), s.UserID, uint(id)); err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"id": id, "is_read": true})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.dispatcher.MarkAllRead(c.Request().Context(), s.UserID); err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"message": "All notifications marked as read"})
}

// Stream upgrades to a WebSocket carrying the unread count and newest notifications
func (h *NotificationHandler) Stream(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ws, err := openStream(c, h.tracker, s.UserID)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return nil
	}
	defer ws.Close()

	sub, err := h.feed.Watch(ws.ctx, s.UserID)
	if err != nil {
		h.log.Error("watch notifications", zap.String("user_id", s.UserID), zap.Error(err))
		return nil
	}
	defer sub.Close()

	pump(ws, sub.Updates())
	return nil
}
