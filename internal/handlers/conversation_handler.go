package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ConversationHandler serves direct conversations and their messages
type ConversationHandler struct {
	conversations *services.ConversationService
	messages      *services.MessageService
	presence      *services.PresenceService
	profiles      *services.ProfileService
	tracker       *session.Tracker
	log           *zap.Logger
}

func NewConversationHandler(
	conversations *services.ConversationService,
	messages *services.MessageService,
	presence *services.PresenceService,
	profiles *services.ProfileService,
	tracker *session.Tracker,
	log *zap.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		presence:      presence,
		profiles:      profiles,
		tracker:       tracker,
		log:           log.Named("conversation_handler"),
	}
}

// RegisterConversationRoutes registers conversation and message routes
func (h *ConversationHandler) RegisterConversationRoutes(g *echo.Group) {
	g.POST("/conversations", h.StartConversation)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:id", h.GetConversation)
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
	g.POST("/conversations/:id/read", h.MarkRead)
	g.GET("/conversations/:id/stream", h.Stream)
}

// ConversationStreamFrame is one update on a conversation stream
type ConversationStreamFrame struct {
	ConversationID string               `json:"conversation_id"`
	Messages       []models.MessageView `json:"messages"`
	PeerLastActive *time.Time           `json:"peer_last_active"`
}

// StartConversation resolves the caller's conversation with user_id
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var req models.StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if _, err := h.profiles.Get(ctx, req.UserID); err != nil {
		return serviceError(err)
	}
	conv, err := h.conversations.Resolve(ctx, s.UserID, req.UserID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, conv)
}

// ListConversations returns the caller's chat list
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	views, err := h.conversations.ListForUser(c.Request().Context(), s.UserID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": views, "meta": echo.Map{"count": len(views)}})
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	conv, err := h.conversations.Get(c.Request().Context(), c.Param("id"), s.UserID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, conv)
}

// ListMessages returns the ordered messages with the seen status of the
// caller's latest message.
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"), s.UserID)
	if err != nil {
		return serviceError(err)
	}

	msgs, err := h.messages.List(ctx, conv.ID)
	if err != nil {
		return serviceError(err)
	}
	peerLastActive := h.peerLastActive(ctx, conv.OtherMember(s.UserID))
	return success(c, http.StatusOK, services.Annotate(msgs, s.UserID, peerLastActive))
}

// SendMessage sends text to the other member of the conversation
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	conv, err := h.conversations.Get(ctx, c.Param("id"), s.UserID)
	if err != nil {
		return serviceError(err)
	}
	msg, err := h.messages.Send(ctx, conv.ID, actorFromSession(s), conv.OtherMember(s.UserID), req.Text)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusCreated, msg)
}

// MarkRead clears the caller's unread flag and records them as active
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.conversations.MarkRead(ctx, c.Param("id"), s.UserID); err != nil {
		return serviceError(err)
	}
	if err := h.presence.Touch(ctx, s.UserID); err != nil {
		h.log.Warn("touch on read", zap.String("user_id", s.UserID), zap.Error(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// Stream upgrades to a WebSocket that carries the full annotated message
// list whenever a message arrives or the peer's activity changes.
func (h *ConversationHandler) Stream(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"), s.UserID)
	if err != nil {
		return serviceError(err)
	}
	peerID := conv.OtherMember(s.UserID)

	ws, err := openStream(c, h.tracker, s.UserID)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return nil
	}
	defer ws.Close()

	msgSub, err := h.messages.Subscribe(ws.ctx, conv.ID)
	if err != nil {
		h.log.Error("subscribe messages", zap.String("conversation_id", conv.ID), zap.Error(err))
		return nil
	}
	defer msgSub.Close()

	peerSub, err := h.presence.Watch(ws.ctx, peerID)
	if err != nil {
		h.log.Error("watch peer presence", zap.String("user_id", peerID), zap.Error(err))
		return nil
	}
	defer peerSub.Close()

	// Opening the conversation counts as reading it.
	if err := h.conversations.MarkRead(ws.ctx, conv.ID, s.UserID); err != nil {
		h.log.Warn("mark read on open", zap.Error(err))
	}
	if err := h.presence.Touch(ws.ctx, s.UserID); err != nil {
		h.log.Warn("touch on open", zap.Error(err))
	}

	var (
		msgs       []models.Message
		lastActive *time.Time
		haveMsgs   bool
	)
	for {
		select {
		case <-ws.ctx.Done():
			return nil
		case m, ok := <-msgSub.Updates():
			if !ok {
				return nil
			}
			msgs, haveMsgs = m, true
		case la, ok := <-peerSub.Updates():
			if !ok {
				return nil
			}
			lastActive = la
		case <-ws.ticker.C:
			if err := ws.ping(); err != nil {
				return nil
			}
			continue
		}
		if !haveMsgs {
			continue
		}
		frame := ConversationStreamFrame{
			ConversationID: conv.ID,
			Messages:       services.Annotate(msgs, s.UserID, lastActive),
			PeerLastActive: lastActive,
		}
		if err := ws.send(frame); err != nil {
			return nil
		}
	}
}

func (h *ConversationHandler) peerLastActive(ctx context.Context, peerID string) *time.Time {
	t, err := h.presence.LastActive(ctx, peerID)
	if err != nil {
		h.log.Debug("peer last active", zap.String("user_id", peerID), zap.Error(err))
		return nil
	}
	return t
}
