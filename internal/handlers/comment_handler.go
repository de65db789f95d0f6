package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	comments *services.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetCommentsByPostID)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.comments.Create(c.Request().Context(), actorFromSession(s), c.Param("post_id"), req.Content)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusCreated, comment)
}

// GetCommentsByPostID lists a post's comments, newest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	comments, err := h.comments.List(c.Request().Context(), c.Param("post_id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": comments, "meta": echo.Map{"count": len(comments)}})
}

// DeleteComment deletes one of the caller's comments
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}
	if err := h.comments.Delete(c.Request().Context(), s.UserID, uint(id)); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
