package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likes *services.LikeService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likes *services.LikeService) *LikeHandler {
	return &LikeHandler{likes: likes}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/likes", h.ToggleLike)
	g.GET("/posts/:post_id/likes/count", h.GetLikesCountForPost)
	g.GET("/posts/:post_id/likes/status", h.GetUserLikeStatusForPost)
}

// ToggleLike likes the post, or removes the caller's like if present
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	postID := c.Param("post_id")

	liked, count, err := h.likes.Toggle(c.Request().Context(), actorFromSession(s), postID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"post_id": postID, "liked": liked, "likes_count": count})
}

// GetLikesCountForPost retrieves the total number of likes for a specific post
func (h *LikeHandler) GetLikesCountForPost(c echo.Context) error {
	postID := c.Param("post_id")
	count, err := h.likes.Count(c.Request().Context(), postID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"post_id": postID, "likes_count": count})
}

// GetUserLikeStatusForPost checks if the authenticated user has liked a specific post
func (h *LikeHandler) GetUserLikeStatusForPost(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	postID := c.Param("post_id")
	liked, err := h.likes.Status(c.Request().Context(), postID, s.UserID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"post_id": postID, "has_liked": liked})
}
