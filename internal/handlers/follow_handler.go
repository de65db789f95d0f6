package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	follows *services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.follows.Follow(c.Request().Context(), actorFromSession(s), c.Param("id")); err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"following": true})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.follows.Unfollow(c.Request().Context(), actorFromSession(s), c.Param("id")); err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, echo.Map{"following": false})
}

func (h *FollowHandler) GetFollowers(c echo.Context) error {
	users, err := h.follows.Followers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": users, "meta": echo.Map{"count": len(users)}})
}

func (h *FollowHandler) GetFollowing(c echo.Context) error {
	users, err := h.follows.Following(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": users, "meta": echo.Map{"count": len(users)}})
}
