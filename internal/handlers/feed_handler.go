package handlers

import (
	"math"
	"net/http"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
	likeRepository repositories.LikeRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, likeRepo repositories.LikeRepository) *FeedHandler {
	return &FeedHandler{
		postRepository: postRepo,
		userRepository: userRepo,
		likeRepository: likeRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// EnrichedPost is a post with author info and the caller's like flag
type EnrichedPost struct {
	models.Post
	Author  models.UserCompact `json:"author"`
	IsLiked bool               `json:"is_liked"`
}

// GetFeed returns the newest posts with author and like state for the caller
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	ctx := c.Request().Context()
	page, limit := pagination(c, 10)
	skip := int64((page - 1) * limit)

	posts, err := h.postRepository.GetAllPosts(ctx, skip, int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	totalItems, err := h.postRepository.CountPosts(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	authorIDs := make([]string, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID.Hex()
		if !seen[p.UserID] {
			seen[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
	}

	userMap := make(map[string]models.UserCompact, len(authorIDs))
	if len(authorIDs) > 0 {
		users, err := h.userRepository.GetUsersByIDs(ctx, authorIDs)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		for i := range users {
			userMap[users[i].ID] = users[i].ToCompact()
		}
	}

	likedMap := map[string]bool{}
	if currentUserID != "" && len(postIDs) > 0 {
		likedMap, err = h.likeRepository.GetLikedPostIDs(ctx, currentUserID, postIDs)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	enrichedPosts := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		author, ok := userMap[p.UserID]
		if !ok {
			author = models.UserCompact{ID: p.UserID, DisplayName: "Unknown"}
		}
		enrichedPosts[i] = EnrichedPost{
			Post:    p,
			Author:  author,
			IsLiked: likedMap[postIDs[i]],
		}
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": enrichedPosts,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      totalItems,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}
