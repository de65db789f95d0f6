package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/labstack/echo/v4"
)

const maxPhotoSize = 5 << 20

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	profiles *services.ProfileService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(profiles *services.ProfileService) *UserHandler {
	return &UserHandler{profiles: profiles}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.PUT("/profile/photo", h.UploadPhoto)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
}

// GetUser returns another user's profile by ID
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.profiles.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, user)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	user, err := h.profiles.Get(c.Request().Context(), s.UserID)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.profiles.Update(c.Request().Context(), s.UserID, req)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, user)
}

// UploadPhoto stores the multipart "photo" file as the caller's profile image
func (h *UserHandler) UploadPhoto(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Form file 'photo' is required")
	}
	if file.Size > maxPhotoSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Photo exceeds 5MB")
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return echo.NewHTTPError(http.StatusBadRequest, "Photo must be an image")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read photo")
	}
	defer src.Close()

	user, err := h.profiles.UploadPhoto(c.Request().Context(), s.UserID, file.Filename, contentType, src)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, user)
}

// SearchUsers finds users whose display name starts with q
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if strings.TrimSpace(query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}

	users, err := h.profiles.Search(c.Request().Context(), query)
	if err != nil {
		return serviceError(err)
	}
	return success(c, http.StatusOK, users)
}
