package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/middleware"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 72 * time.Hour

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	verifier       middleware.TokenVerifier
	tracker        *session.Tracker
	jwtSecret      string
	log            *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. verifier may be nil when Firebase
// is not configured; firebase-login then answers 503.
func NewAuthHandler(userRepo repositories.UserRepository, verifier middleware.TokenVerifier, tracker *session.Tracker, jwtSecret string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		verifier:       verifier,
		tracker:        tracker,
		jwtSecret:      jwtSecret,
		log:            log.Named("auth"),
	}
}

// RegisterAuthRoutes registers the public sign-in routes and the protected sign-out
func (h *AuthHandler) RegisterAuthRoutes(public, protected *echo.Group) {
	public.POST("/signup", h.Signup)
	public.POST("/signin", h.SignIn)
	public.POST("/firebase-login", h.FirebaseLogin)
	protected.POST("/auth/signout", h.SignOut)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.CreateLocalUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := h.userRepository.GetUserByEmail(ctx, email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		ID:          uuid.NewString(),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       email,
		Password:    string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return h.issue(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	return h.issue(c, http.StatusOK, user)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, creates or refreshes the
// profile keyed by the Firebase UID and issues a local JWT.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.verifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase sign-in is not configured")
	}
	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	token, err := h.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}
	claims := middleware.SessionFromToken(token)

	user, err := h.userRepository.GetUserByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		user = &models.User{
			ID:          claims.UserID,
			DisplayName: claims.DisplayName,
			Email:       strings.ToLower(claims.Email),
			PhotoURL:    claims.PhotoURL,
		}
		if err := h.userRepository.CreateUser(ctx, user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
		}
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	default:
		changed := false
		if claims.Email != "" && user.Email != strings.ToLower(claims.Email) {
			user.Email, changed = strings.ToLower(claims.Email), true
		}
		if user.DisplayName == "" && claims.DisplayName != "" {
			user.DisplayName, changed = claims.DisplayName, true
		}
		if user.PhotoURL == "" && claims.PhotoURL != "" {
			user.PhotoURL, changed = claims.PhotoURL, true
		}
		if changed {
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user details")
			}
		}
	}

	return h.issue(c, http.StatusOK, user)
}

// SignOut ends the caller's session and closes their live streams
func (h *AuthHandler) SignOut(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	h.tracker.SignOut(s)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) issue(c echo.Context, status int, user *models.User) error {
	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	h.tracker.SignIn(session.Session{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
	})
	h.log.Debug("signed in", zap.String("user_id", user.ID))
	return c.JSON(status, echo.Map{"token": token, "user": user})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
