package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// SessionKey is the echo context key holding the request's session.Session
const SessionKey = "session"

var errBearerFormat = errors.New("authorization header must be in Bearer format")

// JWTAuthMiddleware accepts a local JWT, and when verifier is set, falls back
// to a Firebase ID token. The resulting session is stored both on the echo
// context and on the request context.
func JWTAuthMiddleware(secret string, verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			s, err := ParseJWT(secret, tokenString)
			if err != nil && verifier != nil {
				s, err = verifyFirebase(c.Request(), verifier, tokenString)
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			attach(c, s)
			return next(c)
		}
	}
}

// ParseJWT validates an HS256 token signed with secret and returns its session
func ParseJWT(secret, tokenString string) (session.Session, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return session.Session{}, err
	}
	if !token.Valid || claims.UserID == "" {
		return session.Session{}, errors.New("invalid token")
	}
	return session.Session{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
		PhotoURL:    claims.PhotoURL,
	}, nil
}

// bearerToken reads the token from the Authorization header, or from the
// access_token query parameter for WebSocket upgrades that cannot set headers.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t, nil
		}
		return "", errors.New("missing Authorization header")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errBearerFormat
	}
	return parts[1], nil
}

func attach(c echo.Context, s session.Session) {
	c.Set(SessionKey, s)
	c.SetRequest(c.Request().WithContext(session.WithSession(c.Request().Context(), s)))
}
