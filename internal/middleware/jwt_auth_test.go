package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *models.JwtCustomClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func validClaims(userID string) *models.JwtCustomClaims {
	return &models.JwtCustomClaims{
		UserID:      userID,
		Email:       userID + "@example.com",
		DisplayName: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

type stubVerifier struct {
	token *auth.Token
	err   error
}

func (v stubVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return v.token, v.err
}

// serve runs the middleware over a handler that echoes the session's user id
func serve(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, session.Session) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got session.Session
	handler := mw(func(c echo.Context) error {
		s, err := session.FromContext(c.Request().Context())
		if err != nil {
			return err
		}
		if fromEcho, _ := c.Get(SessionKey).(session.Session); fromEcho != s {
			t.Errorf("echo context session %+v differs from request session %+v", fromEcho, s)
		}
		got = s
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, got
}

func TestJWTAuthMiddlewareAcceptsLocalToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("u1")))

	rec, s := serve(t, JWTAuthMiddleware(testSecret, nil), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s.UserID != "u1" || s.DisplayName != "Alice" || s.Email != "u1@example.com" {
		t.Fatalf("session = %+v", s)
	}
}

func TestJWTAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+signToken(t, testSecret, validClaims("u2")), nil)

	rec, s := serve(t, JWTAuthMiddleware(testSecret, nil), req)
	if rec.Code != http.StatusOK || s.UserID != "u2" {
		t.Fatalf("status = %d, session = %+v", rec.Code, s)
	}
}

func TestJWTAuthMiddlewareRejects(t *testing.T) {
	expired := validClaims("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "not bearer", header: "Token abc"},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", validClaims("u1"))},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, expired)},
		{name: "no user id", header: "Bearer " + signToken(t, testSecret, validClaims(""))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec, _ := serve(t, JWTAuthMiddleware(testSecret, nil), req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestJWTAuthMiddlewareFallsBackToFirebase(t *testing.T) {
	verifier := stubVerifier{token: &auth.Token{
		UID:    "fb-uid",
		Claims: map[string]interface{}{"email": "bob@example.com", "name": "Bob", "picture": "http://img/bob"},
	}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer firebase-id-token")

	rec, s := serve(t, JWTAuthMiddleware(testSecret, verifier), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := session.Session{UserID: "fb-uid", DisplayName: "Bob", Email: "bob@example.com", PhotoURL: "http://img/bob"}
	if s != want {
		t.Fatalf("session = %+v, want %+v", s, want)
	}

	rejecting := stubVerifier{err: errors.New("bad token")}
	rec, _ = serve(t, JWTAuthMiddleware(testSecret, rejecting), req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
