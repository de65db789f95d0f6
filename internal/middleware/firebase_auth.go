package middleware

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/messenger/internal/session"
)

// TokenVerifier verifies Firebase ID tokens; *auth.Client implements it
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

func verifyFirebase(r *http.Request, verifier TokenVerifier, idToken string) (session.Session, error) {
	token, err := verifier.VerifyIDToken(r.Context(), idToken)
	if err != nil {
		return session.Session{}, err
	}
	return SessionFromToken(token), nil
}

// SessionFromToken maps verified Firebase claims onto a session
func SessionFromToken(token *auth.Token) session.Session {
	s := session.Session{UserID: token.UID}
	if v, ok := token.Claims["email"].(string); ok {
		s.Email = v
	}
	if v, ok := token.Claims["name"].(string); ok {
		s.DisplayName = v
	}
	if v, ok := token.Claims["picture"].(string); ok {
		s.PhotoURL = v
	}
	return s
}
