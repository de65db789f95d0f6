// Package session carries the signed-in identity explicitly through request
// contexts and tracks sign-in/sign-out transitions.
package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned when a context carries no signed-in identity
var ErrNoSession = errors.New("no active session")

// Session is the signed-in identity for one request
type Session struct {
	UserID      string
	DisplayName string
	Email       string
	PhotoURL    string
}

type contextKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(contextKey{}).(Session)
	if !ok || s.UserID == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}
