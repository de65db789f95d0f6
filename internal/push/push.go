// Package push delivers device notifications through external gateways.
package push

import (
	"context"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// Notification is one device notification
type Notification struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Gateway sends a notification to a single device token
type Gateway interface {
	Send(ctx context.Context, n Notification) error
}

// IsExpoToken reports whether token was issued by Expo rather than FCM
func IsExpoToken(token string) bool {
	_, err := expo.NewExponentPushToken(token)
	return err == nil
}

// Router sends Expo tokens through Expo and everything else through FCM.
// Either side may be nil when that gateway is not configured.
type Router struct {
	Expo Gateway
	FCM  Gateway
}

func (r *Router) Send(ctx context.Context, n Notification) error {
	if IsExpoToken(n.Token) {
		if r.Expo == nil {
			return ErrGatewayUnavailable
		}
		return r.Expo.Send(ctx, n)
	}
	if r.FCM == nil {
		return ErrGatewayUnavailable
	}
	return r.FCM.Send(ctx, n)
}
