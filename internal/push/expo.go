package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// ExpoGateway sends notifications through the Expo push service
type ExpoGateway struct {
	client *expo.PushClient
}

// NewExpoGateway builds a gateway against host (expo.DefaultHost when empty)
func NewExpoGateway(host string, httpClient *http.Client) *ExpoGateway {
	if host == "" {
		host = expo.DefaultHost
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExpoGateway{client: expo.NewPushClient(&expo.ClientConfig{
		Host:       host,
		HTTPClient: httpClient,
	})}
}

func (g *ExpoGateway) Send(ctx context.Context, n Notification) error {
	token, err := expo.NewExponentPushToken(n.Token)
	if err != nil {
		return ErrInvalidToken
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := g.client.Publish(&expo.PushMessage{
		To:       []expo.ExponentPushToken{token},
		Title:    n.Title,
		Body:     n.Body,
		Data:     n.Data,
		Sound:    "default",
		Priority: expo.DefaultPriority,
	})
	if err != nil {
		return fmt.Errorf("send expo push: %w", err)
	}

	// Expo answers 200 with a per-ticket error for bad tokens.
	if err := resp.ValidateResponse(); err != nil {
		var gone *expo.DeviceNotRegisteredError
		if errors.As(err, &gone) {
			return ErrInvalidToken
		}
		return fmt.Errorf("send expo push: %w", err)
	}
	return nil
}
