package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// FCMGateway sends through Firebase Cloud Messaging
type FCMGateway struct {
	client *messaging.Client
}

func NewFCMGateway(client *messaging.Client) *FCMGateway {
	return &FCMGateway{client: client}
}

func (g *FCMGateway) Send(ctx context.Context, n Notification) error {
	_, err := g.client.Send(ctx, &messaging.Message{
		Token: n.Token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
	})
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("send fcm push: %w", err)
	}
	return nil
}
