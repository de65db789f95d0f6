package stream

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"
)

const relayChannel = "messenger:stream"

// ValkeyRelay shares hub signals between service instances over valkey pub/sub.
// Payloads are "<instance id>|<topic>"; an instance ignores its own signals
// because it already delivered them locally.
type ValkeyRelay struct {
	client     valkey.Client
	hub        *Hub
	instanceID string
	log        *zap.Logger
}

func NewValkeyRelay(client valkey.Client, hub *Hub, log *zap.Logger) *ValkeyRelay {
	return &ValkeyRelay{
		client:     client,
		hub:        hub,
		instanceID: uuid.NewString(),
		log:        log,
	}
}

func (r *ValkeyRelay) Publish(ctx context.Context, topic string) error {
	cmd := r.client.B().Publish().Channel(relayChannel).Message(r.instanceID + "|" + topic).Build()
	return r.client.Do(ctx, cmd).Error()
}

// Run receives signals from other instances until ctx is cancelled
func (r *ValkeyRelay) Run(ctx context.Context) error {
	cmd := r.client.B().Subscribe().Channel(relayChannel).Build()
	err := r.client.Receive(ctx, cmd, func(msg valkey.PubSubMessage) {
		r.handle(msg.Message)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *ValkeyRelay) handle(payload string) {
	origin, topic, ok := strings.Cut(payload, "|")
	if !ok || topic == "" {
		r.log.Warn("malformed relay payload", zap.String("payload", payload))
		return
	}
	if origin == r.instanceID {
		return
	}
	r.hub.Deliver(topic)
}
