// Package stream turns "something changed" signals into live, cancellable
// snapshot streams.
//
// Writers call Hub.Publish(topic) after committing a change. Readers call
// Subscribe with a loader for the topic; every emission is a full snapshot
// produced by the loader, never a diff.
package stream

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Relay forwards topic signals to other service instances
type Relay interface {
	Publish(ctx context.Context, topic string) error
}

// Hub fans topic signals out to local listeners
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[*listener]struct{}
	relay     Relay
	log       *zap.Logger
}

type listener struct {
	signal chan struct{}
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		listeners: make(map[string]map[*listener]struct{}),
		log:       log,
	}
}

// SetRelay makes Publish also forward signals to other instances
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// Publish signals every listener on topic, locally and through the relay
func (h *Hub) Publish(ctx context.Context, topic string) {
	h.Deliver(topic)

	h.mu.Lock()
	relay := h.relay
	h.mu.Unlock()
	if relay == nil {
		return
	}
	if err := relay.Publish(ctx, topic); err != nil {
		h.log.Warn("relay publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Deliver signals local listeners only. Signals coalesce: a listener that has
// not consumed the previous signal does not queue another.
func (h *Hub) Deliver(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for l := range h.listeners[topic] {
		select {
		case l.signal <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) listen(topic string) *listener {
	l := &listener{signal: make(chan struct{}, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[topic]
	if !ok {
		set = make(map[*listener]struct{})
		h.listeners[topic] = set
	}
	set[l] = struct{}{}
	return l
}

func (h *Hub) unlisten(topic string, l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.listeners[topic]
	if !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(h.listeners, topic)
	}
}

// Listeners reports how many subscriptions are attached to topic
func (h *Hub) Listeners(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[topic])
}
