package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/push"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
	"go.uber.org/zap"
)

const dispatchTimeout = 15 * time.Second

// DispatcherConfig sizes the background queue
type DispatcherConfig struct {
	QueueSize int
	Workers   int
}

// Dispatcher persists notifications and sends device pushes. Emit queues
// events for background workers so social actions never wait on either.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	registrations repositories.PushRegistrationRepository
	gateway       push.Gateway
	hub           *stream.Hub
	log           *zap.Logger
	workers       int

	mu      sync.RWMutex
	queue   chan job
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(
	notifications repositories.NotificationRepository,
	registrations repositories.PushRegistrationRepository,
	gateway push.Gateway,
	hub *stream.Hub,
	log *zap.Logger,
	cfg DispatcherConfig,
) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Dispatcher{
		notifications: notifications,
		registrations: registrations,
		gateway:       gateway,
		hub:           hub,
		log:           nopIfNil(log).Named("dispatcher"),
		workers:       cfg.Workers,
		queue:         make(chan job, cfg.QueueSize),
	}
}

// job is one queued event; pushOnly skips persistence for events that were
// already stored synchronously.
type job struct {
	ev       events.NotificationEvent
	pushOnly bool
}

// Start launches the workers. Call Close to drain and stop them.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.queue {
				d.dispatch(j)
			}
		}()
	}
}

// Emit queues ev to be stored and pushed, without blocking. A full queue
// drops the event.
func (d *Dispatcher) Emit(ev events.NotificationEvent) {
	d.enqueue(job{ev: ev})
}

// EmitPush queues only the device push for an event stored by Notify
func (d *Dispatcher) EmitPush(ev events.NotificationEvent) {
	d.enqueue(job{ev: ev, pushOnly: true})
}

func (d *Dispatcher) enqueue(j job) {
	ev := j.ev
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("dispatcher closed, dropping event", zap.String("kind", string(ev.Kind)))
		return
	}
	select {
	case d.queue <- j:
	default:
		d.log.Warn("notification queue full, dropping event",
			zap.String("kind", string(ev.Kind)),
			zap.String("target_id", ev.TargetID),
		)
	}
}

// Close stops accepting events and waits for queued ones to be handled.
// Events queued on a dispatcher that was never started are handled inline.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for j := range d.queue {
			d.dispatch(j)
		}
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(j job) {
	ev := j.ev
	if ev.IsSelf() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if !j.pushOnly {
		d.Notify(ctx, ev)
	}

	err := d.PushNotify(ctx, ev.TargetID, ev.PushTitle(), ev.PushBody(), ev.Data())
	switch {
	case err == nil:
	case errors.Is(err, ErrNoPushTarget), errors.Is(err, push.ErrGatewayUnavailable):
		d.log.Debug("push skipped", zap.String("target_id", ev.TargetID), zap.Error(err))
	default:
		d.log.Warn("push failed", zap.String("target_id", ev.TargetID), zap.Error(err))
	}
}

// Notify persists the event for its target and wakes the target's
// notification streams. It is a no-op when the actor is the target. Storage
// failures are logged and swallowed; the result is nil in both cases.
func (d *Dispatcher) Notify(ctx context.Context, ev events.NotificationEvent) *models.Notification {
	if ev.IsSelf() {
		return nil
	}
	record := ev.Record()
	if err := d.notifications.CreateNotification(ctx, record); err != nil {
		d.log.Error("store notification",
			zap.String("kind", string(ev.Kind)),
			zap.String("target_id", ev.TargetID),
			zap.Error(err),
		)
		return nil
	}
	d.hub.Publish(ctx, stream.NotificationsTopic(ev.TargetID))
	return record
}

// PushNotify sends a device notification to the recipient's registered token
func (d *Dispatcher) PushNotify(ctx context.Context, recipientID, title, body string, data map[string]string) error {
	reg, err := d.registrations.GetRegistration(ctx, recipientID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNoPushTarget
	}
	if err != nil {
		return fmt.Errorf("get push registration: %w", err)
	}
	if reg.Token == "" {
		return ErrNoPushTarget
	}
	if d.gateway == nil {
		return push.ErrGatewayUnavailable
	}

	err = d.gateway.Send(ctx, push.Notification{Token: reg.Token, Title: title, Body: body, Data: data})
	if errors.Is(err, push.ErrInvalidToken) {
		if delErr := d.registrations.DeleteRegistration(ctx, recipientID); delErr != nil {
			d.log.Warn("drop rejected push token", zap.String("user_id", recipientID), zap.Error(delErr))
		}
	}
	return err
}

// MarkRead marks one of the recipient's notifications read
func (d *Dispatcher) MarkRead(ctx context.Context, recipientID string, notificationID uint) error {
	err := d.notifications.MarkAsRead(ctx, recipientID, notificationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	d.hub.Publish(ctx, stream.NotificationsTopic(recipientID))
	return nil
}

// MarkAllRead marks every notification of the recipient read
func (d *Dispatcher) MarkAllRead(ctx context.Context, recipientID string) error {
	if err := d.notifications.MarkAllAsRead(ctx, recipientID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	d.hub.Publish(ctx, stream.NotificationsTopic(recipientID))
	return nil
}
