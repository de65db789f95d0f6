package stream

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loader produces the current snapshot of a topic
type Loader[T any] func(ctx context.Context) (T, error)

// Subscription is a live snapshot stream. Read from Updates until it is
// closed; call Close when the consumer goes away.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Subscribe loads the initial snapshot synchronously and then emits a fresh
// snapshot after every signal on topic. The stream ends when ctx is cancelled
// or Close is called.
func Subscribe[T any](ctx context.Context, h *Hub, topic string, load Loader[T]) (*Subscription[T], error) {
	// Listen before the first load so a change racing with it is not lost.
	l := h.listen(topic)

	initial, err := load(ctx)
	if err != nil {
		h.unlisten(topic, l)
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.updates <- initial

	go s.run(ctx, h, topic, l, load)
	return s, nil
}

func (s *Subscription[T]) run(ctx context.Context, h *Hub, topic string, l *listener, load Loader[T]) {
	defer close(s.done)
	defer func() {
		// A snapshot left in the buffer must not reach a reader after Close.
		select {
		case <-s.updates:
		default:
		}
		close(s.updates)
	}()
	defer h.unlisten(topic, l)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.signal:
		}

		snapshot, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.log.Warn("stream reload failed", zap.String("topic", topic), zap.Error(err))
			continue
		}

		select {
		case <-ctx.Done():
			return
		case s.updates <- snapshot:
		}
	}
}

// Updates delivers snapshots in the order they were loaded
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Done is closed once the stream has stopped
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Close stops the stream and waits for it to wind down. After Close returns
// the Updates channel is closed and nothing more is emitted.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
