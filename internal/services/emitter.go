package services

import (
	"github.com/anonto42/nano-midea/messenger/internal/events"
	"go.uber.org/zap"
)

// Emitter hands a notification event to the background dispatcher.
// Emit never blocks the caller and never fails the primary action.
type Emitter interface {
	Emit(ev events.NotificationEvent)
}

// emitEvent emits the event produced by build. Construction failures are only
// logged since the action that produced the event has already succeeded.
func emitEvent(e Emitter, log *zap.Logger, build func() (events.NotificationEvent, error)) {
	if e == nil {
		return
	}
	ev, err := build()
	if err != nil {
		log.Warn("notification event rejected", zap.Error(err))
		return
	}
	e.Emit(ev)
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
