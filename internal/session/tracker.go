package session

import (
	"context"
	"sync"
)

// EventType is a session state transition
type EventType int

const (
	SignedIn EventType = iota + 1
	SignedOut
)

// Event is delivered to tracker subscribers on every transition
type Event struct {
	Type    EventType
	Session Session
}

// Tracker records sign-in/sign-out transitions. Components subscribe with a
// callback instead of reading ambient auth state, and live streams bind their
// lifetime to the user's session through Bind.
type Tracker struct {
	mu        sync.Mutex
	nextID    int
	callbacks map[int]func(Event)
	bound     map[string]map[int]context.CancelFunc
}

func NewTracker() *Tracker {
	return &Tracker{
		callbacks: make(map[int]func(Event)),
		bound:     make(map[string]map[int]context.CancelFunc),
	}
}

// Subscribe registers fn for all future transitions and returns its unsubscribe
func (t *Tracker) Subscribe(fn func(Event)) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.callbacks[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.callbacks, id)
		t.mu.Unlock()
	}
}

// Bind derives a context that is cancelled when userID signs out or when the
// returned cancel is called, whichever comes first.
func (t *Tracker) Bind(parent context.Context, userID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	t.nextID++
	id := t.nextID
	set, ok := t.bound[userID]
	if !ok {
		set = make(map[int]context.CancelFunc)
		t.bound[userID] = set
	}
	set[id] = cancel
	t.mu.Unlock()

	return ctx, func() {
		cancel()
		t.mu.Lock()
		if set, ok := t.bound[userID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(t.bound, userID)
			}
		}
		t.mu.Unlock()
	}
}

func (t *Tracker) SignIn(s Session) {
	t.emit(Event{Type: SignedIn, Session: s})
}

// SignOut cancels every context bound to the user, then notifies subscribers
func (t *Tracker) SignOut(s Session) {
	t.mu.Lock()
	cancels := t.bound[s.UserID]
	delete(t.bound, s.UserID)
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	t.emit(Event{Type: SignedOut, Session: s})
}

func (t *Tracker) emit(ev Event) {
	t.mu.Lock()
	fns := make([]func(Event), 0, len(t.callbacks))
	for _, fn := range t.callbacks {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Active reports how many contexts are currently bound to userID
func (t *Tracker) Active(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bound[userID])
}
