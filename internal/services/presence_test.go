package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
)

func TestComputeSeenStatus(t *testing.T) {
	sent := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	before := sent.Add(-time.Minute)
	after := sent.Add(time.Minute)
	msg := models.Message{SenderID: "u1", CreatedAt: sent}

	tests := []struct {
		name       string
		isSender   bool
		latestOwn  bool
		lastActive *time.Time
		want       string
	}{
		{name: "peer active after send", isSender: true, latestOwn: true, lastActive: &after, want: StatusSeen},
		{name: "peer active at send", isSender: true, latestOwn: true, lastActive: &sent, want: StatusSeen},
		{name: "peer active before send", isSender: true, latestOwn: true, lastActive: &before, want: StatusUnseen},
		{name: "peer never active", isSender: true, latestOwn: true, lastActive: nil, want: StatusUnseen},
		{name: "older own message", isSender: true, latestOwn: false, lastActive: &after, want: ""},
		{name: "received message", isSender: false, latestOwn: false, lastActive: &after, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeSeenStatus(msg, tt.isSender, tt.latestOwn, tt.lastActive); got != tt.want {
				t.Fatalf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnnotateMarksOnlyLatestOwnMessage(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{SenderID: "u1", Text: "one", CreatedAt: base},
		{SenderID: "u1", Text: "two", CreatedAt: base.Add(time.Second)},
		{SenderID: "u2", Text: "three", CreatedAt: base.Add(2 * time.Second)},
	}
	seen := base.Add(time.Hour)

	views := Annotate(msgs, "u1", &seen)
	want := []string{"", StatusSeen, ""}
	for i, v := range views {
		if v.Status != want[i] {
			t.Fatalf("views[%d].Status = %q, want %q", i, v.Status, want[i])
		}
	}

	views = Annotate(msgs, "u3", &seen)
	for i, v := range views {
		if v.Status != "" {
			t.Fatalf("non-participant view %d has status %q", i, v.Status)
		}
	}
}

func TestPresenceTouchFlipsSeenStatus(t *testing.T) {
	users := newStubUserRepo(models.User{ID: "u1"}, models.User{ID: "u2"})
	s := NewPresenceService(users, stream.NewHub(nil), nil)
	ctx := context.Background()

	sentAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []models.Message{{SenderID: "u1", Text: "hello", CreatedAt: sentAt}}

	s.now = func() time.Time { return sentAt.Add(-time.Hour) }
	if err := s.Touch(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	last, err := s.LastActive(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if got := Annotate(msgs, "u1", last)[0].Status; got != StatusUnseen {
		t.Fatalf("before peer returns: %q, want Unseen", got)
	}

	s.now = func() time.Time { return sentAt.Add(time.Minute) }
	if err := s.Touch(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	last, _ = s.LastActive(ctx, "u2")
	if got := Annotate(msgs, "u1", last)[0].Status; got != StatusSeen {
		t.Fatalf("after peer returns: %q, want Seen", got)
	}
}

func TestPresenceUnknownUser(t *testing.T) {
	s := NewPresenceService(newStubUserRepo(), stream.NewHub(nil), nil)
	if err := s.Touch(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("touch err = %v, want ErrNotFound", err)
	}
	if _, err := s.LastActive(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("last active err = %v, want ErrNotFound", err)
	}
}

func TestPresenceWatchSeesTouch(t *testing.T) {
	users := newStubUserRepo(models.User{ID: "u2"})
	s := NewPresenceService(users, stream.NewHub(nil), nil)
	ctx := context.Background()

	sub, err := s.Watch(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if initial := <-sub.Updates(); initial != nil {
		t.Fatalf("initial last active = %v, want nil", initial)
	}

	if err := s.Touch(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-sub.Updates():
		if got == nil {
			t.Fatal("last active still nil after touch")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after touch")
	}
}

func TestTouchOnSignIn(t *testing.T) {
	users := newStubUserRepo(models.User{ID: "u1"})
	s := NewPresenceService(users, stream.NewHub(nil), nil)
	tracker := session.NewTracker()
	stop := s.TouchOnSignIn(tracker)
	defer stop()

	tracker.SignIn(session.Session{UserID: "u1"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if last, _ := s.LastActive(context.Background(), "u1"); last != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sign-in did not touch presence")
}

func TestSeenStatusWithinOneMillisecond(t *testing.T) {
	f := newChatFixture(t)
	users := newStubUserRepo(models.User{ID: "u1"}, models.User{ID: "u2"})
	presence := NewPresenceService(users, f.hub, nil)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	presence.now = func() time.Time { return base.Add(400 * time.Microsecond) }
	if err := presence.Touch(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	f.messages.now = func() time.Time { return base.Add(900 * time.Microsecond) }
	msg, err := f.messages.Send(ctx, f.conv.ID, events.Actor{ID: "u1", Name: "Alice"}, "u2", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.CreatedAt.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("created at %v is not millisecond aligned", msg.CreatedAt)
	}

	msgs, _ := f.messages.List(ctx, f.conv.ID)
	last, _ := presence.LastActive(ctx, "u2")
	if got := Annotate(msgs, "u1", last)[0].Status; got != StatusUnseen {
		t.Fatalf("touch before send in the same millisecond: %q, want Unseen", got)
	}

	presence.now = func() time.Time { return base.Add(1500 * time.Microsecond) }
	if err := presence.Touch(ctx, "u2"); err != nil {
		t.Fatal(err)
	}
	last, _ = presence.LastActive(ctx, "u2")
	if got := Annotate(msgs, "u1", last)[0].Status; got != StatusSeen {
		t.Fatalf("touch after send: %q, want Seen", got)
	}
}
