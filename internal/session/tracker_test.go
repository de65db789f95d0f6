package session

import (
	"context"
	"testing"
)

func TestSessionContextRoundTrip(t *testing.T) {
	if _, err := FromContext(context.Background()); err != ErrNoSession {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
	ctx := WithSession(context.Background(), Session{UserID: "u1", DisplayName: "U"})
	s, err := FromContext(ctx)
	if err != nil || s.UserID != "u1" {
		t.Fatalf("FromContext = %+v, %v", s, err)
	}
}

func TestSignOutCancelsBoundContexts(t *testing.T) {
	tr := NewTracker()
	ctx1, cancel1 := tr.Bind(context.Background(), "u1")
	defer cancel1()
	ctx2, cancel2 := tr.Bind(context.Background(), "u2")
	defer cancel2()

	if tr.Active("u1") != 1 {
		t.Fatalf("Active(u1) = %d", tr.Active("u1"))
	}

	tr.SignOut(Session{UserID: "u1"})

	if ctx1.Err() == nil {
		t.Fatal("u1 context should be cancelled on sign-out")
	}
	if ctx2.Err() != nil {
		t.Fatal("u2 context must stay alive")
	}
	if tr.Active("u1") != 0 {
		t.Fatalf("Active(u1) = %d after sign-out", tr.Active("u1"))
	}
}

func TestBindCancelReleases(t *testing.T) {
	tr := NewTracker()
	_, cancel := tr.Bind(context.Background(), "u1")
	cancel()
	if tr.Active("u1") != 0 {
		t.Fatalf("Active = %d after cancel", tr.Active("u1"))
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	tr := NewTracker()
	var got []Event
	unsubscribe := tr.Subscribe(func(ev Event) { got = append(got, ev) })

	tr.SignIn(Session{UserID: "u1"})
	tr.SignOut(Session{UserID: "u1"})
	unsubscribe()
	tr.SignIn(Session{UserID: "u2"})

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != SignedIn || got[1].Type != SignedOut {
		t.Fatalf("events = %+v", got)
	}
}
