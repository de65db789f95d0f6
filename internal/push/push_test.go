package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

type recordingGateway struct {
	sent []Notification
}

func (g *recordingGateway) Send(_ context.Context, n Notification) error {
	g.sent = append(g.sent, n)
	return nil
}

func TestIsExpoToken(t *testing.T) {
	tests := map[string]bool{
		"ExponentPushToken[abc]": true,
		"fcm-registration-token": false,
		"":                       false,
	}
	for token, want := range tests {
		if got := IsExpoToken(token); got != want {
			t.Errorf("IsExpoToken(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestRouterRoutesByTokenKind(t *testing.T) {
	expo, fcm := &recordingGateway{}, &recordingGateway{}
	r := &Router{Expo: expo, FCM: fcm}
	ctx := context.Background()

	_ = r.Send(ctx, Notification{Token: "ExponentPushToken[x]"})
	_ = r.Send(ctx, Notification{Token: "device-token"})

	if len(expo.sent) != 1 || len(fcm.sent) != 1 {
		t.Fatalf("expo=%d fcm=%d, want 1 each", len(expo.sent), len(fcm.sent))
	}
}

func TestRouterWithoutGateway(t *testing.T) {
	r := &Router{Expo: &recordingGateway{}}
	if err := r.Send(context.Background(), Notification{Token: "device-token"}); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestExpoGatewaySend(t *testing.T) {
	var got []expo.PushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/push/send") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
	}))
	defer srv.Close()

	g := NewExpoGateway(srv.URL, srv.Client())
	err := g.Send(context.Background(), Notification{
		Token: "ExponentPushToken[x]",
		Title: "New Message",
		Body:  "You have a new message from Alice",
		Data:  map[string]string{"conversation_id": "a_b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(got))
	}
	msg := got[0]
	if len(msg.To) != 1 || msg.To[0] != "ExponentPushToken[x]" {
		t.Fatalf("to = %v", msg.To)
	}
	if msg.Title != "New Message" || msg.Sound != "default" || msg.Data["conversation_id"] != "a_b" {
		t.Fatalf("payload = %+v", msg)
	}
}

func TestExpoGatewayRejectsForeignToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	err := NewExpoGateway(srv.URL, nil).Send(context.Background(), Notification{Token: "fcm-token"})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if calls != 0 {
		t.Fatalf("gateway called %d times for a non-Expo token", calls)
	}
}

func TestExpoGatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		invalid bool
	}{
		{name: "unregistered device", status: http.StatusOK, body: `{"data":[{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}]}`, invalid: true},
		{name: "ticket error", status: http.StatusOK, body: `{"data":[{"status":"error","message":"too big","details":{"error":"MessageTooBig"}}]}`},
		{name: "server error", status: http.StatusBadGateway, body: "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewExpoGateway(srv.URL, nil).Send(context.Background(), Notification{Token: "ExponentPushToken[y]"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.invalid != errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, invalid token = %v", err, tt.invalid)
			}
		})
	}
}
