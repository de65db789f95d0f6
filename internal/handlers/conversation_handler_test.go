package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anonto42/nano-midea/messenger/internal/middleware"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
	"github.com/anonto42/nano-midea/messenger/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t          *testing.T
	e          *echo.Echo
	users      repositories.UserRepository
	dispatcher *services.Dispatcher
}

// newTestServer wires the conversation and notification handlers over sqlite
// and in-memory stores. Requests pick their user with the X-User header.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}, &models.Follow{}, &models.Notification{}, &models.PushRegistration{}); err != nil {
		t.Fatal(err)
	}

	log := zap.NewNop()
	hub := stream.NewHub(log)
	tracker := session.NewTracker()
	users := repositories.NewPostgresUserRepository(db)
	follows := repositories.NewPostgresFollowRepository(db)
	notifs := repositories.NewPostgresNotificationRepository(db)
	convs := repositories.NewMemoryConversationRepository()
	msgs := repositories.NewMemoryMessageRepository()

	for _, u := range []models.User{
		{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"},
		{ID: "bob", DisplayName: "Bob", Email: "bob@example.com"},
		{ID: "carol", DisplayName: "Carol", Email: "carol@example.com"},
	} {
		u := u
		if err := users.CreateUser(context.Background(), &u); err != nil {
			t.Fatal(err)
		}
	}

	dispatcher := services.NewDispatcher(notifs, repositories.NewPostgresPushRegistrationRepository(db), nil, hub, log, services.DispatcherConfig{})
	t.Cleanup(dispatcher.Close)

	convSvc := services.NewConversationService(convs, users, hub, log)
	msgSvc := services.NewMessageService(convs, msgs, hub, dispatcher, log)
	presence := services.NewPresenceService(users, hub, log)
	profiles := services.NewProfileService(users, follows, nil, log)

	e := echo.New()
	e.Validator = validators.NewValidator()
	api := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := session.Session{UserID: c.Request().Header.Get("X-User")}
			s.DisplayName = map[string]string{"alice": "Alice", "bob": "Bob", "carol": "Carol"}[s.UserID]
			c.Set(middleware.SessionKey, s)
			return next(c)
		}
	})
	NewConversationHandler(convSvc, msgSvc, presence, profiles, tracker, log).RegisterConversationRoutes(api)
	NewNotificationHandler(services.NewNotificationFeed(notifs, hub), dispatcher, users, tracker, log).RegisterNotificationRoutes(api)

	return &testServer{t: t, e: e, users: users, dispatcher: dispatcher}
}

func (s *testServer) do(method, path, user string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User", user)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestConversationFlow(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(http.MethodPost, "/api/conversations", "alice", echo.Map{"user_id": "bob"})
	if code != http.StatusOK {
		t.Fatalf("start status = %d", code)
	}
	conv := decode[models.Conversation](t, env.Data)
	if conv.ID != "alice_bob" {
		t.Fatalf("conversation id = %q", conv.ID)
	}

	// bob starting the same chat lands on the same record
	_, env = srv.do(http.MethodPost, "/api/conversations", "bob", echo.Map{"user_id": "alice"})
	if again := decode[models.Conversation](t, env.Data); again.ID != conv.ID {
		t.Fatalf("reverse start = %q", again.ID)
	}

	code, _ = srv.do(http.MethodPost, "/api/conversations/alice_bob/messages", "alice", echo.Map{"text": "   "})
	if code != http.StatusBadRequest {
		t.Fatalf("blank message status = %d, want 400", code)
	}

	code, env = srv.do(http.MethodPost, "/api/conversations/alice_bob/messages", "alice", echo.Map{"text": "hello"})
	if code != http.StatusCreated {
		t.Fatalf("send status = %d", code)
	}
	if msg := decode[models.Message](t, env.Data); msg.ReceiverID != "bob" || msg.Text != "hello" {
		t.Fatalf("message = %+v", msg)
	}

	_, env = srv.do(http.MethodGet, "/api/conversations", "bob", nil)
	list := decode[[]models.ConversationView](t, env.Data)
	if len(list) != 1 || !list[0].IsUnread || list[0].LastMessage != "hello" || list[0].Peer.DisplayName != "Alice" {
		t.Fatalf("bob's chat list = %+v", list)
	}

	_, env = srv.do(http.MethodGet, "/api/conversations/alice_bob/messages", "alice", nil)
	views := decode[[]models.MessageView](t, env.Data)
	if len(views) != 1 || views[0].Status != services.StatusUnseen {
		t.Fatalf("before bob reads: %+v", views)
	}

	if code, _ := srv.do(http.MethodPost, "/api/conversations/alice_bob/read", "bob", nil); code != http.StatusNoContent {
		t.Fatalf("read status = %d", code)
	}

	_, env = srv.do(http.MethodGet, "/api/conversations/alice_bob/messages", "alice", nil)
	views = decode[[]models.MessageView](t, env.Data)
	if views[0].Status != services.StatusSeen {
		t.Fatalf("after bob reads: %+v", views)
	}

	_, env = srv.do(http.MethodGet, "/api/conversations", "bob", nil)
	if list := decode[[]models.ConversationView](t, env.Data); list[0].IsUnread {
		t.Fatal("still unread after read")
	}
}

func TestConversationAccess(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodPost, "/api/conversations", "alice", echo.Map{"user_id": "bob"})

	if code, _ := srv.do(http.MethodGet, "/api/conversations/alice_bob", "carol", nil); code != http.StatusForbidden {
		t.Fatalf("outsider status = %d, want 403", code)
	}
	if code, _ := srv.do(http.MethodPost, "/api/conversations/alice_bob/messages", "carol", echo.Map{"text": "hi"}); code != http.StatusForbidden {
		t.Fatalf("outsider send status = %d, want 403", code)
	}
	if code, _ := srv.do(http.MethodGet, "/api/conversations/nope_x", "alice", nil); code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", code)
	}
	if code, _ := srv.do(http.MethodPost, "/api/conversations", "alice", echo.Map{"user_id": "ghost"}); code != http.StatusNotFound {
		t.Fatalf("unknown peer status = %d, want 404", code)
	}
	if code, _ := srv.do(http.MethodPost, "/api/conversations", "alice", echo.Map{}); code != http.StatusBadRequest {
		t.Fatalf("missing user_id status = %d, want 400", code)
	}
}

func TestCreateNotification(t *testing.T) {
	srv := newTestServer(t)

	code, env := srv.do(http.MethodPost, "/api/notifications", "alice", echo.Map{"target_id": "bob", "verb": "liked your post", "post_id": "p1"})
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	n := decode[models.Notification](t, env.Data)
	if n.Type != models.NotificationLike || n.Message != "Alice liked your post" || n.RecipientID != "bob" {
		t.Fatalf("notification = %+v", n)
	}

	if code, _ := srv.do(http.MethodPost, "/api/notifications", "alice", echo.Map{"target_id": "alice", "verb": "started following you"}); code != http.StatusNoContent {
		t.Fatalf("self notification status = %d, want 204", code)
	}
	if code, _ := srv.do(http.MethodPost, "/api/notifications", "alice", echo.Map{"target_id": "bob", "verb": "liked your post"}); code != http.StatusBadRequest {
		t.Fatalf("like without post status = %d, want 400", code)
	}
	if code, _ := srv.do(http.MethodPost, "/api/notifications", "alice", echo.Map{"target_id": "ghost", "verb": "started following you"}); code != http.StatusNotFound {
		t.Fatalf("unknown target status = %d, want 404", code)
	}

	_, env = srv.do(http.MethodGet, "/api/notifications/unread-count", "bob", nil)
	if got := decode[map[string]int64](t, env.Data); got["count"] != 1 {
		t.Fatalf("unread = %v", got)
	}

	if code, _ := srv.do(http.MethodPut, "/api/notifications/read-all", "bob", nil); code >= 300 {
		t.Fatalf("read-all status = %d", code)
	}
	_, env = srv.do(http.MethodGet, "/api/notifications/unread-count", "bob", nil)
	if got := decode[map[string]int64](t, env.Data); got["count"] != 0 {
		t.Fatalf("unread after read-all = %v", got)
	}
}

func TestMessageNotifiesReceiver(t *testing.T) {
	srv := newTestServer(t)
	srv.do(http.MethodPost, "/api/conversations", "alice", echo.Map{"user_id": "bob"})
	srv.do(http.MethodPost, "/api/conversations/alice_bob/messages", "alice", echo.Map{"text": "hello"})
	srv.dispatcher.Close()

	_, env := srv.do(http.MethodGet, "/api/notifications", "bob", nil)
	list := decode[[]models.Notification](t, env.Data)
	if len(list) != 1 || list[0].Type != models.NotificationMessage || list[0].Message != `Alice sent you a message: "hello"` {
		t.Fatalf("bob's notifications = %+v", list)
	}
	if list[0].Data["conversation_id"] != "alice_bob" {
		t.Fatalf("data = %v", list[0].Data)
	}
}
