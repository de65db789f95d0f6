package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/push"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newStubUserRepo(users ...models.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*models.User)}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
	}
	return r
}

func (r *stubUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[u.ID] = &u
	return nil
}

func (r *stubUserRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *stubUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) GetUsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) UpdateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[u.ID] = &u
	return nil
}

func (r *stubUserRepo) SearchUsers(_ context.Context, prefix string, limit int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if strings.HasPrefix(u.DisplayName, prefix) && len(out) < limit {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.LastActiveAt = &at
	return nil
}

type stubFollowRepo struct {
	mu    sync.Mutex
	edges map[[2]string]bool
}

func newStubFollowRepo() *stubFollowRepo {
	return &stubFollowRepo{edges: make(map[[2]string]bool)}
}

func (r *stubFollowRepo) CreateFollow(_ context.Context, f *models.Follow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[[2]string{f.FollowerID, f.FollowingID}] = true
	return nil
}

func (r *stubFollowRepo) DeleteFollow(_ context.Context, followerID, followingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{followerID, followingID}
	if !r.edges[key] {
		return repositories.ErrNotFound
	}
	delete(r.edges, key)
	return nil
}

func (r *stubFollowRepo) IsFollowing(_ context.Context, followerID, followingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edges[[2]string{followerID, followingID}], nil
}

func (r *stubFollowRepo) GetFollowerIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for e := range r.edges {
		if e[1] == userID {
			out = append(out, e[0])
		}
	}
	return out, nil
}

func (r *stubFollowRepo) GetFollowingIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for e := range r.edges {
		if e[0] == userID {
			out = append(out, e[1])
		}
	}
	return out, nil
}

type stubLikeRepo struct {
	mu    sync.Mutex
	likes map[[2]string]bool
}

func newStubLikeRepo() *stubLikeRepo {
	return &stubLikeRepo{likes: make(map[[2]string]bool)}
}

func (r *stubLikeRepo) CreateLike(_ context.Context, like *models.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.likes[[2]string{like.PostID, like.UserID}] = true
	return nil
}

func (r *stubLikeRepo) DeleteLike(_ context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.likes, [2]string{postID, userID})
	return nil
}

func (r *stubLikeRepo) HasUserLikedPost(_ context.Context, postID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.likes[[2]string{postID, userID}], nil
}

func (r *stubLikeRepo) GetLikesCountByPostID(_ context.Context, postID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.likes {
		if k[0] == postID {
			n++
		}
	}
	return n, nil
}

func (r *stubLikeRepo) GetLikedPostIDs(_ context.Context, userID string, postIDs []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range postIDs {
		if r.likes[[2]string{id, userID}] {
			out[id] = true
		}
	}
	return out, nil
}

type stubCommentRepo struct {
	mu       sync.Mutex
	nextID   uint
	comments map[uint]models.Comment
}

func newStubCommentRepo() *stubCommentRepo {
	return &stubCommentRepo{comments: make(map[uint]models.Comment)}
}

func (r *stubCommentRepo) CreateComment(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.comments[c.ID] = *c
	return nil
}

func (r *stubCommentRepo) GetCommentByID(_ context.Context, id uint) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *stubCommentRepo) GetCommentsByPostID(_ context.Context, postID string) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubCommentRepo) DeleteComment(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.comments, id)
	return nil
}

// stubNotificationRepo records created notifications, or fails every write when err is set
type stubNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
	err     error
}

func (r *stubNotificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	n.ID = uint(len(r.created) + 1)
	r.created = append(r.created, *n)
	return nil
}

func (r *stubNotificationRepo) GetByRecipientID(_ context.Context, recipientID string, _, _ int) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.created {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubNotificationRepo) GetGrouped(ctx context.Context, recipientID string, _ time.Time) ([]models.Notification, []models.Notification, []models.Notification, []models.Notification, error) {
	all, _, _ := r.GetByRecipientID(ctx, recipientID, 1, 100)
	return all, nil, nil, nil, nil
}

func (r *stubNotificationRepo) GetUnreadCount(_ context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, x := range r.created {
		if x.RecipientID == recipientID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *stubNotificationRepo) MarkAsRead(_ context.Context, recipientID string, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.created {
		if r.created[i].ID == id && r.created[i].RecipientID == recipientID {
			r.created[i].IsRead = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *stubNotificationRepo) MarkAllAsRead(_ context.Context, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.created {
		if r.created[i].RecipientID == recipientID {
			r.created[i].IsRead = true
		}
	}
	return nil
}

func (r *stubNotificationRepo) forRecipient(id string) []models.Notification {
	out, _, _ := r.GetByRecipientID(context.Background(), id, 1, 100)
	return out
}

type stubPushRepo struct {
	mu   sync.Mutex
	regs map[string]models.PushRegistration
}

func newStubPushRepo() *stubPushRepo {
	return &stubPushRepo{regs: make(map[string]models.PushRegistration)}
}

func (r *stubPushRepo) SaveRegistration(_ context.Context, reg *models.PushRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[reg.UserID] = *reg
	return nil
}

func (r *stubPushRepo) GetRegistration(_ context.Context, userID string) (*models.PushRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &reg, nil
}

func (r *stubPushRepo) DeleteRegistration(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.regs, userID)
	return nil
}

type stubGateway struct {
	mu   sync.Mutex
	sent []push.Notification
	err  error
}

func (g *stubGateway) Send(_ context.Context, n push.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, n)
	return g.err
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.NotificationEvent
}

func (e *recordingEmitter) Emit(ev events.NotificationEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEmitter) all() []events.NotificationEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.NotificationEvent(nil), e.events...)
}

// failingConversationRepo fails GetConversation, to prove nothing else is touched
type failingConversationRepo struct {
	repositories.ConversationRepository
	calls int
}

func (r *failingConversationRepo) GetConversation(context.Context, string) (*models.Conversation, error) {
	r.calls++
	return nil, errors.New("backend down")
}
