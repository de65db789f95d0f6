package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryConversationRepository keeps conversations in process memory.
// Used when no MongoDB is configured and in tests.
type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{conversations: make(map[string]*models.Conversation)}
}

func (r *MemoryConversationRepository) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (r *MemoryConversationRepository) FindByMembers(_ context.Context, a, b string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.conversations {
		if len(conv.Members) != 2 {
			continue
		}
		if (conv.Members[0] == a && conv.Members[1] == b) || (conv.Members[0] == b && conv.Members[1] == a) {
			return cloneConversation(conv), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryConversationRepository) CreateConversation(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conv.ID]; ok {
		return ErrAlreadyExists
	}
	r.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

func (r *MemoryConversationRepository) ApplyMessage(_ context.Context, id, senderID, receiverID, text string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.LastMessage = text
	conv.UpdatedAt = at
	if conv.Unread == nil {
		conv.Unread = make(map[string]bool)
	}
	conv.Unread[receiverID] = true
	conv.Unread[senderID] = false
	return nil
}

func (r *MemoryConversationRepository) MarkRead(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	if conv.Unread == nil {
		conv.Unread = make(map[string]bool)
	}
	conv.Unread[userID] = false
	return nil
}

func (r *MemoryConversationRepository) ListForMember(_ context.Context, userID string) ([]models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []models.Conversation{}
	for _, conv := range r.conversations {
		if conv.HasMember(userID) {
			result = append(result, *cloneConversation(conv))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Members = append([]string(nil), c.Members...)
	out.Unread = make(map[string]bool, len(c.Unread))
	for k, v := range c.Unread {
		out.Unread[k] = v
	}
	return &out
}

// MemoryMessageRepository keeps messages in process memory, in append order
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]models.Message // conversationID -> messages
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string][]models.Message)}
}

func (r *MemoryMessageRepository) AppendMessage(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], *msg)
	return nil
}

func (r *MemoryMessageRepository) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := append([]models.Message{}, r.messages[conversationID]...)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// MemoryPostRepository keeps posts in process memory
type MemoryPostRepository struct {
	mu    sync.RWMutex
	posts map[primitive.ObjectID]*models.Post
}

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{posts: make(map[primitive.ObjectID]*models.Post)}
}

func (r *MemoryPostRepository) CreatePost(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	stored := *post
	r.posts[post.ID] = &stored
	return nil
}

func (r *MemoryPostRepository) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	post, ok := r.posts[objID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *post
	return &out, nil
}

func (r *MemoryPostRepository) GetPostsByUserID(_ context.Context, userID string, skip, limit int64) ([]models.Post, error) {
	return r.page(func(p *models.Post) bool { return p.UserID == userID }, skip, limit), nil
}

func (r *MemoryPostRepository) GetAllPosts(_ context.Context, skip, limit int64) ([]models.Post, error) {
	return r.page(func(*models.Post) bool { return true }, skip, limit), nil
}

// page returns matching posts newest first
func (r *MemoryPostRepository) page(match func(*models.Post) bool, skip, limit int64) []models.Post {
	r.mu.RLock()
	all := []models.Post{}
	for _, p := range r.posts {
		if match(p) {
			all = append(all, *p)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.Hex() > all[j].ID.Hex()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if skip >= int64(len(all)) {
		return []models.Post{}
	}
	all = all[skip:]
	if limit > 0 && limit < int64(len(all)) {
		all = all[:limit]
	}
	return all
}

func (r *MemoryPostRepository) CountPosts(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.posts)), nil
}

func (r *MemoryPostRepository) DeletePost(_ context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[objID]; !ok {
		return ErrNotFound
	}
	delete(r.posts, objID)
	return nil
}

func (r *MemoryPostRepository) AddToLikesCount(_ context.Context, postID string, delta int) error {
	return r.inc(postID, func(p *models.Post) { p.LikesCount += delta })
}

func (r *MemoryPostRepository) AddToCommentsCount(_ context.Context, postID string, delta int) error {
	return r.inc(postID, func(p *models.Post) { p.CommentsCount += delta })
}

func (r *MemoryPostRepository) inc(postID string, apply func(*models.Post)) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[objID]
	if !ok {
		return ErrNotFound
	}
	apply(post)
	return nil
}
