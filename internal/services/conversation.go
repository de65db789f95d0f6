package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
	"go.uber.org/zap"
)

const conversationIDSeparator = "_"

// CanonicalConversationID derives the id of the conversation between a and b.
// The ids are sorted and joined, so the result does not depend on argument order.
func CanonicalConversationID(a, b string) (string, error) {
	if err := validateParticipant(a); err != nil {
		return "", err
	}
	if err := validateParticipant(b); err != nil {
		return "", err
	}
	if a == b {
		return "", fmt.Errorf("%w: both members are %q", ErrInvalidParticipants, a)
	}
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, conversationIDSeparator), nil
}

// validateParticipant rejects ids that would make the joined id ambiguous or
// break dotted field paths such as unread.<id>.
func validateParticipant(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty member id", ErrInvalidParticipants)
	}
	if strings.ContainsAny(id, conversationIDSeparator+".$") {
		return fmt.Errorf("%w: member id %q contains a reserved character", ErrInvalidParticipants, id)
	}
	return nil
}

// ConversationService resolves and reads two-party conversations
type ConversationService struct {
	conversations repositories.ConversationRepository
	users         repositories.UserRepository
	hub           *stream.Hub
	log           *zap.Logger
	now           func() time.Time
}

func NewConversationService(conversations repositories.ConversationRepository, users repositories.UserRepository, hub *stream.Hub, log *zap.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		users:         users,
		hub:           hub,
		log:           nopIfNil(log).Named("conversations"),
		now:           time.Now,
	}
}

// Resolve returns the conversation between a and b, creating it on first use.
// Calling it with the arguments swapped returns the same record.
func (s *ConversationService) Resolve(ctx context.Context, a, b string) (*models.Conversation, error) {
	id, err := CanonicalConversationID(a, b)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.GetConversation(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}

	// Records written before ids were canonical are found by membership.
	conv, err = s.conversations.FindByMembers(ctx, a, b)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find conversation by members: %w", err)
	}

	now := s.now()
	members := []string{a, b}
	sort.Strings(members)
	conv = &models.Conversation{
		ID:          id,
		Members:     members,
		LastMessage: "",
		Unread:      map[string]bool{a: false, b: false},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.conversations.CreateConversation(ctx, conv)
	if errors.Is(err, repositories.ErrAlreadyExists) {
		// Lost a concurrent create; the winner's record is the conversation.
		return s.conversations.GetConversation(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("create conversation %s: %w", id, err)
	}

	s.log.Debug("conversation created", zap.String("conversation_id", id))
	return conv, nil
}

// Get returns the conversation if viewerID is one of its members
func (s *ConversationService) Get(ctx context.Context, conversationID, viewerID string) (*models.Conversation, error) {
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", conversationID, err)
	}
	if !conv.HasMember(viewerID) {
		return nil, ErrNotMember
	}
	return conv, nil
}

// ListForUser returns the user's conversations, most recent first, each with
// the other member's profile and the user's unread flag.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]models.ConversationView, error) {
	convs, err := s.conversations.ListForMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	peerIDs := make([]string, 0, len(convs))
	for i := range convs {
		peerIDs = append(peerIDs, convs[i].OtherMember(userID))
	}
	peers := make(map[string]models.UserCompact, len(peerIDs))
	if len(peerIDs) > 0 {
		users, err := s.users.GetUsersByIDs(ctx, peerIDs)
		if err != nil {
			return nil, fmt.Errorf("load conversation peers: %w", err)
		}
		for i := range users {
			peers[users[i].ID] = users[i].ToCompact()
		}
	}

	views := make([]models.ConversationView, 0, len(convs))
	for _, conv := range convs {
		peerID := conv.OtherMember(userID)
		peer, ok := peers[peerID]
		if !ok {
			peer = models.UserCompact{ID: peerID, DisplayName: "Unknown"}
		}
		views = append(views, models.ConversationView{
			Conversation: conv,
			Peer:         peer,
			IsUnread:     conv.Unread[userID],
		})
	}
	return views, nil
}

// MarkRead clears the user's unread flag on the conversation
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID string) error {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.conversations.MarkRead(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	s.hub.Publish(ctx, stream.ConversationTopic(conversationID))
	return nil
}

// Watch streams the conversation summary, starting with its current state
func (s *ConversationService) Watch(ctx context.Context, conversationID, viewerID string) (*stream.Subscription[*models.Conversation], error) {
	if _, err := s.Get(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	return stream.Subscribe(ctx, s.hub, stream.ConversationTopic(conversationID), func(ctx context.Context) (*models.Conversation, error) {
		return s.conversations.GetConversation(ctx, conversationID)
	})
}
