package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
	"go.uber.org/zap"
)

// MessageService appends messages and streams a conversation's history
type MessageService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	hub           *stream.Hub
	emitter       Emitter
	log           *zap.Logger
	now           func() time.Time
}

func NewMessageService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	hub *stream.Hub,
	emitter Emitter,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		hub:           hub,
		emitter:       emitter,
		log:           nopIfNil(log).Named("messages"),
		now:           time.Now,
	}
}

// Send stores a message from sender to receiverID and updates the
// conversation summary. Blank text is rejected before anything is written.
func (s *MessageService) Send(ctx context.Context, conversationID string, sender events.Actor, receiverID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if sender.ID == "" || receiverID == "" || sender.ID == receiverID {
		return nil, ErrInvalidParticipants
	}

	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", conversationID, err)
	}
	if !conv.HasMember(sender.ID) || !conv.HasMember(receiverID) {
		return nil, ErrNotMember
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       sender.ID,
		ReceiverID:     receiverID,
		Text:           text,
		SenderPhotoURL: sender.PhotoURL,
		CreatedAt:      messageTime(s.now()),
	}
	if err := s.messages.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if err := s.conversations.ApplyMessage(ctx, conversationID, sender.ID, receiverID, text, msg.CreatedAt); err != nil {
		// The message is stored; the summary catches up on the next send.
		s.log.Error("update conversation summary",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}

	s.hub.Publish(ctx, stream.MessagesTopic(conversationID))
	s.hub.Publish(ctx, stream.ConversationTopic(conversationID))

	emitEvent(s.emitter, s.log, func() (events.NotificationEvent, error) {
		return events.NewMessage(sender, receiverID, conversationID, text)
	})
	return msg, nil
}

// List returns the conversation's messages in display order
func (s *MessageService) List(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs, err := s.messages.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Subscribe streams the full ordered message set, first as it is now and
// then again after every change.
func (s *MessageService) Subscribe(ctx context.Context, conversationID string) (*stream.Subscription[[]models.Message], error) {
	return stream.Subscribe(ctx, s.hub, stream.MessagesTopic(conversationID), func(ctx context.Context) ([]models.Message, error) {
		return s.List(ctx, conversationID)
	})
}
