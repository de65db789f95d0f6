package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is the two-party summary document (MongoDB "conversations").
// ID is the canonical id of the member pair.
type Conversation struct {
	ID          string          `json:"id" bson:"_id"`
	Members     []string        `json:"members" bson:"members"`
	LastMessage string          `json:"last_message" bson:"last_message"`
	Unread      map[string]bool `json:"unread" bson:"unread"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

// HasMember reports whether userID is one of the two participants
func (c *Conversation) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// OtherMember returns the participant that is not userID
func (c *Conversation) OtherMember(userID string) string {
	for _, m := range c.Members {
		if m != userID {
			return m
		}
	}
	return ""
}

// Message is an immutable chat message (MongoDB "messages")
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID string             `json:"conversation_id" bson:"conversation_id"`
	SenderID       string             `json:"sender_id" bson:"sender_id"`
	ReceiverID     string             `json:"receiver_id" bson:"receiver_id"`
	Text           string             `json:"text" bson:"text"`
	SenderPhotoURL string             `json:"sender_photo_url,omitempty" bson:"sender_photo_url,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// ConversationView is a conversation as seen by one member
type ConversationView struct {
	Conversation
	Peer     UserCompact `json:"peer"`
	IsUnread bool        `json:"is_unread"`
}

// MessageView carries the seen status for the viewer's latest own message
type MessageView struct {
	Message
	Status string `json:"status,omitempty"`
}

type StartConversationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}
