// Package events defines the notification events social actions emit.
package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/go-playground/validator/v10"
)

// Kind tags the variant of a NotificationEvent
type Kind string

const (
	Follow   Kind = models.NotificationFollow
	Unfollow Kind = models.NotificationUnfollow
	Like     Kind = models.NotificationLike
	Comment  Kind = models.NotificationComment
	Message  Kind = models.NotificationMessage
)

var (
	ErrMissingPostID = errors.New("event requires a post id")
	ErrMissingBody   = errors.New("event requires a body")
)

var validate = validator.New()

// Actor is the user whose action produced the event
type Actor struct {
	ID       string `validate:"required"`
	Name     string
	PhotoURL string
}

// DisplayName falls back to "Unknown" when the actor has no name on record
func (a Actor) DisplayName() string {
	if strings.TrimSpace(a.Name) == "" {
		return "Unknown"
	}
	return a.Name
}

// NotificationEvent is a social action directed at TargetID. Build it with one
// of the constructors; each one checks the fields its variant requires.
type NotificationEvent struct {
	Kind     Kind   `validate:"required,oneof=follow unfollow like comment message"`
	Actor    Actor
	TargetID string `validate:"required"`
	PostID   string
	// ConversationID is set for Message events
	ConversationID string
	// Body is the post caption, comment text or message text
	Body string
	// verb overrides the default phrase for events built by FromVerb
	verb string
}

func NewFollow(actor Actor, targetID string) (NotificationEvent, error) {
	return build(NotificationEvent{Kind: Follow, Actor: actor, TargetID: targetID})
}

func NewUnfollow(actor Actor, targetID string) (NotificationEvent, error) {
	return build(NotificationEvent{Kind: Unfollow, Actor: actor, TargetID: targetID})
}

// NewLike builds a like event; caption may be empty
func NewLike(actor Actor, targetID, postID, caption string) (NotificationEvent, error) {
	return build(NotificationEvent{Kind: Like, Actor: actor, TargetID: targetID, PostID: postID, Body: caption})
}

func NewComment(actor Actor, targetID, postID, text string) (NotificationEvent, error) {
	return build(NotificationEvent{Kind: Comment, Actor: actor, TargetID: targetID, PostID: postID, Body: text})
}

func NewMessage(actor Actor, targetID, conversationID, text string) (NotificationEvent, error) {
	return build(NotificationEvent{Kind: Message, Actor: actor, TargetID: targetID, ConversationID: conversationID, Body: text})
}

// FromVerb builds an event from a free-form verb phrase such as
// "liked your post", inferring the variant from the phrase.
func FromVerb(actor Actor, targetID, verb, postID, body string) (NotificationEvent, error) {
	verb = strings.TrimSpace(verb)
	ev := NotificationEvent{
		Kind:     inferKind(verb),
		Actor:    actor,
		TargetID: targetID,
		PostID:   postID,
		Body:     body,
		verb:     verb,
	}
	return build(ev)
}

func inferKind(verb string) Kind {
	v := strings.ToLower(verb)
	switch {
	case strings.Contains(v, "message"):
		return Message
	case strings.Contains(v, "like"):
		return Like
	case strings.Contains(v, "comment"):
		return Comment
	case strings.Contains(v, "unfollow"):
		return Unfollow
	default:
		return Follow
	}
}

func build(ev NotificationEvent) (NotificationEvent, error) {
	ev.Body = strings.TrimSpace(ev.Body)
	if err := validate.Struct(ev); err != nil {
		return NotificationEvent{}, fmt.Errorf("invalid %s event: %w", ev.Kind, err)
	}
	switch ev.Kind {
	case Like, Comment:
		if ev.PostID == "" {
			return NotificationEvent{}, ErrMissingPostID
		}
	}
	if ev.Kind == Comment && ev.Body == "" {
		return NotificationEvent{}, ErrMissingBody
	}
	return ev, nil
}

// Verb is the phrase that follows the actor's name
func (e NotificationEvent) Verb() string {
	if e.verb != "" {
		return e.verb
	}
	switch e.Kind {
	case Follow:
		return "started following you"
	case Unfollow:
		return "unfollowed you"
	case Like:
		return "liked your post"
	case Comment:
		return "commented on your post"
	case Message:
		return "sent you a message"
	}
	return string(e.Kind)
}

// Text renders `<name> <verb>` plus `: "<body>"` when there is a body
func (e NotificationEvent) Text() string {
	text := e.Actor.DisplayName() + " " + e.Verb()
	if e.Body != "" {
		text += `: "` + e.Body + `"`
	}
	return text
}

// IsSelf reports whether the actor is notifying themselves
func (e NotificationEvent) IsSelf() bool {
	return e.Actor.ID == e.TargetID
}

// PushTitle is the title of the device notification for the event
func (e NotificationEvent) PushTitle() string {
	switch e.Kind {
	case Message:
		return "New Message"
	case Follow:
		return "New Follower"
	case Like:
		return "New Like"
	case Comment:
		return "New Comment"
	}
	return "Notification"
}

// PushBody is the body of the device notification for the event
func (e NotificationEvent) PushBody() string {
	if e.Kind == Message {
		return "You have a new message from " + e.Actor.DisplayName()
	}
	return e.Actor.DisplayName() + " " + e.Verb()
}

// Data is the opaque payload stored with the notification and sent with the push
func (e NotificationEvent) Data() map[string]string {
	data := map[string]string{"type": string(e.Kind), "actor_id": e.Actor.ID}
	if e.PostID != "" {
		data["post_id"] = e.PostID
	}
	if e.ConversationID != "" {
		data["conversation_id"] = e.ConversationID
	}
	return data
}

// Record converts the event into the persisted notification row
func (e NotificationEvent) Record() *models.Notification {
	data := make(map[string]interface{}, 4)
	for k, v := range e.Data() {
		data[k] = v
	}
	return &models.Notification{
		Type:          string(e.Kind),
		ActorID:       e.Actor.ID,
		ActorName:     e.Actor.DisplayName(),
		ActorPhotoURL: e.Actor.PhotoURL,
		RecipientID:   e.TargetID,
		PostID:        e.PostID,
		Message:       e.Text(),
		Data:          data,
		IsRead:        false,
	}
}
