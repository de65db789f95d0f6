package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
	"go.uber.org/zap"
)

// Seen statuses for the viewer's latest own message
const (
	StatusSeen   = "Seen"
	StatusUnseen = "Unseen"
)

// PresenceService records when users were last active
type PresenceService struct {
	users repositories.UserRepository
	hub   *stream.Hub
	log   *zap.Logger
	now   func() time.Time
}

func NewPresenceService(users repositories.UserRepository, hub *stream.Hub, log *zap.Logger) *PresenceService {
	return &PresenceService{
		users: users,
		hub:   hub,
		log:   nopIfNil(log).Named("presence"),
		now:   time.Now,
	}
}

// Touch marks the user active now
func (s *PresenceService) Touch(ctx context.Context, userID string) error {
	if err := s.users.TouchLastActive(ctx, userID, activeTime(s.now())); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("touch last active: %w", err)
	}
	s.hub.Publish(ctx, stream.PresenceTopic(userID))
	return nil
}

// LastActive returns nil when the user has never been active
func (s *PresenceService) LastActive(ctx context.Context, userID string) (*time.Time, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user.LastActiveAt, nil
}

// Watch streams the user's last-active time
func (s *PresenceService) Watch(ctx context.Context, userID string) (*stream.Subscription[*time.Time], error) {
	return stream.Subscribe(ctx, s.hub, stream.PresenceTopic(userID), func(ctx context.Context) (*time.Time, error) {
		return s.LastActive(ctx, userID)
	})
}

// TouchOnSignIn marks users active whenever the tracker reports a sign-in.
// The returned func stops listening.
func (s *PresenceService) TouchOnSignIn(tracker *session.Tracker) func() {
	return tracker.Subscribe(func(ev session.Event) {
		if ev.Type != session.SignedIn {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Touch(ctx, ev.Session.UserID); err != nil {
			s.log.Warn("touch on sign-in", zap.String("user_id", ev.Session.UserID), zap.Error(err))
		}
	})
}

// Stored times keep millisecond precision. Last-active rounds down and
// message times round up, so a touch earlier in the same millisecond as a
// send still compares as before it.
func activeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func messageTime(t time.Time) time.Time {
	r := t.UTC().Truncate(time.Millisecond)
	if r.Before(t) {
		r = r.Add(time.Millisecond)
	}
	return r
}

// ComputeSeenStatus returns Seen or Unseen for the viewer's most recent own
// message and "" for every other message. An unknown last-active time counts
// as not seen.
func ComputeSeenStatus(msg models.Message, viewerIsSender, isLatestOwn bool, otherLastActive *time.Time) string {
	if !viewerIsSender || !isLatestOwn {
		return ""
	}
	if otherLastActive == nil {
		return StatusUnseen
	}
	if !otherLastActive.Before(msg.CreatedAt) {
		return StatusSeen
	}
	return StatusUnseen
}

// Annotate attaches seen statuses to an ordered message set as viewed by viewerID
func Annotate(msgs []models.Message, viewerID string, otherLastActive *time.Time) []models.MessageView {
	latestOwn := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderID == viewerID {
			latestOwn = i
			break
		}
	}

	views := make([]models.MessageView, len(msgs))
	for i, m := range msgs {
		views[i] = models.MessageView{
			Message: m,
			Status:  ComputeSeenStatus(m, m.SenderID == viewerID, i == latestOwn, otherLastActive),
		}
	}
	return views
}
