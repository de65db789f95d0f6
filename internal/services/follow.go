package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"go.uber.org/zap"
)

// FollowService maintains follow edges between users
type FollowService struct {
	follows repositories.FollowRepository
	users   repositories.UserRepository
	emitter Emitter
	log     *zap.Logger
}

func NewFollowService(follows repositories.FollowRepository, users repositories.UserRepository, emitter Emitter, log *zap.Logger) *FollowService {
	return &FollowService{
		follows: follows,
		users:   users,
		emitter: emitter,
		log:     nopIfNil(log).Named("follows"),
	}
}

// Follow makes actor follow targetID and notifies the target
func (s *FollowService) Follow(ctx context.Context, actor events.Actor, targetID string) error {
	if actor.ID == targetID {
		return ErrSelfAction
	}
	if err := s.requireUser(ctx, targetID); err != nil {
		return err
	}

	following, err := s.follows.IsFollowing(ctx, actor.ID, targetID)
	if err != nil {
		return fmt.Errorf("check follow: %w", err)
	}
	if following {
		return ErrAlreadyFollowing
	}

	if err := s.follows.CreateFollow(ctx, &models.Follow{FollowerID: actor.ID, FollowingID: targetID}); err != nil {
		return fmt.Errorf("create follow: %w", err)
	}

	emitEvent(s.emitter, s.log, func() (events.NotificationEvent, error) {
		return events.NewFollow(actor, targetID)
	})
	return nil
}

// Unfollow removes the edge and tells the target
func (s *FollowService) Unfollow(ctx context.Context, actor events.Actor, targetID string) error {
	if actor.ID == targetID {
		return ErrSelfAction
	}
	err := s.follows.DeleteFollow(ctx, actor.ID, targetID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFollowing
	}
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}

	emitEvent(s.emitter, s.log, func() (events.NotificationEvent, error) {
		return events.NewUnfollow(actor, targetID)
	})
	return nil
}

// Toggle follows or unfollows depending on the current edge and reports the new state
func (s *FollowService) Toggle(ctx context.Context, actor events.Actor, targetID string) (bool, error) {
	following, err := s.follows.IsFollowing(ctx, actor.ID, targetID)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	if following {
		return false, s.Unfollow(ctx, actor, targetID)
	}
	return true, s.Follow(ctx, actor, targetID)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	return s.follows.IsFollowing(ctx, followerID, targetID)
}

func (s *FollowService) Followers(ctx context.Context, userID string) ([]models.UserCompact, error) {
	ids, err := s.follows.GetFollowerIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get follower ids: %w", err)
	}
	return s.compact(ctx, ids)
}

func (s *FollowService) Following(ctx context.Context, userID string) ([]models.UserCompact, error) {
	ids, err := s.follows.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get following ids: %w", err)
	}
	return s.compact(ctx, ids)
}

func (s *FollowService) compact(ctx context.Context, ids []string) ([]models.UserCompact, error) {
	out := make([]models.UserCompact, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return out, nil
}

func (s *FollowService) requireUser(ctx context.Context, id string) error {
	_, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get user %s: %w", id, err)
	}
	return nil
}
