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

// LikeService toggles likes on posts
type LikeService struct {
	likes   repositories.LikeRepository
	posts   repositories.PostRepository
	emitter Emitter
	log     *zap.Logger
}

func NewLikeService(likes repositories.LikeRepository, posts repositories.PostRepository, emitter Emitter, log *zap.Logger) *LikeService {
	return &LikeService{likes: likes, posts: posts, emitter: emitter, log: nopIfNil(log).Named("likes")}
}

// Toggle likes the post if actor has not liked it yet, otherwise removes the
// like. It returns the new state and the post's like count.
func (s *LikeService) Toggle(ctx context.Context, actor events.Actor, postID string) (bool, int64, error) {
	post, err := getPost(ctx, s.posts, postID)
	if err != nil {
		return false, 0, err
	}

	liked, err := s.likes.HasUserLikedPost(ctx, postID, actor.ID)
	if err != nil {
		return false, 0, fmt.Errorf("check like: %w", err)
	}

	if liked {
		if err := s.likes.DeleteLike(ctx, postID, actor.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return false, 0, fmt.Errorf("delete like: %w", err)
		}
		s.adjustCount(ctx, postID, -1)
	} else {
		if err := s.likes.CreateLike(ctx, &models.Like{PostID: postID, UserID: actor.ID}); err != nil {
			return false, 0, fmt.Errorf("create like: %w", err)
		}
		s.adjustCount(ctx, postID, 1)
		emitEvent(s.emitter, s.log, func() (events.NotificationEvent, error) {
			return events.NewLike(actor, post.UserID, postID, post.Caption)
		})
	}

	count, err := s.likes.GetLikesCountByPostID(ctx, postID)
	if err != nil {
		return !liked, 0, fmt.Errorf("count likes: %w", err)
	}
	return !liked, count, nil
}

func (s *LikeService) Count(ctx context.Context, postID string) (int64, error) {
	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return 0, err
	}
	return s.likes.GetLikesCountByPostID(ctx, postID)
}

func (s *LikeService) Status(ctx context.Context, postID, userID string) (bool, error) {
	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return false, err
	}
	return s.likes.HasUserLikedPost(ctx, postID, userID)
}

// adjustCount keeps the denormalised post counter in step; the like rows stay
// the source of truth so a failure here is only logged.
func (s *LikeService) adjustCount(ctx context.Context, postID string, delta int) {
	if err := s.posts.AddToLikesCount(ctx, postID, delta); err != nil {
		s.log.Warn("update post like count", zap.String("post_id", postID), zap.Error(err))
	}
}

func getPost(ctx context.Context, posts repositories.PostRepository, postID string) (*models.Post, error) {
	post, err := posts.GetPostByID(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	return post, nil
}
