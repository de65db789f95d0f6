package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/messenger/internal/events"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"go.uber.org/zap"
)

// ErrEmptyComment is returned for blank comment text
var ErrEmptyComment = errors.New("comment is empty")

// CommentService manages comments on posts
type CommentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	emitter  Emitter
	log      *zap.Logger
}

func NewCommentService(comments repositories.CommentRepository, posts repositories.PostRepository, emitter Emitter, log *zap.Logger) *CommentService {
	return &CommentService{comments: comments, posts: posts, emitter: emitter, log: nopIfNil(log).Named("comments")}
}

// Create adds actor's comment to the post and notifies the post's author
func (s *CommentService) Create(ctx context.Context, actor events.Actor, postID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	post, err := getPost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   postID,
		UserID:   actor.ID,
		UserName: actor.DisplayName(),
		Content:  content,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := s.posts.AddToCommentsCount(ctx, postID, 1); err != nil {
		s.log.Warn("update post comment count", zap.String("post_id", postID), zap.Error(err))
	}

	emitEvent(s.emitter, s.log, func() (events.NotificationEvent, error) {
		return events.NewComment(actor, post.UserID, postID, content)
	})
	return comment, nil
}

func (s *CommentService) List(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return nil, err
	}
	return s.comments.GetCommentsByPostID(ctx, postID)
}

// Delete removes a comment written by userID
func (s *CommentService) Delete(ctx context.Context, userID string, commentID uint) error {
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get comment: %w", err)
	}
	if comment.UserID != userID {
		return ErrForbidden
	}
	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if err := s.posts.AddToCommentsCount(ctx, comment.PostID, -1); err != nil {
		s.log.Warn("update post comment count", zap.String("post_id", comment.PostID), zap.Error(err))
	}
	return nil
}
