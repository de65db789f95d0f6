package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"go.uber.org/zap"
)

const maxSearchResults = 20

// BlobStore stores uploaded files and returns a durable download URL
type BlobStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// ProfileService reads and edits user profiles
type ProfileService struct {
	users   repositories.UserRepository
	follows repositories.FollowRepository
	blobs   BlobStore
	log     *zap.Logger
}

func NewProfileService(users repositories.UserRepository, follows repositories.FollowRepository, blobs BlobStore, log *zap.Logger) *ProfileService {
	return &ProfileService{users: users, follows: follows, blobs: blobs, log: nopIfNil(log).Named("profiles")}
}

// Get returns the user with follower and following ids filled in
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}

	if user.Followers, err = s.follows.GetFollowerIDs(ctx, userID); err != nil {
		return nil, fmt.Errorf("get follower ids: %w", err)
	}
	if user.Following, err = s.follows.GetFollowingIDs(ctx, userID); err != nil {
		return nil, fmt.Errorf("get following ids: %w", err)
	}
	return user, nil
}

// Update applies the non-empty fields of req
func (s *ProfileService) Update(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != "" {
		user.DisplayName = strings.TrimSpace(req.DisplayName)
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.PhotoURL != "" {
		user.PhotoURL = req.PhotoURL
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Search finds users whose display name starts with prefix
func (s *ProfileService) Search(ctx context.Context, prefix string) ([]models.UserCompact, error) {
	prefix = strings.TrimSpace(prefix)
	out := []models.UserCompact{}
	if prefix == "" {
		return out, nil
	}
	users, err := s.users.SearchUsers(ctx, prefix, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return out, nil
}

// UploadPhoto stores a new profile photo and points the profile at it
func (s *ProfileService) UploadPhoto(ctx context.Context, userID, filename, contentType string, r io.Reader) (*models.User, error) {
	if s.blobs == nil {
		return nil, errors.New("blob store not configured")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	url, err := s.blobs.Upload(ctx, "profile_images/"+userID+ext, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload profile photo: %w", err)
	}

	user.PhotoURL = url
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user photo: %w", err)
	}
	s.log.Info("profile photo updated", zap.String("user_id", userID))
	return user, nil
}
