package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
)

const snapshotSize = 20

// GroupedNotifications buckets a recipient's notifications by age
type GroupedNotifications struct {
	Today     []models.Notification `json:"today"`
	Yesterday []models.Notification `json:"yesterday"`
	ThisWeek  []models.Notification `json:"this_week"`
	Older     []models.Notification `json:"older"`
}

// NotificationSnapshot is what notification streams emit
type NotificationSnapshot struct {
	UnreadCount int64                 `json:"unread_count"`
	Latest      []models.Notification `json:"latest"`
}

// NotificationFeed is the read side of a user's notifications
type NotificationFeed struct {
	notifications repositories.NotificationRepository
	hub           *stream.Hub
	now           func() time.Time
}

func NewNotificationFeed(notifications repositories.NotificationRepository, hub *stream.Hub) *NotificationFeed {
	return &NotificationFeed{notifications: notifications, hub: hub, now: time.Now}
}

func (f *NotificationFeed) List(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	items, total, err := f.notifications.GetByRecipientID(ctx, recipientID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

func (f *NotificationFeed) Grouped(ctx context.Context, recipientID string) (*GroupedNotifications, error) {
	today, yesterday, week, older, err := f.notifications.GetGrouped(ctx, recipientID, f.now())
	if err != nil {
		return nil, fmt.Errorf("group notifications: %w", err)
	}
	return &GroupedNotifications{Today: today, Yesterday: yesterday, ThisWeek: week, Older: older}, nil
}

func (f *NotificationFeed) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	n, err := f.notifications.GetUnreadCount(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// Watch streams the unread count and newest notifications of recipientID
func (f *NotificationFeed) Watch(ctx context.Context, recipientID string) (*stream.Subscription[NotificationSnapshot], error) {
	return stream.Subscribe(ctx, f.hub, stream.NotificationsTopic(recipientID), func(ctx context.Context) (NotificationSnapshot, error) {
		latest, _, err := f.List(ctx, recipientID, 1, snapshotSize)
		if err != nil {
			return NotificationSnapshot{}, err
		}
		unread, err := f.UnreadCount(ctx, recipientID)
		if err != nil {
			return NotificationSnapshot{}, err
		}
		return NotificationSnapshot{UnreadCount: unread, Latest: latest}, nil
	})
}
