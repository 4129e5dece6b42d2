package notification

import (
	"context"

	"go.uber.org/zap"
)

type NotificationService interface {
	// Notify persists a notification and pushes it to the user's open
	// websocket connections.
	Notify(ctx context.Context, tenantID, userID, title, message string) error
	ListForUser(ctx context.Context, tenantID, userID string, page, limit int64) ([]Notification, int64, error)
	UnreadCount(ctx context.Context, tenantID, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id, userID string) error
	MarkAllAsRead(ctx context.Context, tenantID, userID string) error
}

type NotificationServiceImpl struct {
	Repo NotificationRepository
	Hub  *Hub
	Log  *zap.Logger
}

func NewNotificationService(repo NotificationRepository, hub *Hub, log *zap.Logger) NotificationService {
	return &NotificationServiceImpl{Repo: repo, Hub: hub, Log: log}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, tenantID, userID, title, message string) error {
	n := &Notification{
		TenantID: tenantID,
		UserID:   userID,
		Title:    title,
		Message:  message,
		Type:     NotificationTypeInfo,
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return err
	}

	s.Hub.Push(userID, n)
	s.Log.Debug("notification sent", zap.String("user_id", userID), zap.String("title", title))
	return nil
}

func (s *NotificationServiceImpl) ListForUser(ctx context.Context, tenantID, userID string, page, limit int64) ([]Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return s.Repo.ListForUser(ctx, tenantID, userID, page, limit)
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, tenantID, userID string) (int64, error) {
	return s.Repo.UnreadCount(ctx, tenantID, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id, userID string) error {
	return s.Repo.MarkAsRead(ctx, id, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, tenantID, userID string) error {
	return s.Repo.MarkAllAsRead(ctx, tenantID, userID)
}
