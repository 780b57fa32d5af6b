package service

import (
	"context"
	"log"
	"time"

	"github.com/leaflog/leaflog-backend/internal/logctx"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
)

type NotificationService interface {
	Notify(ctx context.Context, userUID, typ, title, body string, locationID, actorUID *string)
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify records an in-app notification. Failures are logged, not returned.
// The write is detached from ctx cancellation.
func (s *notificationService) Notify(ctx context.Context, userUID, typ, title, body string, locationID, actorUID *string) {
	if userUID == "" || typ == "" {
		return
	}
	ctx, cancel := withShortDeadline(context.WithoutCancel(ctx))
	defer cancel()
	n := &model.Notification{
		UserUID:    userUID,
		Type:       typ,
		Title:      title,
		Body:       body,
		LocationID: locationID,
		ActorUID:   actorUID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("[notify] rid=%s stage=create_fail user=%s type=%s err=%v", logctx.RID(ctx), userUID, typ, err)
	}
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, ErrUnauthenticated
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return ErrUnauthenticated
	}
	return s.repo.MarkAllRead(ctx, userUID)
}

func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
