package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
)

type notificationStore struct {
	client *firestore.Client
}

func NewNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &notificationStore{client: client}
}

func (s *notificationStore) col(userUID string) *firestore.CollectionRef {
	return s.client.Collection(colUsers).Doc(userUID).Collection(colNotifications)
}

func (s *notificationStore) Create(ctx context.Context, n *model.Notification) error {
	if s.client == nil {
		return repository.ErrDBNotReady
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	doc := n.ToDoc()
	doc["read"] = n.ReadAt != nil
	_, err := s.col(n.UserUID).Doc(n.ID).Set(ctx, doc)
	return err
}

func (s *notificationStore) ListByUser(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	q := s.col(userUID).Query
	if unreadOnly {
		q = q.Where("read", "==", false)
	}
	docs, err := q.OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]model.Notification, 0, len(docs))
	for _, d := range docs {
		list = append(list, *model.NotificationFromDoc(d.Ref.ID, userUID, d.Data()))
	}
	return list, nil
}

func (s *notificationStore) MarkAllRead(ctx context.Context, userUID string) error {
	if s.client == nil {
		return repository.ErrDBNotReady
	}
	docs, err := s.col(userUID).Where("read", "==", false).Documents(ctx).GetAll()
	if err != nil || len(docs) == 0 {
		return err
	}
	now := time.Now().UTC()
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, d := range docs {
		job, err := bw.Update(d.Ref, []firestore.Update{
			{Path: "read", Value: true},
			{Path: "readAt", Value: now},
		})
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return err
		}
	}
	return nil
}

func (s *notificationStore) CountUnread(ctx context.Context, userUID string) (int64, error) {
	if s.client == nil {
		return 0, repository.ErrDBNotReady
	}
	return count(ctx, s.col(userUID).Where("read", "==", false))
}
