package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type profileStore struct {
	client *firestore.Client
}

func NewProfileRepository(client *firestore.Client) repository.ProfileRepository {
	return &profileStore{client: client}
}

func (s *profileStore) col() *firestore.CollectionRef {
	return s.client.Collection(colUsers)
}

// Ensure creates the profile document, or fills identity fields that still
// hold placeholder values on a document created by an award.
func (s *profileStore) Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	ref := s.col().Doc(p.UID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err != nil || !snap.Exists() {
			doc := p.ToDoc()
			doc["updatedAt"] = p.CreatedAt
			return tx.Create(ref, doc)
		}
		cur := model.ProfileFromDoc(p.UID, snap.Data())
		fill := map[string]interface{}{}
		if cur.Username == model.DefaultUsername && p.Username != "" && p.Username != model.DefaultUsername {
			fill["username"] = p.Username
		}
		if cur.Email == "" && p.Email != "" {
			fill["email"] = p.Email
		}
		if cur.AvatarURL == nil && p.AvatarURL != nil {
			fill["avatarUrl"] = *p.AvatarURL
		}
		if cur.CreatedAt.IsZero() {
			fill["createdAt"] = p.CreatedAt
		}
		if len(fill) == 0 {
			return nil
		}
		fill["updatedAt"] = firestore.ServerTimestamp
		return tx.Set(ref, fill, firestore.MergeAll)
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, p.UID)
}

func (s *profileStore) FindByID(ctx context.Context, uid string) (*model.Profile, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	snap, err := s.col().Doc(uid).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return model.ProfileFromDoc(snap.Ref.ID, snap.Data()), nil
}

func (s *profileStore) UpdateDetails(ctx context.Context, p *model.Profile) error {
	if s.client == nil {
		return repository.ErrDBNotReady
	}
	_, err := s.col().Doc(p.UID).Update(ctx, []firestore.Update{
		{Path: "username", Value: p.Username},
		{Path: "firstName", Value: optional(p.FirstName)},
		{Path: "lastName", Value: optional(p.LastName)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return translate(err)
}

func (s *profileStore) SetAvatarURL(ctx context.Context, uid, avatarURL string) error {
	if s.client == nil {
		return repository.ErrDBNotReady
	}
	_, err := s.col().Doc(uid).Update(ctx, []firestore.Update{
		{Path: "avatarUrl", Value: avatarURL},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return translate(err)
}

func (s *profileStore) topQuery(limit int) firestore.Query {
	return s.col().OrderBy("totalPoints", firestore.Desc).Limit(clampLimit(limit))
}

func (s *profileStore) Top(ctx context.Context, limit int) ([]model.Profile, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	docs, err := s.topQuery(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeProfiles(docs)
}

func (s *profileStore) CountAbove(ctx context.Context, points int64) (int64, error) {
	if s.client == nil {
		return 0, repository.ErrDBNotReady
	}
	return count(ctx, s.col().Where("totalPoints", ">", points))
}

func (s *profileStore) WatchTop(ctx context.Context, limit int) *live.Subscription[[]model.Profile] {
	return watch(ctx, s.topQuery(limit), decodeProfiles)
}

func decodeProfiles(docs []*firestore.DocumentSnapshot) ([]model.Profile, error) {
	list := make([]model.Profile, 0, len(docs))
	for _, d := range docs {
		list = append(list, *model.ProfileFromDoc(d.Ref.ID, d.Data()))
	}
	sortByPoints(list, func(p model.Profile) (int64, int64, string) {
		return p.TotalPoints, p.CreatedAt.UnixNano(), p.UID
	})
	return list, nil
}

func optional(s *string) interface{} {
	if s == nil {
		return firestore.Delete
	}
	return *s
}
