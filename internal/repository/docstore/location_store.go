package docstore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/leaflog/leaflog-backend/internal/geo"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
)

type locationStore struct {
	client *firestore.Client
}

func NewLocationRepository(client *firestore.Client) repository.LocationRepository {
	return &locationStore{client: client}
}

func (s *locationStore) col() *firestore.CollectionRef {
	return s.client.Collection(colLocations)
}

func (s *locationStore) Create(ctx context.Context, loc *model.Location) error {
	if s.client == nil {
		return repository.ErrDBNotReady
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	loc.UpdatedAt = loc.CreatedAt
	loc.Type = loc.Kind()
	doc, err := loc.ToDoc()
	if err != nil {
		return err
	}
	_, err = s.col().Doc(loc.ID).Create(ctx, doc)
	return err
}

func (s *locationStore) FindByID(ctx context.Context, id string) (*model.Location, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	snap, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return model.LocationFromDoc(snap.Ref.ID, snap.Data())
}

func (s *locationStore) List(ctx context.Context, limit, offset int, kind model.LocationKind) ([]model.Location, int64, error) {
	if s.client == nil {
		return nil, 0, repository.ErrDBNotReady
	}
	q := s.col().Query
	if kind != "" {
		q = q.Where(model.FieldType, "==", string(kind))
	}
	total, err := count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	docs, err := q.OrderBy("createdAt", firestore.Desc).
		Offset(offset).
		Limit(clampLimit(limit)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, err
	}
	list, err := decodeLocations(docs)
	return list, total, err
}

func (s *locationStore) ListByOwner(ctx context.Context, uid string) ([]model.Location, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	docs, err := s.col().Where("userId", "==", uid).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list, err := decodeLocations(docs)
	if err != nil {
		return nil, err
	}
	// Sorted here to avoid a composite index on (userId, createdAt).
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *locationStore) topQuery(limit int) firestore.Query {
	return s.col().OrderBy("points", firestore.Desc).Limit(clampLimit(limit))
}

func (s *locationStore) Top(ctx context.Context, limit int) ([]model.Location, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	docs, err := s.topQuery(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeTop(docs)
}

// boxQuery filters on latitude only. Longitude and the exact circle are
// applied in process.
func (s *locationStore) boxQuery(box geo.Box) firestore.Query {
	return s.col().
		Where("latitude", ">=", box.MinLat).
		Where("latitude", "<=", box.MaxLat)
}

func (s *locationStore) InBox(ctx context.Context, box geo.Box) ([]model.Location, error) {
	if s.client == nil {
		return nil, repository.ErrDBNotReady
	}
	docs, err := s.boxQuery(box).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeInBox(box)(docs)
}

func (s *locationStore) SetImageURL(ctx context.Context, id, imageURL string) error {
	if s.client == nil {
		return repository.ErrDBNotReady
	}
	_, err := s.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "imageUrl", Value: imageURL},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return translate(err)
}

func (s *locationStore) OwnerStats(ctx context.Context, uid string) (repository.LocationStats, error) {
	if s.client == nil {
		return repository.LocationStats{}, repository.ErrDBNotReady
	}
	docs, err := s.col().Where("userId", "==", uid).Select("points").Documents(ctx).GetAll()
	if err != nil {
		return repository.LocationStats{}, err
	}
	stats := repository.LocationStats{Count: int64(len(docs))}
	for _, d := range docs {
		if v, err := d.DataAt("points"); err == nil {
			if n, ok := v.(int64); ok {
				stats.Points += n
			}
		}
	}
	return stats, nil
}

func (s *locationStore) WatchTop(ctx context.Context, limit int) *live.Subscription[[]model.Location] {
	return watch(ctx, s.topQuery(limit), decodeTop)
}

func (s *locationStore) WatchBox(ctx context.Context, box geo.Box) *live.Subscription[[]model.Location] {
	return watch(ctx, s.boxQuery(box), decodeInBox(box))
}

// decodeLocations skips documents that fail to decode so one malformed
// document does not hide the rest.
func decodeLocations(docs []*firestore.DocumentSnapshot) ([]model.Location, error) {
	list := make([]model.Location, 0, len(docs))
	for _, d := range docs {
		loc, err := model.LocationFromDoc(d.Ref.ID, d.Data())
		if err != nil {
			log.Printf("[docstore] skip location id=%s err=%v", d.Ref.ID, err)
			continue
		}
		list = append(list, *loc)
	}
	return list, nil
}

func decodeTop(docs []*firestore.DocumentSnapshot) ([]model.Location, error) {
	list, err := decodeLocations(docs)
	if err != nil {
		return nil, err
	}
	sortByPoints(list, func(l model.Location) (int64, int64, string) {
		return l.Points, l.CreatedAt.UnixNano(), l.ID
	})
	return list, nil
}

func decodeInBox(box geo.Box) func([]*firestore.DocumentSnapshot) ([]model.Location, error) {
	return func(docs []*firestore.DocumentSnapshot) ([]model.Location, error) {
		all, err := decodeLocations(docs)
		if err != nil {
			return nil, fmt.Errorf("decode box: %w", err)
		}
		out := all[:0]
		for _, l := range all {
			if box.Contains(geo.Point{Lat: l.Latitude, Lon: l.Longitude}) {
				out = append(out, l)
			}
		}
		return out, nil
	}
}
