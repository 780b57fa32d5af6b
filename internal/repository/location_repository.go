package repository

import (
	"context"
	"time"

	"github.com/leaflog/leaflog-backend/internal/geo"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
	"gorm.io/gorm"
)

type LocationStats struct {
	Count  int64
	Points int64
}

type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	FindByID(ctx context.Context, id string) (*model.Location, error)
	List(ctx context.Context, limit, offset int, kind model.LocationKind) ([]model.Location, int64, error)
	ListByOwner(ctx context.Context, uid string) ([]model.Location, error)
	Top(ctx context.Context, limit int) ([]model.Location, error)
	InBox(ctx context.Context, box geo.Box) ([]model.Location, error)
	SetImageURL(ctx context.Context, id, imageURL string) error
	OwnerStats(ctx context.Context, uid string) (LocationStats, error)
	WatchTop(ctx context.Context, limit int) *live.Subscription[[]model.Location]
	WatchBox(ctx context.Context, box geo.Box) *live.Subscription[[]model.Location]
}

type locationRepository struct {
	db      *gorm.DB
	hub     *live.Hub
	refresh time.Duration
}

func NewLocationRepository(db *gorm.DB, hub *live.Hub, refresh time.Duration) LocationRepository {
	return &locationRepository{db: db, hub: hub, refresh: refresh}
}

func (r *locationRepository) Create(ctx context.Context, loc *model.Location) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if err := r.db.WithContext(ctx).Create(loc).Error; err != nil {
		return err
	}
	r.hub.Publish(TopicLocations)
	return nil
}

func (r *locationRepository) FindByID(ctx context.Context, id string) (*model.Location, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var loc model.Location
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error; err != nil {
		return nil, translate(err)
	}
	return &loc, nil
}

func (r *locationRepository) List(ctx context.Context, limit, offset int, kind model.LocationKind) ([]model.Location, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var (
		list  []model.Location
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.Location{})
	if kind != "" {
		q = q.Where("type = ?", kind)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Order("id ASC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *locationRepository) ListByOwner(ctx context.Context, uid string) ([]model.Location, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Location
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Top orders by points, then by insertion order.
func (r *locationRepository) Top(ctx context.Context, limit int) ([]model.Location, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Location
	if err := r.db.WithContext(ctx).
		Order("points DESC").Order("created_at ASC").Order("id ASC").
		Limit(clampLimit(limit)).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *locationRepository) InBox(ctx context.Context, box geo.Box) ([]model.Location, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat)
	if box.Wraps() {
		q = q.Where("(longitude >= ? OR longitude <= ?)", box.MinLon, box.MaxLon)
	} else {
		q = q.Where("longitude BETWEEN ? AND ?", box.MinLon, box.MaxLon)
	}
	var list []model.Location
	if err := q.Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *locationRepository) SetImageURL(ctx context.Context, id, imageURL string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Location{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"image_url":  imageURL,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.hub.Publish(TopicLocations)
	return nil
}

func (r *locationRepository) OwnerStats(ctx context.Context, uid string) (LocationStats, error) {
	if r.db == nil {
		return LocationStats{}, ErrDBNotReady
	}
	var stats LocationStats
	if err := r.db.WithContext(ctx).
		Model(&model.Location{}).
		Select("COUNT(*) AS count, COALESCE(SUM(points), 0) AS points").
		Where("user_id = ?", uid).
		Scan(&stats).Error; err != nil {
		return LocationStats{}, err
	}
	return stats, nil
}

func (r *locationRepository) WatchTop(ctx context.Context, limit int) *live.Subscription[[]model.Location] {
	return live.Watch(ctx, r.hub, TopicLocations, r.refresh, func(ctx context.Context) ([]model.Location, error) {
		return r.Top(ctx, limit)
	})
}

func (r *locationRepository) WatchBox(ctx context.Context, box geo.Box) *live.Subscription[[]model.Location] {
	return live.Watch(ctx, r.hub, TopicLocations, r.refresh, func(ctx context.Context) ([]model.Location, error) {
		return r.InBox(ctx, box)
	})
}
