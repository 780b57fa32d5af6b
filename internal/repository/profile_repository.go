package repository

import (
	"context"
	"time"

	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	// Ensure stores p unless a profile with the same UID exists, and returns
	// the stored profile either way.
	Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error)
	FindByID(ctx context.Context, uid string) (*model.Profile, error)
	UpdateDetails(ctx context.Context, p *model.Profile) error
	SetAvatarURL(ctx context.Context, uid, avatarURL string) error
	Top(ctx context.Context, limit int) ([]model.Profile, error)
	CountAbove(ctx context.Context, points int64) (int64, error)
	WatchTop(ctx context.Context, limit int) *live.Subscription[[]model.Profile]
}

type profileRepository struct {
	db      *gorm.DB
	hub     *live.Hub
	refresh time.Duration
}

func NewProfileRepository(db *gorm.DB, hub *live.Hub, refresh time.Duration) ProfileRepository {
	return &profileRepository{db: db, hub: hub, refresh: refresh}
}

// Ensure inserts p, or fills identity fields of an existing profile that
// still hold placeholder values (a profile created by an award before its
// owner signed in). Points and user-edited fields are never touched.
func (r *profileRepository) Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			changed = true
			return nil
		}
		fills := []struct {
			skip  bool
			col   string
			value interface{}
			where string
			args  []interface{}
		}{
			{p.Username == "" || p.Username == model.DefaultUsername, "username", p.Username, "username = ?", []interface{}{model.DefaultUsername}},
			{p.Email == "", "email", p.Email, "(email = '' OR email IS NULL)", nil},
			{p.AvatarURL == nil, "avatar_url", p.AvatarURL, "avatar_url IS NULL", nil},
		}
		for _, f := range fills {
			if f.skip {
				continue
			}
			res := tx.Model(&model.Profile{}).
				Where("uid = ?", p.UID).
				Where(f.where, f.args...).
				UpdateColumn(f.col, f.value)
			if res.Error != nil {
				return res.Error
			}
			changed = changed || res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		r.hub.Publish(TopicProfiles)
	}
	return r.FindByID(ctx, p.UID)
}

func (r *profileRepository) FindByID(ctx context.Context, uid string) (*model.Profile, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Profile
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// UpdateDetails writes the user-editable fields only. Points and badges are
// owned by the award path.
func (r *profileRepository) UpdateDetails(ctx context.Context, p *model.Profile) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("uid = ?", p.UID).
		Updates(map[string]interface{}{
			"username":   p.Username,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.hub.Publish(TopicProfiles)
	return nil
}

func (r *profileRepository) SetAvatarURL(ctx context.Context, uid, avatarURL string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("uid = ?", uid).
		Update("avatar_url", avatarURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.hub.Publish(TopicProfiles)
	return nil
}

func (r *profileRepository) Top(ctx context.Context, limit int) ([]model.Profile, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Profile
	if err := r.db.WithContext(ctx).
		Order("total_points DESC").Order("created_at ASC").Order("uid ASC").
		Limit(clampLimit(limit)).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *profileRepository) CountAbove(ctx context.Context, points int64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("total_points > ?", points).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *profileRepository) WatchTop(ctx context.Context, limit int) *live.Subscription[[]model.Profile] {
	return live.Watch(ctx, r.hub, TopicProfiles, r.refresh, func(ctx context.Context) ([]model.Profile, error) {
		return r.Top(ctx, limit)
	})
}
