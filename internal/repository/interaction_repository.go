package repository

import (
	"context"
	"errors"

	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Award is the committed result of a points award.
type Award struct {
	Interaction model.Interaction
	OwnerUID    string
}

type InteractionRepository interface {
	// Award records that userID gives points to locationID and adds points to
	// the location and to its owner in one transaction. It returns
	// ErrAlreadyInteracted, with nothing written, when the pair already has a
	// record.
	Award(ctx context.Context, locationID, userID string, points int64) (*Award, error)
	Exists(ctx context.Context, locationID, userID string) (bool, error)
}

type interactionRepository struct {
	db  *gorm.DB
	hub *live.Hub
}

func NewInteractionRepository(db *gorm.DB, hub *live.Hub) InteractionRepository {
	return &interactionRepository{db: db, hub: hub}
}

func (r *interactionRepository) Award(ctx context.Context, locationID, userID string, points int64) (*Award, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var out Award
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loc model.Location
		if err := tx.Select("id", "user_id").Where("id = ?", locationID).First(&loc).Error; err != nil {
			return err
		}

		// The (location_id, user_id) primary key is the serialization point:
		// of concurrent inserts for one pair exactly one affects a row.
		rec := model.Interaction{LocationID: locationID, UserID: userID, PointsGiven: points}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyInteracted
		}

		if err := tx.Model(&model.Location{}).
			Where("id = ?", locationID).
			UpdateColumn("points", gorm.Expr("points + ?", points)).Error; err != nil {
			return err
		}

		if loc.UserID != "" {
			owner := model.Profile{UID: loc.UserID, Username: model.DefaultUsername, TotalPoints: points}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "uid"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"total_points": gorm.Expr("total_points + ?", points)}),
			}).Create(&owner).Error; err != nil {
				return err
			}
		}

		out = Award{Interaction: rec, OwnerUID: loc.UserID}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyInteracted) {
			return nil, err
		}
		return nil, translate(err)
	}
	r.hub.Publish(TopicLocations, TopicProfiles)
	return &out, nil
}

func (r *interactionRepository) Exists(ctx context.Context, locationID, userID string) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&model.Interaction{}).
		Where("location_id = ? AND user_id = ?", locationID, userID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
