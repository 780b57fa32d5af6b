package model

import "time"

// Interaction records that UserID already gave points to LocationID. One row
// per pair, never updated or deleted.
type Interaction struct {
	LocationID  string    `gorm:"column:location_id;primaryKey;size:64"`
	UserID      string    `gorm:"column:user_id;primaryKey;size:128"`
	PointsGiven int64     `gorm:"column:points_given;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Interaction) TableName() string {
	return "location_interactions"
}

func (i *Interaction) ToDoc() map[string]interface{} {
	return map[string]interface{}{
		"locationId":  i.LocationID,
		"userId":      i.UserID,
		"pointsGiven": i.PointsGiven,
		"createdAt":   i.CreatedAt,
	}
}
