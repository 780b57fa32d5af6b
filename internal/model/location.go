package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LocationKind string

const (
	KindPlant        LocationKind = "Plant"
	KindMushroom     LocationKind = "Mushroom"
	KindPlantingSpot LocationKind = "Planting Spot"
)

var ErrUnknownKind = errors.New("unknown location kind")

// Kinds lists every location kind in display order.
var Kinds = []LocationKind{KindPlant, KindMushroom, KindPlantingSpot}

// ParseKind accepts the stored type name as well as the slug forms used in
// query strings ("plant", "planting_spot", "planting-spot").
func ParseKind(s string) (LocationKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case "plant", "plants":
		return KindPlant, nil
	case "mushroom", "mushrooms":
		return KindMushroom, nil
	case "planting spot", "planting spots", "plantingspot":
		return KindPlantingSpot, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Details is the kind-specific part of a location. Exactly one of
// PlantDetails, MushroomDetails or PlantingSpotDetails.
type Details interface {
	Kind() LocationKind
	isDetails()
}

type PlantDetails struct {
	ScientificName string `json:"scientificName"`
	CareTips       string `json:"careTips"`
}

type MushroomDetails struct {
	Edible  bool   `json:"isEdible"`
	Habitat string `json:"habitat"`
}

type PlantingSpotDetails struct {
	Fenced   bool   `json:"fenced"`
	SoilType string `json:"soilType"`
}

func (PlantDetails) Kind() LocationKind        { return KindPlant }
func (MushroomDetails) Kind() LocationKind     { return KindMushroom }
func (PlantingSpotDetails) Kind() LocationKind { return KindPlantingSpot }

func (PlantDetails) isDetails()        {}
func (MushroomDetails) isDetails()     {}
func (PlantingSpotDetails) isDetails() {}

// DecodeDetails builds the payload for kind from a JSON object. Unknown
// fields are ignored so the same object may carry the shared location fields.
func DecodeDetails(kind LocationKind, raw []byte) (Details, error) {
	switch kind {
	case KindPlant:
		var d PlantDetails
		return d, unmarshalPayload(raw, &d)
	case KindMushroom:
		var d MushroomDetails
		return d, unmarshalPayload(raw, &d)
	case KindPlantingSpot:
		var d PlantingSpotDetails
		return d, unmarshalPayload(raw, &d)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func unmarshalPayload(raw []byte, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode location payload: %w", err)
	}
	return nil
}

type Location struct {
	ID          string         `gorm:"primaryKey;size:64"`
	Name        string         `gorm:"size:120;not null"`
	Description string         `gorm:"type:text"`
	Latitude    float64        `gorm:"not null;index:idx_locations_lat_lon"`
	Longitude   float64        `gorm:"not null;index:idx_locations_lat_lon"`
	Points      int64          `gorm:"not null;index:idx_locations_points"`
	UserID      string         `gorm:"column:user_id;size:128;index"`
	ImageURL    *string        `gorm:"column:image_url;size:512"`
	Type        LocationKind   `gorm:"column:type;size:32;not null;index"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	Details     Details        `gorm:"-"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

func (Location) TableName() string {
	return "locations"
}

// Kind reports the location kind, falling back to the stored column when the
// payload has not been decoded.
func (l *Location) Kind() LocationKind {
	if l.Details != nil {
		return l.Details.Kind()
	}
	return l.Type
}

func (l *Location) BeforeSave(tx *gorm.DB) error {
	// Column-only updates go through here with an empty model.
	if l.Details == nil {
		return nil
	}
	raw, err := json.Marshal(l.Details)
	if err != nil {
		return err
	}
	l.Type = l.Details.Kind()
	l.Payload = datatypes.JSON(raw)
	return nil
}

func (l *Location) AfterFind(tx *gorm.DB) error {
	// Partial selects (e.g. owner lookups) carry no type column.
	if l.Type == "" {
		return nil
	}
	d, err := DecodeDetails(l.Type, l.Payload)
	if err != nil {
		return err
	}
	l.Details = d
	return nil
}
