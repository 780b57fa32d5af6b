package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document field names. FieldType is canonical; documents written by older
// clients carry the kind under legacyFieldType instead.
const (
	FieldType       = "type"
	legacyFieldType = "typeString"
)

// ToDoc renders the location as a flat document: shared fields plus the kind
// payload fields side by side.
func (l *Location) ToDoc() (map[string]interface{}, error) {
	if l.Details == nil {
		return nil, fmt.Errorf("%w: location has no details", ErrUnknownKind)
	}
	doc := map[string]interface{}{}
	raw, err := json.Marshal(l.Details)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["name"] = l.Name
	doc["description"] = l.Description
	doc["latitude"] = l.Latitude
	doc["longitude"] = l.Longitude
	doc["points"] = l.Points
	doc["userId"] = l.UserID
	doc[FieldType] = string(l.Details.Kind())
	if l.ImageURL != nil {
		doc["imageUrl"] = *l.ImageURL
	}
	if !l.CreatedAt.IsZero() {
		doc["createdAt"] = l.CreatedAt
	}
	return doc, nil
}

// LocationFromDoc is the inverse of ToDoc. It reads the kind from "type" and
// falls back to "typeString".
func LocationFromDoc(id string, doc map[string]interface{}) (*Location, error) {
	kindName := docString(doc, FieldType)
	if kindName == "" {
		kindName = docString(doc, legacyFieldType)
	}
	if kindName == "" {
		return nil, fmt.Errorf("%w: document %s has no type", ErrUnknownKind, id)
	}
	kind, err := ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", id, err)
	}
	details, err := DecodeDetails(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", id, err)
	}
	loc := &Location{
		ID:          id,
		Name:        docString(doc, "name"),
		Description: docString(doc, "description"),
		Latitude:    docFloat(doc, "latitude"),
		Longitude:   docFloat(doc, "longitude"),
		Points:      docInt(doc, "points"),
		UserID:      docString(doc, "userId"),
		ImageURL:    docStringPtr(doc, "imageUrl"),
		Type:        kind,
		Details:     details,
		CreatedAt:   docTime(doc, "createdAt"),
	}
	return loc, nil
}

func docString(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

func docStringPtr(doc map[string]interface{}, key string) *string {
	s, ok := doc[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func docFloat(doc map[string]interface{}, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func docInt(doc map[string]interface{}, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func docTime(doc map[string]interface{}, key string) time.Time {
	t, _ := doc[key].(time.Time)
	return t
}
