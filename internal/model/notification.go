package model

import "time"

const NotificationPointsReceived = "points_received"

type Notification struct {
	ID         string     `gorm:"primaryKey;size:64"`
	UserUID    string     `gorm:"column:user_uid;size:128;index;not null"`
	Type       string     `gorm:"column:type;size:64;not null"`
	Title      string     `gorm:"column:title;size:255"`
	Body       string     `gorm:"column:body;type:text"`
	LocationID *string    `gorm:"column:location_id;size:64;index"`
	ActorUID   *string    `gorm:"column:actor_uid;size:128"`
	ReadAt     *time.Time `gorm:"column:read_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) ToDoc() map[string]interface{} {
	doc := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"body":      n.Body,
		"createdAt": n.CreatedAt,
	}
	if n.LocationID != nil {
		doc["locationId"] = *n.LocationID
	}
	if n.ActorUID != nil {
		doc["actorUid"] = *n.ActorUID
	}
	if n.ReadAt != nil {
		doc["readAt"] = *n.ReadAt
	}
	return doc
}

func NotificationFromDoc(id, userUID string, doc map[string]interface{}) *Notification {
	n := &Notification{
		ID:         id,
		UserUID:    userUID,
		Type:       docString(doc, "type"),
		Title:      docString(doc, "title"),
		Body:       docString(doc, "body"),
		LocationID: docStringPtr(doc, "locationId"),
		ActorUID:   docStringPtr(doc, "actorUid"),
		CreatedAt:  docTime(doc, "createdAt"),
	}
	if t, ok := doc["readAt"].(time.Time); ok {
		n.ReadAt = &t
	}
	return n
}
