package model

import "time"

// Profile is the public user record. TotalPoints is the sum of points received
// on the user's locations and is only changed by point awards.
type Profile struct {
	UID          string    `gorm:"column:uid;primaryKey;size:128"`
	Username     string    `gorm:"column:username;size:120;not null"`
	Email        string    `gorm:"column:email;size:255"`
	AvatarURL    *string   `gorm:"column:avatar_url;size:512"`
	FirstName    *string   `gorm:"column:first_name;size:120"`
	LastName     *string   `gorm:"column:last_name;size:120"`
	TotalPoints  int64     `gorm:"column:total_points;not null;index:idx_user_profiles_points"`
	BadgesEarned int       `gorm:"column:badges_earned;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "user_profiles"
}

const DefaultUsername = "N/A"

func (p *Profile) ToDoc() map[string]interface{} {
	doc := map[string]interface{}{
		"uid":          p.UID,
		"username":     p.Username,
		"email":        p.Email,
		"totalPoints":  p.TotalPoints,
		"badgesEarned": int64(p.BadgesEarned),
	}
	if p.AvatarURL != nil {
		doc["avatarUrl"] = *p.AvatarURL
	}
	if p.FirstName != nil {
		doc["firstName"] = *p.FirstName
	}
	if p.LastName != nil {
		doc["lastName"] = *p.LastName
	}
	if !p.CreatedAt.IsZero() {
		doc["createdAt"] = p.CreatedAt
	}
	return doc
}

func ProfileFromDoc(uid string, doc map[string]interface{}) *Profile {
	p := &Profile{
		UID:          uid,
		Username:     docString(doc, "username"),
		Email:        docString(doc, "email"),
		AvatarURL:    docStringPtr(doc, "avatarUrl"),
		FirstName:    docStringPtr(doc, "firstName"),
		LastName:     docStringPtr(doc, "lastName"),
		TotalPoints:  docInt(doc, "totalPoints"),
		BadgesEarned: int(docInt(doc, "badgesEarned")),
		CreatedAt:    docTime(doc, "createdAt"),
		UpdatedAt:    docTime(doc, "updatedAt"),
	}
	if p.Username == "" {
		p.Username = DefaultUsername
	}
	return p
}
