package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrDBNotReady        = errors.New("database not initialized")
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyInteracted = errors.New("already interacted")
)

// Live query topics published after writes.
const (
	TopicLocations = "locations"
	TopicProfiles  = "profiles"
)

const maxLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return maxLimit
	}
	return limit
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
