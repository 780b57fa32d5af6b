package service

import (
	"errors"

	"github.com/leaflog/leaflog-backend/internal/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyInteracted = errors.New("already_interacted")
	ErrSelfAward         = errors.New("cannot award your own location")
	ErrUnauthenticated   = errors.New("not logged in")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
)

// fromRepo maps store errors onto service errors.
func fromRepo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyInteracted):
		return ErrAlreadyInteracted
	}
	return err
}
