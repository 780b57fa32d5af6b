package service

import (
	"context"
	"fmt"
	"io"

	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"github.com/leaflog/leaflog-backend/internal/storage"
)

// AuthUser is what the identity provider knows about a signed-in user.
type AuthUser struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

type ProfileUpdate struct {
	Username  string
	FirstName *string
	LastName  *string
}

type ProfileService interface {
	// Ensure returns the caller's profile, creating it from the identity
	// provider's record on first use.
	Ensure(ctx context.Context, user AuthUser) (*model.Profile, error)
	Get(ctx context.Context, uid string) (*model.Profile, error)
	Update(ctx context.Context, uid string, in ProfileUpdate) (*model.Profile, error)
	SetAvatar(ctx context.Context, uid, contentType string, r io.Reader) (*model.Profile, error)
}

type profileService struct {
	repo   repository.ProfileRepository
	images storage.ImageHost
}

func NewProfileService(repo repository.ProfileRepository, images storage.ImageHost) ProfileService {
	return &profileService{repo: repo, images: images}
}

func (s *profileService) Ensure(ctx context.Context, user AuthUser) (*model.Profile, error) {
	if user.UID == "" {
		return nil, ErrUnauthenticated
	}
	username := cleanText(user.DisplayName)
	if username == "" || tooLong(username, MaxNameLen) {
		username = model.DefaultUsername
	}
	p := &model.Profile{
		UID:      user.UID,
		Username: username,
		Email:    user.Email,
	}
	if user.PhotoURL != "" {
		photo := user.PhotoURL
		p.AvatarURL = &photo
	}
	return s.repo.Ensure(ctx, p)
}

func (s *profileService) Get(ctx context.Context, uid string) (*model.Profile, error) {
	if uid == "" {
		return nil, ErrNotFound
	}
	p, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, fromRepo(err)
	}
	return p, nil
}

func (s *profileService) Update(ctx context.Context, uid string, in ProfileUpdate) (*model.Profile, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	username := cleanText(in.Username)
	if username == "" || tooLong(username, MaxNameLen) {
		return nil, fmt.Errorf("%w: username is required and at most %d characters", ErrInvalidInput, MaxNameLen)
	}
	first, err := cleanOptional(in.FirstName)
	if err != nil {
		return nil, err
	}
	last, err := cleanOptional(in.LastName)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDetails(ctx, &model.Profile{UID: uid, Username: username, FirstName: first, LastName: last}); err != nil {
		return nil, fromRepo(err)
	}
	return s.Get(ctx, uid)
}

func cleanOptional(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := cleanText(*s)
	if v == "" {
		return nil, nil
	}
	if tooLong(v, MaxNameLen) {
		return nil, fmt.Errorf("%w: name is at most %d characters", ErrInvalidInput, MaxNameLen)
	}
	return &v, nil
}

func (s *profileService) SetAvatar(ctx context.Context, uid, contentType string, r io.Reader) (*model.Profile, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	if s.images == nil {
		return nil, fmt.Errorf("image uploads are not configured")
	}
	objectPath, err := storage.AvatarPath(uid, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	url, err := s.images.Put(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAvatarURL(ctx, uid, url); err != nil {
		return nil, fromRepo(err)
	}
	return s.Get(ctx, uid)
}
