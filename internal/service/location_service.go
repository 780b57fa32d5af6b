package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/leaflog/leaflog-backend/internal/geo"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/logctx"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"github.com/leaflog/leaflog-backend/internal/storage"
)

const (
	MaxNameLen        = 120
	MaxDescriptionLen = 2000

	DefaultRadius = 5000.0
	MaxRadius     = 50000.0

	careTipsTimeout = 10 * time.Second
)

// CareTipsSuggester produces care tips for a plant. Optional.
type CareTipsSuggester interface {
	Suggest(ctx context.Context, name, scientificName, description string) (string, error)
}

type CreateLocationInput struct {
	Name        string
	Description string
	Latitude    float64
	Longitude   float64
	Details     model.Details
}

// NearbyQuery selects locations within Radius meters of Center, optionally
// of one Kind.
type NearbyQuery struct {
	Center geo.Point
	Radius float64
	Kind   model.LocationKind
}

type NearbyLocation struct {
	Location model.Location
	Distance float64
}

type LocationService interface {
	Create(ctx context.Context, ownerUID string, in CreateLocationInput) (*model.Location, error)
	Get(ctx context.Context, id string) (*model.Location, error)
	List(ctx context.Context, limit, offset int, kind model.LocationKind) ([]model.Location, int64, error)
	ListByOwner(ctx context.Context, uid string) ([]model.Location, error)
	OwnerStats(ctx context.Context, uid string) (repository.LocationStats, error)
	Nearby(ctx context.Context, q NearbyQuery) ([]NearbyLocation, error)
	WatchNearby(ctx context.Context, q NearbyQuery) (*live.Subscription[[]NearbyLocation], error)
	AttachImage(ctx context.Context, uid, id, contentType string, r io.Reader) (*model.Location, error)
}

type locationService struct {
	repo   repository.LocationRepository
	images storage.ImageHost
	care   CareTipsSuggester
}

// NewLocationService wires the location use cases. images and care may be
// nil, which disables uploads and care tip suggestions.
func NewLocationService(repo repository.LocationRepository, images storage.ImageHost, care CareTipsSuggester) LocationService {
	return &locationService{repo: repo, images: images, care: care}
}

func (s *locationService) Create(ctx context.Context, ownerUID string, in CreateLocationInput) (*model.Location, error) {
	if ownerUID == "" {
		return nil, ErrUnauthenticated
	}
	name := cleanText(in.Name)
	description := cleanText(in.Description)
	if name == "" || tooLong(name, MaxNameLen) {
		return nil, fmt.Errorf("%w: name is required and at most %d characters", ErrInvalidInput, MaxNameLen)
	}
	if tooLong(description, MaxDescriptionLen) {
		return nil, fmt.Errorf("%w: description is at most %d characters", ErrInvalidInput, MaxDescriptionLen)
	}
	if err := (geo.Point{Lat: in.Latitude, Lon: in.Longitude}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	details, err := cleanDetails(in.Details)
	if err != nil {
		return nil, err
	}

	loc := &model.Location{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		UserID:      ownerUID,
		Details:     details,
	}
	loc.Details = s.withCareTips(logctx.WithLocationID(ctx, loc.ID), loc)
	if err := s.repo.Create(ctx, loc); err != nil {
		return nil, err
	}
	log.Printf("[location] rid=%s stage=created id=%s kind=%s owner=%s", logctx.RID(ctx), loc.ID, loc.Kind(), ownerUID)
	return loc, nil
}

// withCareTips fills in missing plant care tips when a suggester is
// configured. Failures leave the details unchanged.
func (s *locationService) withCareTips(ctx context.Context, loc *model.Location) model.Details {
	plant, ok := loc.Details.(model.PlantDetails)
	if !ok || plant.CareTips != "" || s.care == nil {
		return loc.Details
	}
	ctx, cancel := context.WithTimeout(ctx, careTipsTimeout)
	defer cancel()
	tips, err := s.care.Suggest(ctx, loc.Name, plant.ScientificName, loc.Description)
	if err != nil {
		log.Printf("[location] rid=%s stage=care_tips_skip id=%s err=%v", logctx.RID(ctx), loc.ID, err)
		return loc.Details
	}
	plant.CareTips = tips
	return plant
}

func cleanDetails(d model.Details) (model.Details, error) {
	switch v := d.(type) {
	case model.PlantDetails:
		v.ScientificName = cleanText(v.ScientificName)
		v.CareTips = cleanText(v.CareTips)
		if tooLong(v.ScientificName, MaxNameLen) || tooLong(v.CareTips, MaxDescriptionLen) {
			return nil, fmt.Errorf("%w: plant details too long", ErrInvalidInput)
		}
		return v, nil
	case model.MushroomDetails:
		v.Habitat = cleanText(v.Habitat)
		if tooLong(v.Habitat, MaxNameLen) {
			return nil, fmt.Errorf("%w: habitat too long", ErrInvalidInput)
		}
		return v, nil
	case model.PlantingSpotDetails:
		v.SoilType = cleanText(v.SoilType)
		if tooLong(v.SoilType, MaxNameLen) {
			return nil, fmt.Errorf("%w: soil type too long", ErrInvalidInput)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidInput, model.ErrUnknownKind)
}

func (s *locationService) Get(ctx context.Context, id string) (*model.Location, error) {
	loc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	return loc, nil
}

func (s *locationService) List(ctx context.Context, limit, offset int, kind model.LocationKind) ([]model.Location, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset, kind)
}

func (s *locationService) ListByOwner(ctx context.Context, uid string) ([]model.Location, error) {
	return s.repo.ListByOwner(ctx, uid)
}

func (s *locationService) OwnerStats(ctx context.Context, uid string) (repository.LocationStats, error) {
	return s.repo.OwnerStats(ctx, uid)
}

func (q NearbyQuery) validate() error {
	if err := q.Center.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !(q.Radius > 0 && q.Radius <= MaxRadius) {
		return fmt.Errorf("%w: radius must be in (0, %.0f] meters", ErrInvalidInput, MaxRadius)
	}
	return nil
}

func (s *locationService) Nearby(ctx context.Context, q NearbyQuery) ([]NearbyLocation, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	candidates, err := s.repo.InBox(ctx, geo.BoundingBox(q.Center, q.Radius))
	if err != nil {
		return nil, err
	}
	return filterNearby(candidates, q), nil
}

// WatchNearby follows Nearby live. The box is fixed for the life of the
// subscription; a new center or radius needs a new subscription.
func (s *locationService) WatchNearby(ctx context.Context, q NearbyQuery) (*live.Subscription[[]NearbyLocation], error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	box := geo.BoundingBox(q.Center, q.Radius)
	return live.Map(ctx, func(ctx context.Context) *live.Subscription[[]model.Location] {
		return s.repo.WatchBox(ctx, box)
	}, func(list []model.Location) []NearbyLocation {
		return filterNearby(list, q)
	}), nil
}

// filterNearby keeps candidates within the radius, nearest first.
func filterNearby(candidates []model.Location, q NearbyQuery) []NearbyLocation {
	out := make([]NearbyLocation, 0, len(candidates))
	for _, loc := range candidates {
		if q.Kind != "" && loc.Kind() != q.Kind {
			continue
		}
		d := geo.Distance(q.Center, geo.Point{Lat: loc.Latitude, Lon: loc.Longitude})
		if d > q.Radius {
			continue
		}
		out = append(out, NearbyLocation{Location: loc, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Location.ID < out[j].Location.ID
	})
	return out
}

func (s *locationService) AttachImage(ctx context.Context, uid, id, contentType string, r io.Reader) (*model.Location, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	if s.images == nil {
		return nil, fmt.Errorf("image uploads are not configured")
	}
	loc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if loc.UserID != uid {
		return nil, ErrForbidden
	}
	objectPath, err := storage.LocationImagePath(id, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	url, err := s.images.Put(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetImageURL(ctx, id, url); err != nil {
		return nil, fromRepo(err)
	}
	loc.ImageURL = &url
	return loc, nil
}
