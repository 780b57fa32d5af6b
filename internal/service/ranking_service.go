package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100
)

type LocationRank struct {
	Rank     int64
	Location model.Location
}

type UserRank struct {
	Rank          int64
	Profile       model.Profile
	IsCurrentUser bool
}

type RankingService interface {
	TopLocations(ctx context.Context, limit int) ([]LocationRank, error)
	WatchTopLocations(ctx context.Context, limit int) (*live.Subscription[[]LocationRank], error)
	// TopUsers returns the top limit users. When currentUID is set and that
	// user is not among them, their row follows with their actual rank.
	TopUsers(ctx context.Context, limit int, currentUID string) ([]UserRank, error)
	WatchTopUsers(ctx context.Context, limit int, currentUID string) (*live.Subscription[[]UserRank], error)
}

type rankingService struct {
	locations repository.LocationRepository
	profiles  repository.ProfileRepository
}

func NewRankingService(locations repository.LocationRepository, profiles repository.ProfileRepository) RankingService {
	return &rankingService{locations: locations, profiles: profiles}
}

// NormalizeLimit applies the default for 0 and rejects values outside
// 1..MaxRankingLimit.
func NormalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultRankingLimit, nil
	}
	if limit < 0 || limit > MaxRankingLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxRankingLimit)
	}
	return limit, nil
}

func (s *rankingService) TopLocations(ctx context.Context, limit int) ([]LocationRank, error) {
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	list, err := s.locations.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	return rankLocations(list), nil
}

func (s *rankingService) WatchTopLocations(ctx context.Context, limit int) (*live.Subscription[[]LocationRank], error) {
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	return live.Map(ctx, func(ctx context.Context) *live.Subscription[[]model.Location] {
		return s.locations.WatchTop(ctx, limit)
	}, rankLocations), nil
}

func rankLocations(list []model.Location) []LocationRank {
	out := make([]LocationRank, len(list))
	var prev int64
	for i, l := range list {
		prev = competitionRank(i, prev, i > 0 && l.Points == list[i-1].Points)
		out[i] = LocationRank{Rank: prev, Location: l}
	}
	return out
}

// competitionRank is the rank of the row at position i of a sorted list:
// equal points share the rank of the first row with those points, so a
// rank is always the number of rows with strictly more points plus one.
func competitionRank(i int, prev int64, tiedWithPrev bool) int64 {
	if tiedWithPrev {
		return prev
	}
	return int64(i + 1)
}

func (s *rankingService) TopUsers(ctx context.Context, limit int, currentUID string) ([]UserRank, error) {
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	var (
		top     []model.Profile
		current *model.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		top, err = s.profiles.Top(gctx, limit)
		return err
	})
	if currentUID != "" {
		g.Go(func() error {
			var err error
			current, err = s.currentProfile(gctx, currentUID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergeCurrentUser(top, current, limit, s.rankOf(ctx))
}

// WatchTopUsers re-reads the current user on every emission of the top list.
func (s *rankingService) WatchTopUsers(ctx context.Context, limit int, currentUID string) (*live.Subscription[[]UserRank], error) {
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	return live.Start(ctx, func(ctx context.Context, emit func([]UserRank) bool) error {
		in := s.profiles.WatchTop(ctx, limit)
		defer in.Stop()
		for top := range in.C() {
			var current *model.Profile
			if currentUID != "" {
				p, err := s.currentProfile(ctx, currentUID)
				if err != nil {
					return err
				}
				current = p
			}
			rows, err := MergeCurrentUser(top, current, limit, s.rankOf(ctx))
			if err != nil {
				return err
			}
			if !emit(rows) {
				return nil
			}
		}
		return in.Err()
	}), nil
}

func (s *rankingService) currentProfile(ctx context.Context, uid string) (*model.Profile, error) {
	p, err := s.profiles.FindByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *rankingService) rankOf(ctx context.Context) func(model.Profile) (int64, error) {
	return func(p model.Profile) (int64, error) {
		above, err := s.profiles.CountAbove(ctx, p.TotalPoints)
		if err != nil {
			return 0, err
		}
		return above + 1, nil
	}
}

// MergeCurrentUser merges a freshly read current profile into a top list that
// may hold a stale copy of it, re-sorts and keeps limit rows. If the current
// user does not make the cut, their row is appended after the top rows with
// the rank reported by rankOf. Users with equal points share a rank.
func MergeCurrentUser(top []model.Profile, current *model.Profile, limit int, rankOf func(model.Profile) (int64, error)) ([]UserRank, error) {
	rows := make([]model.Profile, 0, len(top)+1)
	for _, p := range top {
		if current != nil && p.UID == current.UID {
			continue
		}
		rows = append(rows, p)
	}
	if current != nil {
		rows = append(rows, *current)
	}
	sortProfiles(rows)

	out := make([]UserRank, 0, limit+1)
	seen := false
	var rank int64
	for i, p := range rows {
		if i == limit {
			break
		}
		rank = competitionRank(i, rank, i > 0 && p.TotalPoints == rows[i-1].TotalPoints)
		isCurrent := current != nil && p.UID == current.UID
		seen = seen || isCurrent
		out = append(out, UserRank{Rank: rank, Profile: p, IsCurrentUser: isCurrent})
	}
	if current != nil && !seen {
		rank, err := rankOf(*current)
		if err != nil {
			return nil, err
		}
		out = append(out, UserRank{Rank: rank, Profile: *current, IsCurrentUser: true})
	}
	return out, nil
}

func sortProfiles(list []model.Profile) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.UID < b.UID
	})
}
