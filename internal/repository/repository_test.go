package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leaflog/leaflog-backend/internal/dbtest"
	"github.com/leaflog/leaflog-backend/internal/geo"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
)

type stores struct {
	hub           *live.Hub
	locations     LocationRepository
	profiles      ProfileRepository
	interactions  InteractionRepository
	notifications NotificationRepository
}

func newStores(t *testing.T) stores {
	t.Helper()
	gdb := dbtest.New(t)
	hub := live.NewHub()
	return stores{
		hub:           hub,
		locations:     NewLocationRepository(gdb, hub, 0),
		profiles:      NewProfileRepository(gdb, hub, 0),
		interactions:  NewInteractionRepository(gdb, hub),
		notifications: NewNotificationRepository(gdb),
	}
}

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seedLocation(t *testing.T, repo LocationRepository, id, owner string, lat, lon float64, points int64, minute int) *model.Location {
	t.Helper()
	loc := &model.Location{
		ID:        id,
		Name:      "loc " + id,
		Latitude:  lat,
		Longitude: lon,
		Points:    points,
		UserID:    owner,
		Details:   model.PlantDetails{ScientificName: "Quercus " + id},
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
	}
	if err := repo.Create(context.Background(), loc); err != nil {
		t.Fatalf("create location %s: %v", id, err)
	}
	return loc
}

func seedProfile(t *testing.T, repo ProfileRepository, uid string, points int64) {
	t.Helper()
	if _, err := repo.Ensure(context.Background(), &model.Profile{UID: uid, Username: uid, TotalPoints: points}); err != nil {
		t.Fatalf("ensure profile %s: %v", uid, err)
	}
}

func TestLocationCreateAndFind(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	want := &model.Location{
		ID:          "mush-1",
		Name:        "Chanterelle patch",
		Description: "under beeches",
		Latitude:    44.7,
		Longitude:   20.4,
		UserID:      "alice",
		Details:     model.MushroomDetails{Edible: true, Habitat: "beech"},
		CreatedAt:   base,
	}
	if err := s.locations.Create(ctx, want); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.locations.FindByID(ctx, "mush-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Kind() != model.KindMushroom || got.Type != model.KindMushroom {
		t.Fatalf("kind=%q type=%q", got.Kind(), got.Type)
	}
	if diff := cmp.Diff(want.Details, got.Details); diff != "" {
		t.Fatalf("details (-want +got):\n%s", diff)
	}
	if got.Name != want.Name || got.Description != want.Description || got.UserID != "alice" {
		t.Fatalf("fields lost: %+v", got)
	}
	if _, err := s.locations.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: err=%v", err)
	}
}

func TestLocationTopOrdersByPointsThenInsertion(t *testing.T) {
	s := newStores(t)
	seedLocation(t, s.locations, "a", "u", 0, 0, 5, 0)
	seedLocation(t, s.locations, "b", "u", 0, 0, 9, 1)
	seedLocation(t, s.locations, "c", "u", 0, 0, 5, 2)
	seedLocation(t, s.locations, "d", "u", 0, 0, 1, 3)

	top, err := s.locations.Top(context.Background(), 3)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	var ids []string
	for _, l := range top {
		ids = append(ids, l.ID)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, ids); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestLocationListFiltersKind(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	seedLocation(t, s.locations, "p1", "u", 0, 0, 0, 0)
	spot := &model.Location{ID: "s1", Name: "spot", UserID: "u", Details: model.PlantingSpotDetails{SoilType: "sand"}, CreatedAt: base}
	if err := s.locations.Create(ctx, spot); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, total, err := s.locations.List(ctx, 10, 0, model.KindPlantingSpot)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != "s1" {
		t.Fatalf("total=%d list=%+v", total, list)
	}
	_, total, err = s.locations.List(ctx, 10, 0, "")
	if err != nil || total != 2 {
		t.Fatalf("unfiltered total=%d err=%v", total, err)
	}
}

func TestLocationInBox(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	seedLocation(t, s.locations, "inside", "u", 44.80, 20.45, 0, 0)
	seedLocation(t, s.locations, "north", "u", 45.50, 20.45, 0, 1)
	seedLocation(t, s.locations, "east", "u", 44.80, 21.50, 0, 2)
	seedLocation(t, s.locations, "dateline", "u", 0, -179.99, 0, 3)

	got, err := s.locations.InBox(ctx, geo.BoundingBox(geo.Point{Lat: 44.79, Lon: 20.46}, 5000))
	if err != nil {
		t.Fatalf("InBox: %v", err)
	}
	if len(got) != 1 || got[0].ID != "inside" {
		t.Fatalf("got %+v", got)
	}

	got, err = s.locations.InBox(ctx, geo.BoundingBox(geo.Point{Lat: 0, Lon: 179.99}, 5000))
	if err != nil {
		t.Fatalf("InBox wrap: %v", err)
	}
	if len(got) != 1 || got[0].ID != "dateline" {
		t.Fatalf("wrap got %+v", got)
	}
}

func TestLocationSetImageAndStats(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	seedLocation(t, s.locations, "a", "alice", 0, 0, 4, 0)
	seedLocation(t, s.locations, "b", "alice", 0, 0, 6, 1)
	seedLocation(t, s.locations, "c", "bob", 0, 0, 1, 2)

	if err := s.locations.SetImageURL(ctx, "a", "https://img/a.jpg"); err != nil {
		t.Fatalf("SetImageURL: %v", err)
	}
	got, err := s.locations.FindByID(ctx, "a")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ImageURL == nil || *got.ImageURL != "https://img/a.jpg" {
		t.Fatalf("image=%v", got.ImageURL)
	}
	if got.Details == nil {
		t.Fatalf("details lost after column update")
	}
	if err := s.locations.SetImageURL(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: err=%v", err)
	}

	stats, err := s.locations.OwnerStats(ctx, "alice")
	if err != nil {
		t.Fatalf("OwnerStats: %v", err)
	}
	if stats != (LocationStats{Count: 2, Points: 10}) {
		t.Fatalf("stats=%+v", stats)
	}
	stats, err = s.locations.OwnerStats(ctx, "nobody")
	if err != nil || stats != (LocationStats{}) {
		t.Fatalf("empty stats=%+v err=%v", stats, err)
	}
}

func TestProfileEnsureIsIdempotent(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	first, err := s.profiles.Ensure(ctx, &model.Profile{UID: "alice", Username: "Alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	second, err := s.profiles.Ensure(ctx, &model.Profile{UID: "alice", Username: "Someone else", TotalPoints: 99})
	if err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	if second.Username != "Alice" || second.TotalPoints != 0 || second.Email != first.Email {
		t.Fatalf("existing profile overwritten: %+v", second)
	}
}

func TestProfileUpdateDetailsKeepsPoints(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	seedProfile(t, s.profiles, "alice", 12)
	first := "Alice"
	if err := s.profiles.UpdateDetails(ctx, &model.Profile{UID: "alice", Username: "ally", FirstName: &first, TotalPoints: 1000}); err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if err := s.profiles.SetAvatarURL(ctx, "alice", "https://img/alice.png"); err != nil {
		t.Fatalf("SetAvatarURL: %v", err)
	}
	got, err := s.profiles.FindByID(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Username != "ally" || got.FirstName == nil || *got.FirstName != "Alice" || got.TotalPoints != 12 {
		t.Fatalf("got %+v", got)
	}
	if got.AvatarURL == nil || *got.AvatarURL != "https://img/alice.png" {
		t.Fatalf("avatar=%v", got.AvatarURL)
	}
	if err := s.profiles.UpdateDetails(ctx, &model.Profile{UID: "ghost", Username: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ghost: err=%v", err)
	}
}

func TestProfileTopAndCountAbove(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	for i, pts := range []int64{30, 10, 50, 20} {
		seedProfile(t, s.profiles, fmt.Sprintf("u%d", i), pts)
	}
	top, err := s.profiles.Top(ctx, 2)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 || top[0].TotalPoints != 50 || top[1].TotalPoints != 30 {
		t.Fatalf("top=%+v", top)
	}
	n, err := s.profiles.CountAbove(ctx, 20)
	if err != nil || n != 2 {
		t.Fatalf("CountAbove(20)=%d err=%v", n, err)
	}
}

func TestAwardAppliesAllEffects(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	seedProfile(t, s.profiles, "owner", 0)
	seedProfile(t, s.profiles, "fan", 0)
	seedLocation(t, s.locations, "oak", "owner", 0, 0, 0, 0)

	award, err := s.interactions.Award(ctx, "oak", "fan", 1)
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if award.OwnerUID != "owner" || award.Interaction.PointsGiven != 1 {
		t.Fatalf("award=%+v", award)
	}
	assertPoints(t, s, "oak", 1, "owner", 1)

	fan, _ := s.profiles.FindByID(ctx, "fan")
	if fan.TotalPoints != 0 {
		t.Fatalf("awarder must not receive points, got %d", fan.TotalPoints)
	}
	ok, err := s.interactions.Exists(ctx, "oak", "fan")
	if err != nil || !ok {
		t.Fatalf("Exists=%v err=%v", ok, err)
	}
	ok, err = s.interactions.Exists(ctx, "oak", "owner")
	if err != nil || ok {
		t.Fatalf("Exists(owner)=%v err=%v", ok, err)
	}
}

func TestAwardTwiceIsNoop(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	seedProfile(t, s.profiles, "owner", 0)
	seedLocation(t, s.locations, "oak", "owner", 0, 0, 0, 0)

	if _, err := s.interactions.Award(ctx, "oak", "fan", 1); err != nil {
		t.Fatalf("first Award: %v", err)
	}
	if _, err := s.interactions.Award(ctx, "oak", "fan", 1); !errors.Is(err, ErrAlreadyInteracted) {
		t.Fatalf("second Award err=%v want ErrAlreadyInteracted", err)
	}
	assertPoints(t, s, "oak", 1, "owner", 1)
}

func TestAwardConcurrentSamePair(t *testing.T) {
	s := newStores(t)
	seedProfile(t, s.profiles, "owner", 0)
	seedLocation(t, s.locations, "oak", "owner", 0, 0, 0, 0)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.interactions.Award(context.Background(), "oak", "fan", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyInteracted):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || rejected != n-1 {
		t.Fatalf("ok=%d rejected=%d", ok, rejected)
	}
	assertPoints(t, s, "oak", 1, "owner", 1)
}

func TestAwardDistinctUsersAccumulate(t *testing.T) {
	s := newStores(t)
	seedProfile(t, s.profiles, "owner", 0)
	seedLocation(t, s.locations, "oak", "owner", 0, 0, 0, 0)
	seedLocation(t, s.locations, "elm", "owner", 0, 0, 0, 1)
	for _, uid := range []string{"a", "b", "c"} {
		if _, err := s.interactions.Award(context.Background(), "oak", uid, 1); err != nil {
			t.Fatalf("Award %s: %v", uid, err)
		}
	}
	if _, err := s.interactions.Award(context.Background(), "elm", "a", 1); err != nil {
		t.Fatalf("Award elm: %v", err)
	}
	assertPoints(t, s, "oak", 3, "owner", 4)
}

func TestAwardUnknownLocation(t *testing.T) {
	s := newStores(t)
	if _, err := s.interactions.Award(context.Background(), "missing", "fan", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	ok, err := s.interactions.Exists(context.Background(), "missing", "fan")
	if err != nil || ok {
		t.Fatalf("no record must be left behind: ok=%v err=%v", ok, err)
	}
}

func TestAwardCreatesMissingOwnerProfile(t *testing.T) {
	s := newStores(t)
	seedLocation(t, s.locations, "oak", "legacy-owner", 0, 0, 0, 0)
	if _, err := s.interactions.Award(context.Background(), "oak", "fan", 2); err != nil {
		t.Fatalf("Award: %v", err)
	}
	assertPoints(t, s, "oak", 2, "legacy-owner", 2)
}

func TestEnsureFillsAwardPlaceholder(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	seedLocation(t, s.locations, "oak", "olive", 0, 0, 0, 0)
	if _, err := s.interactions.Award(ctx, "oak", "fan", 1); err != nil {
		t.Fatalf("Award: %v", err)
	}
	got, err := s.profiles.Ensure(ctx, &model.Profile{UID: "olive", Username: "Olive", Email: "olive@example.com"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if got.Username != "Olive" || got.Email != "olive@example.com" || got.TotalPoints != 1 || got.AvatarURL != nil {
		t.Fatalf("got %+v", got)
	}
}

func TestWatchTopSeesAward(t *testing.T) {
	s := newStores(t)
	seedProfile(t, s.profiles, "owner", 0)
	seedLocation(t, s.locations, "oak", "owner", 0, 0, 0, 0)

	sub := s.locations.WatchTop(context.Background(), 5)
	defer sub.Stop()
	first := <-sub.C()
	if len(first) != 1 || first[0].Points != 0 {
		t.Fatalf("initial=%+v", first)
	}
	if _, err := s.interactions.Award(context.Background(), "oak", "fan", 1); err != nil {
		t.Fatalf("Award: %v", err)
	}
	select {
	case next := <-sub.C():
		if len(next) != 1 || next[0].Points != 1 {
			t.Fatalf("after award=%+v", next)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no emission after award")
	}
}

func TestNotifications(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	loc := "oak"
	for i := 0; i < 3; i++ {
		n := &model.Notification{UserUID: "owner", Type: model.NotificationPointsReceived, Title: "t", LocationID: &loc, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.notifications.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if n.ID == "" {
			t.Fatalf("id not assigned")
		}
	}
	list, err := s.notifications.ListByUser(ctx, "owner", true, 2)
	if err != nil || len(list) != 2 {
		t.Fatalf("list=%d err=%v", len(list), err)
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}
	if cnt, _ := s.notifications.CountUnread(ctx, "owner"); cnt != 3 {
		t.Fatalf("unread=%d", cnt)
	}
	if err := s.notifications.MarkAllRead(ctx, "owner"); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if cnt, _ := s.notifications.CountUnread(ctx, "owner"); cnt != 0 {
		t.Fatalf("unread after mark=%d", cnt)
	}
	list, _ = s.notifications.ListByUser(ctx, "owner", false, 0)
	if len(list) != 3 || list[0].ReadAt == nil {
		t.Fatalf("read list=%+v", list)
	}
}

func assertPoints(t *testing.T, s stores, locationID string, locPoints int64, ownerUID string, ownerPoints int64) {
	t.Helper()
	ctx := context.Background()
	loc, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		t.Fatalf("FindByID(%s): %v", locationID, err)
	}
	if loc.Points != locPoints {
		t.Fatalf("location %s points=%d want %d", locationID, loc.Points, locPoints)
	}
	owner, err := s.profiles.FindByID(ctx, ownerUID)
	if err != nil {
		t.Fatalf("FindByID(%s): %v", ownerUID, err)
	}
	if owner.TotalPoints != ownerPoints {
		t.Fatalf("owner %s points=%d want %d", ownerUID, owner.TotalPoints, ownerPoints)
	}
}
