package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/leaflog/leaflog-backend/internal/config"
	"github.com/leaflog/leaflog-backend/internal/db"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"github.com/leaflog/leaflog-backend/internal/repository/docstore"
	"github.com/leaflog/leaflog-backend/internal/storage"
	"google.golang.org/api/option"
)

type stores struct {
	locations    repository.LocationRepository
	profiles     repository.ProfileRepository
	interactions repository.InteractionRepository
}

type seedUser struct {
	UID      string
	Username string
}

type seedLocation struct {
	Owner   string
	Name    string
	Desc    string
	Lat     float64
	Lon     float64
	Details model.Details
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	st, closeFn, err := openStores(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	canSeed, err := shouldSeed(ctx, st.locations)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("locations already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	var images storage.ImageHost
	if cfg.StorageBucket != "" && strings.EqualFold(os.Getenv("SEED_IMAGES"), "true") {
		sc, err := gcs.NewClient(ctx, opts...)
		if err != nil {
			return fmt.Errorf("storage client: %w", err)
		}
		defer sc.Close()
		images = storage.NewGCSImageHost(sc, cfg.StorageBucket)
	}

	users := buildSeedUsers()
	for _, u := range users {
		if _, err := st.profiles.Ensure(ctx, &model.Profile{UID: u.UID, Username: u.Username}); err != nil {
			return fmt.Errorf("ensure profile %s: %w", u.UID, err)
		}
	}

	var created []*model.Location
	for idx, sl := range buildSeedLocations() {
		loc := &model.Location{
			ID:          uuid.NewString(),
			Name:        sl.Name,
			Description: sl.Desc,
			Latitude:    sl.Lat,
			Longitude:   sl.Lon,
			UserID:      sl.Owner,
			Details:     sl.Details,
		}
		if err := st.locations.Create(ctx, loc); err != nil {
			return fmt.Errorf("create location %q: %w", sl.Name, err)
		}
		if images != nil {
			if err := attachPlaceholder(ctx, images, st.locations, loc, idx+1); err != nil {
				log.Printf("placeholder image failed for %s: %v", loc.ID, err)
			}
		}
		created = append(created, loc)
	}

	// Users award every other location they do not own so the rankings
	// are not flat.
	awards := 0
	for i, loc := range created {
		for j, u := range users {
			if u.UID == loc.UserID || (i+j)%2 == 1 {
				continue
			}
			_, err := st.interactions.Award(ctx, loc.ID, u.UID, cfg.PointsIncrement)
			switch {
			case errors.Is(err, repository.ErrAlreadyInteracted):
			case err != nil:
				return fmt.Errorf("award %s by %s: %w", loc.ID, u.UID, err)
			default:
				awards++
			}
		}
	}

	log.Printf("seeded %d users, %d locations, %d awards", len(users), len(created), awards)
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, opts []option.ClientOption) (stores, func(), error) {
	if cfg.StoreBackend == config.BackendFirestore {
		client, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, opts...)
		if err != nil {
			return stores{}, nil, fmt.Errorf("firestore: %w", err)
		}
		return stores{
			locations:    docstore.NewLocationRepository(client),
			profiles:     docstore.NewProfileRepository(client),
			interactions: docstore.NewInteractionRepository(client),
		}, func() { _ = client.Close() }, nil
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return stores{}, nil, fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return stores{}, nil, fmt.Errorf("migrate: %w", err)
	}
	hub := live.NewHub()
	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return stores{
		locations:    repository.NewLocationRepository(gdb, hub, 0),
		profiles:     repository.NewProfileRepository(gdb, hub, 0),
		interactions: repository.NewInteractionRepository(gdb, hub),
	}, closeFn, nil
}

func buildSeedUsers() []seedUser {
	return []seedUser{
		{UID: "seed-ana", Username: "Ana"},
		{UID: "seed-marko", Username: "Marko"},
		{UID: "seed-jelena", Username: "Jelena"},
		{UID: "seed-stefan", Username: "Stefan"},
	}
}

func buildSeedLocations() []seedLocation {
	return []seedLocation{
		{Owner: "seed-ana", Name: "Old linden", Desc: "Large linden by the fortress wall.", Lat: 44.8231, Lon: 20.4506,
			Details: model.PlantDetails{ScientificName: "Tilia cordata", CareTips: "Water young trees in dry summers."}},
		{Owner: "seed-ana", Name: "Chanterelle patch", Desc: "Under beeches after rain.", Lat: 44.7012, Lon: 20.5183,
			Details: model.MushroomDetails{Edible: true, Habitat: "beech forest"}},
		{Owner: "seed-marko", Name: "Wild garlic", Desc: "Carpet of ramsons along the creek.", Lat: 44.7598, Lon: 20.4127,
			Details: model.PlantDetails{ScientificName: "Allium ursinum"}},
		{Owner: "seed-marko", Name: "Fly agaric", Desc: "Do not pick.", Lat: 44.6905, Lon: 20.4711,
			Details: model.MushroomDetails{Edible: false, Habitat: "birch and pine"}},
		{Owner: "seed-jelena", Name: "Community bed", Desc: "Free plot behind the school.", Lat: 44.8123, Lon: 20.4689,
			Details: model.PlantingSpotDetails{Fenced: true, SoilType: "loam"}},
		{Owner: "seed-jelena", Name: "Riverbank spot", Desc: "Sandy bank, good for willows.", Lat: 44.8302, Lon: 20.4159,
			Details: model.PlantingSpotDetails{Fenced: false, SoilType: "sand"}},
		{Owner: "seed-stefan", Name: "Elder bush", Desc: "Flowers in late May.", Lat: 44.7866, Lon: 20.4489,
			Details: model.PlantDetails{ScientificName: "Sambucus nigra"}},
	}
}

func attachPlaceholder(ctx context.Context, images storage.ImageHost, locations repository.LocationRepository, loc *model.Location, idx int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, picsumURL(string(loc.Kind()), idx), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch placeholder: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("placeholder status %d", resp.StatusCode)
	}
	path, err := storage.LocationImagePath(loc.ID, "image/jpeg")
	if err != nil {
		return err
	}
	url, err := images.Put(ctx, path, "image/jpeg", resp.Body)
	if err != nil {
		return err
	}
	return locations.SetImageURL(ctx, loc.ID, url)
}

func shouldSeed(ctx context.Context, locations repository.LocationRepository) (bool, error) {
	_, total, err := locations.List(ctx, 1, 0, "")
	if err != nil {
		return false, fmt.Errorf("count locations: %w", err)
	}
	if total == 0 {
		return true, nil
	}
	force := os.Getenv("FORCE_SEED")
	return strings.EqualFold(force, "true"), nil
}

func picsumURL(slug string, idx int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", strings.ReplaceAll(slug, " ", "-"), idx)
}
