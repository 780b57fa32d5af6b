package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/leaflog/leaflog-backend/internal/ai"
	"github.com/leaflog/leaflog-backend/internal/config"
	"github.com/leaflog/leaflog-backend/internal/db"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"github.com/leaflog/leaflog-backend/internal/repository/docstore"
	"github.com/leaflog/leaflog-backend/internal/server"
	"github.com/leaflog/leaflog-backend/internal/storage"
	"google.golang.org/api/option"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return fmt.Errorf("firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("firebase auth: %w", err)
	}

	deps := server.Deps{
		Verifier:        authClient,
		Users:           authClient,
		PointsIncrement: cfg.PointsIncrement,
		AwardRateLimit:  cfg.AwardRateLimit,
		CORSOriginHost:  cfg.CORSOriginHost,
		GitSHA:          cfg.GitSHA,
		BuildTime:       cfg.BuildTime,
	}
	var closers []io.Closer

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		fs, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("firestore: %w", err)
		}
		closers = append(closers, fs)
		deps.Locations = docstore.NewLocationRepository(fs)
		deps.Profiles = docstore.NewProfileRepository(fs)
		deps.Interactions = docstore.NewInteractionRepository(fs)
		deps.Notifications = docstore.NewNotificationRepository(fs)
	default:
		conn, err := db.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		hub := live.NewHub()
		deps.Locations = repository.NewLocationRepository(conn, hub, cfg.LiveRefresh)
		deps.Profiles = repository.NewProfileRepository(conn, hub, cfg.LiveRefresh)
		deps.Interactions = repository.NewInteractionRepository(conn, hub)
		deps.Notifications = repository.NewNotificationRepository(conn)
	}

	if cfg.StorageBucket != "" {
		sc, err := gcs.NewClient(ctx, opts...)
		if err != nil {
			return fmt.Errorf("storage client: %w", err)
		}
		closers = append(closers, sc)
		deps.Images = storage.NewGCSImageHost(sc, cfg.StorageBucket)
	} else {
		log.Printf("[main] STORAGE_BUCKET not set; image uploads disabled")
	}

	if cfg.GeminiAPIKey != "" {
		care, err := ai.NewCareTipsClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("care tips client: %w", err)
		}
		deps.CareTips = care
	}

	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("[main] close: %v", err)
			}
		}
	}()

	srv := server.New(deps)
	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s backend=%s", addr, cfg.StoreBackend)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
