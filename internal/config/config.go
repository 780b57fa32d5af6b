package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	BackendSQL       = "sql"
	BackendFirestore = "firestore"
)

type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sql"`

	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	AutoMigrate            bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	StorageBucket           string `env:"STORAGE_BUCKET"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_CARE_MODEL" envDefault:"gemini-2.5-flash"`

	PointsIncrement int64         `env:"POINTS_INCREMENT" envDefault:"1"`
	LiveRefresh     time.Duration `env:"LIVE_REFRESH" envDefault:"15s"`
	AwardRateLimit  float64       `env:"AWARD_RATE_LIMIT" envDefault:"5"`
	CORSOriginHost  string        `env:"CORS_ORIGIN_HOST" envDefault:"leaflog.web.app"`

	GitSHA    string `env:"GIT_SHA" envDefault:"dev"`
	BuildTime string `env:"BUILD_TIME"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQL:
		if c.DBUser == "" || c.DBName == "" || (c.DBHost == "" && c.InstanceConnectionName == "") {
			return errors.New("config: DB_USER, DB_NAME and DB_HOST (or INSTANCE_CONNECTION_NAME) are required for the sql backend")
		}
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("config: FIREBASE_PROJECT_ID is required for the firestore backend")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.PointsIncrement <= 0 {
		return fmt.Errorf("config: POINTS_INCREMENT must be positive, got %d", c.PointsIncrement)
	}
	if c.LiveRefresh < 0 {
		return errors.New("config: LIVE_REFRESH must not be negative")
	}
	return nil
}
