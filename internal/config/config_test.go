package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sql")
	t.Setenv("DB_USER", "leaf")
	t.Setenv("DB_NAME", "leaflog")
	t.Setenv("DB_HOST", "127.0.0.1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != BackendSQL {
		t.Fatalf("backend=%q", cfg.StoreBackend)
	}
	if cfg.PointsIncrement != 1 {
		t.Fatalf("increment=%d want 1", cfg.PointsIncrement)
	}
	if cfg.LiveRefresh != 15*time.Second {
		t.Fatalf("refresh=%v", cfg.LiveRefresh)
	}
	if cfg.Port != "8080" || cfg.DBPort != "3306" {
		t.Fatalf("ports=%s/%s", cfg.Port, cfg.DBPort)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sql ok", Config{StoreBackend: BackendSQL, DBUser: "u", DBName: "n", DBHost: "h", PointsIncrement: 1}, false},
		{"sql via cloud sql socket", Config{StoreBackend: BackendSQL, DBUser: "u", DBName: "n", InstanceConnectionName: "p:r:i", PointsIncrement: 1}, false},
		{"sql missing host", Config{StoreBackend: BackendSQL, DBUser: "u", DBName: "n", PointsIncrement: 1}, true},
		{"firestore ok", Config{StoreBackend: BackendFirestore, FirebaseProjectID: "leaflog", PointsIncrement: 1}, false},
		{"firestore missing project", Config{StoreBackend: BackendFirestore, PointsIncrement: 1}, true},
		{"unknown backend", Config{StoreBackend: "mongo", PointsIncrement: 1}, true},
		{"zero increment", Config{StoreBackend: BackendFirestore, FirebaseProjectID: "p"}, true},
		{"negative refresh", Config{StoreBackend: BackendFirestore, FirebaseProjectID: "p", PointsIncrement: 1, LiveRefresh: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
