package db

import (
	"testing"

	"github.com/leaflog/leaflog-backend/internal/config"
)

func TestBuildDSN(t *testing.T) {
	base := config.Config{DBUser: "leaf", DBPassword: "secret", DBName: "leaflog", DBPort: "3306"}
	tests := []struct {
		name string
		mod  func(c *config.Config)
		want string
	}{
		{"host and port", func(c *config.Config) { c.DBHost = "10.0.0.5" }, "leaf:secret@tcp(10.0.0.5:3306)/leaflog?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"prewrapped tcp", func(c *config.Config) { c.DBHost = "tcp(db:3307)" }, "leaf:secret@tcp(db:3307)/leaflog?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"socket path", func(c *config.Config) { c.DBHost = "/var/run/mysqld.sock" }, "leaf:secret@unix(/var/run/mysqld.sock)/leaflog?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"cloud sql", func(c *config.Config) { c.DBHost = "ignored"; c.InstanceConnectionName = "proj:region:inst" }, "leaf:secret@unix(/cloudsql/proj:region:inst)/leaflog?charset=utf8mb4&parseTime=True&loc=UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mod(&cfg)
			if got := BuildDSN(&cfg); got != tt.want {
				t.Fatalf("BuildDSN=%q want %q", got, tt.want)
			}
		})
	}
}
