package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads values from file", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
database:
  path: "/tmp/test.db"
storage:
  images_dir: "/tmp/images"
  reports_dir: "/tmp/reports"
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
		assert.Equal(t, "/tmp/images", cfg.Storage.ImagesDir)
	})

	t.Run("applies defaults for omitted values", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 9000\n")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
		assert.Equal(t, 4, cfg.Report.RenderWorkers)
		assert.Equal(t, "info", cfg.Logger.Level)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:  ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "db.sqlite"},
		Storage: StorageConfig{ImagesDir: "images", ReportsDir: "reports"},
		Report:  ReportConfig{RenderWorkers: 2},
	}
	assert.NoError(t, valid.Validate())

	t.Run("rejects bad port", func(t *testing.T) {
		cfg := valid
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects missing database path", func(t *testing.T) {
		cfg := valid
		cfg.Database.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects missing storage dirs", func(t *testing.T) {
		cfg := valid
		cfg.Storage.ReportsDir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects zero render workers", func(t *testing.T) {
		cfg := valid
		cfg.Report.RenderWorkers = 0
		assert.Error(t, cfg.Validate())
	})
}
