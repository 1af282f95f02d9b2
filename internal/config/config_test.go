package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomres/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`

redis:
  enabled: true
  address: localhost:6379
  db: 2

monitoring:
  health_check_port: 8081
  prometheus_enabled: true
  prometheus_port: 9091

reservation:
  max_advance_days: 60
  sweep_interval_seconds: 30

audit:
  export_dir: /tmp/audit
  retention_days: 90

rooms:
  - name: "Lab A"
    type: laboratory
    capacity: 12
  - name: "Main Hall"
    type: amphitheater
    capacity: 200

equipment:
  - name: "Projector"
    total_stock: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 8081, cfg.Monitoring.HealthCheckPort)
	assert.Equal(t, 60*24*time.Hour, cfg.MaxAdvance())
	assert.Equal(t, 30*time.Second, cfg.SweepInterval())
	assert.Equal(t, 90, cfg.Audit.RetentionDays)

	rooms := cfg.CatalogRooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, models.RoomTypeLaboratory, rooms[0].Type)
	assert.Equal(t, 200, rooms[1].Capacity)

	equipment := cfg.CatalogEquipment()
	require.Len(t, equipment, 1)
	assert.Equal(t, "Projector", equipment[0].Name)
	assert.Equal(t, 5, equipment[0].TotalStock)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
monitoring:
  health_check_port: 8081
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/roomres.db", cfg.Database.Path)
	assert.Equal(t, 30*24*time.Hour, cfg.MaxAdvance())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
redis:
  address: ${TEST_REDIS_ADDR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
}

func TestLoadRejectsUnknownRoomType(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
rooms:
  - name: "Pool"
    type: swimming
    capacity: 30
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
