package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"roomres/internal/models"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Reservation struct {
		MaxAdvanceDays       int `yaml:"max_advance_days"`
		SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	} `yaml:"reservation"`

	Audit struct {
		ExportDir     string `yaml:"export_dir"`
		RetentionDays int    `yaml:"retention_days"`
		ExportOnStart bool   `yaml:"export_on_start"`
	} `yaml:"audit"`

	Notify struct {
		Rate      float64 `yaml:"rate"`
		Burst     int     `yaml:"burst"`
		QueueSize int     `yaml:"queue_size"`
	} `yaml:"notify"`

	Rooms []struct {
		Name     string `yaml:"name"`
		Type     string `yaml:"type"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"rooms"`

	Equipment []struct {
		Name       string `yaml:"name"`
		TotalStock int    `yaml:"total_stock"`
	} `yaml:"equipment"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/roomres.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	for _, room := range cfg.Rooms {
		if !models.RoomType(room.Type).Valid() {
			return nil, fmt.Errorf("room %q: unknown type %q", room.Name, room.Type)
		}
	}

	return &cfg, nil
}

// BackupInterval returns how often database snapshots are taken.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// BackupRetention returns how long database snapshots are kept.
func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// MaxAdvance returns how far ahead a reservation may start.
func (c *Config) MaxAdvance() time.Duration {
	if c.Reservation.MaxAdvanceDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.Reservation.MaxAdvanceDays) * 24 * time.Hour
}

// SweepInterval returns how often the status sweeper runs.
func (c *Config) SweepInterval() time.Duration {
	if c.Reservation.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Reservation.SweepIntervalSeconds) * time.Second
}

// CatalogRooms converts the configured rooms to model records.
func (c *Config) CatalogRooms() []models.Room {
	rooms := make([]models.Room, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		rooms = append(rooms, models.Room{
			Name:     r.Name,
			Type:     models.RoomType(r.Type),
			Capacity: r.Capacity,
		})
	}
	return rooms
}

// CatalogEquipment converts the configured equipment to model records.
func (c *Config) CatalogEquipment() []models.EquipmentType {
	equipment := make([]models.EquipmentType, 0, len(c.Equipment))
	for _, e := range c.Equipment {
		equipment = append(equipment, models.EquipmentType{
			Name:       e.Name,
			TotalStock: e.TotalStock,
		})
	}
	return equipment
}
