// Package database implements the durable reservation store on SQLite.
//
// All conflict-check-plus-write sequences MUST be serialized per room by
// the caller (see internal/locker): the store itself only guarantees
// atomicity of each single operation, not of a check followed by a write.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roomres/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB represents the database connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// NewDB initializes a new database connection and creates tables if they
// don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode and a busy timeout keep concurrent actors from tripping
	// over SQLite's single-writer lock.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:     db,
		logger: logger,
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			type TEXT NOT NULL DEFAULT 'other',
			capacity INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS equipment_types (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			total_stock INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			room_id INTEGER NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			rejection_reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY(room_id) REFERENCES rooms(id)
		)`,
		`CREATE TABLE IF NOT EXISTS reservation_equipment (
			reservation_id TEXT NOT NULL,
			equipment_type_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			PRIMARY KEY (reservation_id, equipment_type_id),
			FOREIGN KEY(reservation_id) REFERENCES reservations(id),
			FOREIGN KEY(equipment_type_id) REFERENCES equipment_types(id)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reservation_id TEXT NOT NULL,
			actor_id INTEGER NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_room_status ON reservations(room_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status_start ON reservations(status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status_end ON reservations(status, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservation_equipment_type ON reservation_equipment(equipment_type_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_reservation ON audit_log(reservation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// GetRoom returns a room by id, or ErrNotFound.
func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	var r models.Room
	err := db.QueryRowContext(ctx,
		`SELECT id, name, type, capacity FROM rooms WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Type, &r.Capacity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &r, nil
}

// ListRooms returns all rooms ordered by id.
func (db *DB) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, type, capacity FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.Capacity); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// GetEquipmentType returns an equipment type by id, or ErrNotFound.
func (db *DB) GetEquipmentType(ctx context.Context, id int64) (*models.EquipmentType, error) {
	var e models.EquipmentType
	err := db.QueryRowContext(ctx,
		`SELECT id, name, total_stock FROM equipment_types WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.TotalStock)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment type: %w", err)
	}
	return &e, nil
}

// GetEquipmentStock returns the total stock of an equipment type, or
// ErrNotFound.
func (db *DB) GetEquipmentStock(ctx context.Context, id int64) (int, error) {
	e, err := db.GetEquipmentType(ctx, id)
	if err != nil {
		return 0, err
	}
	return e.TotalStock, nil
}

// SyncCatalog upserts rooms and equipment types from configuration.
// Existing rows are updated by name; nothing is deleted.
func (db *DB) SyncCatalog(ctx context.Context, rooms []models.Room, equipment []models.EquipmentType) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, r := range rooms {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (name, type, capacity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				type = excluded.type,
				capacity = excluded.capacity,
				updated_at = excluded.updated_at`,
			r.Name, r.Type, r.Capacity, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync room %s: %w", r.Name, err)
		}
	}

	for _, e := range equipment {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equipment_types (name, total_stock, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				total_stock = excluded.total_stock,
				updated_at = excluded.updated_at`,
			e.Name, e.TotalStock, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync equipment type %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
