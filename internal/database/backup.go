package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup writes a consistent snapshot of the database to dest. VACUUM
// INTO is safe against concurrent writers, unlike copying the file
// while the WAL is live.
func (db *DB) Backup(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	db.logger.Info().Str("path", dest).Msg("database backup written")
	return nil
}

// BackupTo writes a timestamped snapshot into dir and returns its path.
func (db *DB) BackupTo(ctx context.Context, dir string) (string, error) {
	name := fmt.Sprintf("roomres_%s.db", time.Now().Format("20060102_150405"))
	dest := filepath.Join(dir, name)
	if err := db.Backup(ctx, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// CleanupBackups deletes snapshots in dir older than retention and
// returns how many were removed.
func (db *DB) CleanupBackups(dir string, retention time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				db.logger.Error().Err(err).Str("file", entry.Name()).Msg("failed to delete old backup")
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}
