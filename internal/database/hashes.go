package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetFileHash returns the cached digest for path when its size and mtime
// still match the cached entry.
func (d *Database) GetFileHash(ctx context.Context, path string, size, modTime int64) (string, bool, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var hash string
	err := d.db.QueryRowContext(ctx,
		`SELECT hash FROM file_hashes WHERE path = ? AND size = ? AND mod_time = ?`,
		path, size, modTime,
	).Scan(&hash)

	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get_file_hash", start, nil)
		return "", false, nil
	}
	recordQuery("get_file_hash", start, err)
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// PutFileHash stores or replaces the digest for path.
func (d *Database) PutFileHash(ctx context.Context, path string, size, modTime int64, hash string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO file_hashes (path, size, mod_time, hash, updated_at)
		VALUES (?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			hash = excluded.hash,
			updated_at = excluded.updated_at
	`, path, size, modTime, hash)

	recordQuery("put_file_hash", start, err)
	return err
}

// PruneFileHashes deletes cache entries whose path is not in keep and
// returns how many were removed.
func (d *Database) PruneFileHashes(ctx context.Context, keep []string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("prune_file_hashes", start, err) }()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_paths (path TEXT PRIMARY KEY)`); err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM keep_paths`); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO keep_paths (path) VALUES (?)`)
	if err != nil {
		return 0, err
	}
	for _, p := range keep {
		if _, err = stmt.ExecContext(ctx, p); err != nil {
			_ = stmt.Close()
			return 0, err
		}
	}
	if err = stmt.Close(); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM file_hashes WHERE path NOT IN (SELECT path FROM keep_paths)`)
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
