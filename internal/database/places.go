package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetPlaceName returns the cached place name for a rounded coordinate key.
func (d *Database) GetPlaceName(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var name string
	err := d.db.QueryRowContext(ctx, `SELECT name FROM place_names WHERE coord_key = ?`, key).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get_place_name", start, nil)
		return "", false, nil
	}
	recordQuery("get_place_name", start, err)
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// PutPlaceName caches a resolved place name.
func (d *Database) PutPlaceName(ctx context.Context, key string, lat, lng float64, name string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO place_names (coord_key, lat, lng, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(coord_key) DO UPDATE SET name = excluded.name
	`, key, lat, lng, name)

	recordQuery("put_place_name", start, err)
	return err
}
