package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const keyLastChecked = "last_update_check"

// Setting returns the value stored under key and whether it exists.
func (q *Queries) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting stores value under key.
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// LastChecked returns when the last update pass was recorded, the zero time if never.
func (q *Queries) LastChecked(ctx context.Context) (time.Time, error) {
	value, ok, err := q.Setting(ctx, keyLastChecked)
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s setting %q: %w", keyLastChecked, value, err)
	}
	return time.UnixMilli(ms), nil
}

// SetLastChecked records the time of an update pass.
func (q *Queries) SetLastChecked(ctx context.Context, t time.Time) error {
	return q.SetSetting(ctx, keyLastChecked, strconv.FormatInt(t.UnixMilli(), 10))
}
