package repository

import (
	"context"
	"database/sql"
)

// PrefsRepo is a small key/value store for UI state that survives restarts.
type PrefsRepo struct {
	db *sql.DB
}

func NewPrefsRepo(db *sql.DB) *PrefsRepo { return &PrefsRepo{db: db} }

// Get returns the value for key and whether it was set.
func (r *PrefsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *PrefsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO preferences(key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP;
	`, key, value)
	return err
}

// SetDefault stores value only when key has no value yet.
func (r *PrefsRepo) SetDefault(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO preferences(key, value) VALUES (?, ?)`, key, value)
	return err
}

func (r *PrefsRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
