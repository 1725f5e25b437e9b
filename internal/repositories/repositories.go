package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClientStateRepository stores string values by key in the client_state table.
type ClientStateRepository struct {
	db *sql.DB
}

// NewClientStateRepository creates a new [ClientStateRepository] with the given database connection
func NewClientStateRepository(db *sql.DB) *ClientStateRepository {
	return &ClientStateRepository{db: db}
}

// Get returns the value stored under key. The boolean is false when no row exists.
func (r *ClientStateRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query client state %q: %w", key, err)
	}
	return value, true, nil
}

// SetMany stores all pairs in one transaction, so readers never observe a partial write.
func (r *ClientStateRepository) SetMany(values map[string]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for key, value := range values {
		if _, err := stmt.Exec(key, value, now); err != nil {
			return fmt.Errorf("failed to store client state %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client state: %w", err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (r *ClientStateRepository) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	query := fmt.Sprintf(`DELETE FROM client_state WHERE key IN (%s)`, placeholders)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}

// UpdatedAt reports when key was last written. The zero time is returned for missing keys.
func (r *ClientStateRepository) UpdatedAt(key string) (time.Time, error) {
	var updatedAt time.Time
	err := r.db.QueryRow(`SELECT updated_at FROM client_state WHERE key = ?`, key).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query client state %q: %w", key, err)
	}
	return updatedAt, nil
}
