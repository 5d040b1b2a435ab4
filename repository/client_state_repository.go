package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ClientStateRepository is a small key/value table for state the front-end
// keeps across restarts.
type ClientStateRepository struct {
	db *sql.DB
}

func NewClientStateRepository(db *sql.DB) *ClientStateRepository {
	return &ClientStateRepository{db: db}
}

// Get returns the stored value for key, or nil when the key is absent.
func (r *ClientStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Put inserts or replaces the value for key.
func (r *ClientStateRepository) Put(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	return err
}

// Delete removes key. Deleting an absent key is not an error.
func (r *ClientStateRepository) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, key)
	return err
}

// Slot binds the repository to a single key.
type Slot struct {
	repo *ClientStateRepository
	key  string
}

// Slot returns a handle that loads, saves and deletes one key.
func (r *ClientStateRepository) Slot(key string) *Slot {
	return &Slot{repo: r, key: key}
}

func (s *Slot) Load(ctx context.Context) ([]byte, error) {
	return s.repo.Get(ctx, s.key)
}

func (s *Slot) Save(ctx context.Context, value []byte) error {
	return s.repo.Put(ctx, s.key, value)
}

func (s *Slot) Delete(ctx context.Context) error {
	return s.repo.Delete(ctx, s.key)
}
