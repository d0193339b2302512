package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionLocation is the last position stored for a browser session.
type SessionLocation struct {
	SessionID string    `json:"sessionId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionRepository provides methods for managing session locations
type SessionRepository struct {
	db  *DB
	ttl time.Duration
}

// NewSessionRepository creates a new session repository. Rows older than ttl
// are treated as absent; ttl <= 0 keeps them forever.
func NewSessionRepository(db *DB, ttl time.Duration) *SessionRepository {
	return &SessionRepository{db: db, ttl: ttl}
}

// Get returns the stored location for a session, or nil if none is stored
// or it has expired.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*SessionLocation, error) {
	query := `
		SELECT session_id, latitude, longitude, created_at, updated_at
		FROM session_locations
		WHERE session_id = $1
	`

	var l SessionLocation
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&l.SessionID,
		&l.Latitude,
		&l.Longitude,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session location: %w", err)
	}

	if r.ttl > 0 && time.Since(l.UpdatedAt) > r.ttl {
		return nil, nil
	}

	return &l, nil
}

// Upsert stores the location for a session, replacing any previous one.
func (r *SessionRepository) Upsert(ctx context.Context, sessionID string, lat, lon float64) error {
	query := `
		INSERT INTO session_locations (session_id, latitude, longitude)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id)
		DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, sessionID, lat, lon); err != nil {
		return fmt.Errorf("failed to store session location: %w", err)
	}

	return nil
}

// Delete removes a session's location.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	query := `DELETE FROM session_locations WHERE session_id = $1`

	if _, err := r.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete session location: %w", err)
	}

	return nil
}

// PurgeExpired removes rows not updated within the repository TTL.
// Should be called periodically to prevent unbounded growth.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	if r.ttl <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-r.ttl)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM session_locations WHERE updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge session locations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}
