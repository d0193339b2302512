package session

import (
	"context"

	"github.com/unklstewy/planes-near-me/internal/db"
	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// PostgresStore adapts db.SessionRepository to Store.
type PostgresStore struct {
	repo *db.SessionRepository
}

// NewPostgresStore creates a Store backed by the session_locations table.
func NewPostgresStore(repo *db.SessionRepository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (coordinates.Geographic, bool, error) {
	loc, err := s.repo.Get(ctx, sessionID)
	if err != nil || loc == nil {
		return coordinates.Geographic{}, false, err
	}
	return coordinates.Geographic{Latitude: loc.Latitude, Longitude: loc.Longitude}, true, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, sessionID string, c coordinates.Geographic) error {
	return s.repo.Upsert(ctx, sessionID, c.Latitude, c.Longitude)
}

// PurgeExpired deletes rows past the session TTL.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx)
}
