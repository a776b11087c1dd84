package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

type postgresRevocationStore struct {
	db  Querier
	ttl time.Duration
	now func() time.Time
}

// PostgresRevocationStore is a RevocationStore that also needs sweeping.
type PostgresRevocationStore interface {
	RevocationStore
	Sweeper
}

// NewPostgresRevocationStore stores entries in revoked_tokens.
func NewPostgresRevocationStore(db Querier) PostgresRevocationStore {
	return &postgresRevocationStore{db: db, ttl: domain.TokenTTL, now: time.Now}
}

func (s *postgresRevocationStore) Add(ctx context.Context, token string) error {
	const query = `
        INSERT INTO revoked_tokens (token_hash, created_at)
        VALUES ($1, $2)
        ON CONFLICT (token_hash) DO NOTHING`

	if _, err := s.db.Exec(ctx, query, Fingerprint(token), s.now().UTC()); err != nil {
		return oops.Code("REVOCATION_ADD_FAILED").With("backend", "postgres").Wrap(err)
	}
	return nil
}

func (s *postgresRevocationStore) Contains(ctx context.Context, token string) (bool, error) {
	const query = `SELECT created_at FROM revoked_tokens WHERE token_hash=$1`

	var createdAt time.Time
	err := s.db.QueryRow(ctx, query, Fingerprint(token)).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("REVOCATION_LOOKUP_FAILED").With("backend", "postgres").Wrap(err)
	}
	return live(createdAt, s.now(), s.ttl), nil
}

// Sweep deletes entries past the retention window.
func (s *postgresRevocationStore) Sweep(ctx context.Context) (int64, error) {
	const query = `DELETE FROM revoked_tokens WHERE created_at <= $1`

	cmd, err := s.db.Exec(ctx, query, s.now().Add(-s.ttl).UTC())
	if err != nil {
		return 0, oops.Code("REVOCATION_SWEEP_FAILED").With("backend", "postgres").Wrap(err)
	}
	return cmd.RowsAffected(), nil
}
