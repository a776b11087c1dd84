package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

const sampleToken = "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJhIn0.c2ln"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newClock() *clock {
	return &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func newRedisStore(t *testing.T) (*redisRevocationStore, *miniredis.Miniredis, *clock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "miniredis start")
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	clk := newClock()
	store := NewRedisRevocationStore(rdb, "").(*redisRevocationStore)
	store.now = clk.now
	return store, mr, clk
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(sampleToken)
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint(sampleToken))
	assert.NotEqual(t, a, Fingerprint(sampleToken+"x"))
	assert.NotContains(t, a, sampleToken)
}

func TestRedisRevocationStore_AddContains(t *testing.T) {
	store, mr, _ := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Contains(ctx, sampleToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Add(ctx, sampleToken))
	require.NoError(t, store.Add(ctx, sampleToken), "second add must be a no-op")

	ok, err = store.Contains(ctx, sampleToken)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Len(t, mr.Keys(), 1)
	assert.Equal(t, "revoked:"+Fingerprint(sampleToken), mr.Keys()[0])
	assert.Equal(t, domain.TokenTTL, mr.TTL(mr.Keys()[0]))
}

func TestRedisRevocationStore_RetentionBoundary(t *testing.T) {
	store, _, clk := newRedisStore(t)
	ctx := context.Background()
	created := clk.t

	require.NoError(t, store.Add(ctx, sampleToken))

	clk.t = created.Add(domain.TokenTTL - time.Millisecond)
	ok, err := store.Contains(ctx, sampleToken)
	require.NoError(t, err)
	assert.True(t, ok, "entry must still be honored just before the window closes")

	clk.t = created.Add(domain.TokenTTL)
	ok, err = store.Contains(ctx, sampleToken)
	require.NoError(t, err)
	assert.False(t, ok)

	clk.t = created.Add(domain.TokenTTL + time.Millisecond)
	ok, err = store.Contains(ctx, sampleToken)
	require.NoError(t, err)
	assert.False(t, ok, "entry must be absent past the window even before redis expires it")
}

func TestRedisRevocationStore_PhysicalExpiry(t *testing.T) {
	store, mr, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, sampleToken))
	mr.FastForward(domain.TokenTTL)

	assert.Empty(t, mr.Keys())
	ok, err := store.Contains(ctx, sampleToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisRevocationStore_BackendDown(t *testing.T) {
	store, mr, _ := newRedisStore(t)
	mr.SetError("ERR backend unavailable")

	_, err := store.Contains(context.Background(), sampleToken)
	require.Error(t, err)
	assert.Error(t, store.Add(context.Background(), sampleToken))
}

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore()
	clk := newClock()
	store.now = clk.now
	ctx := context.Background()
	created := clk.t

	require.NoError(t, store.Add(ctx, sampleToken))
	require.NoError(t, store.Add(ctx, "other"))

	clk.t = created.Add(time.Hour)
	require.NoError(t, store.Add(ctx, sampleToken))

	clk.t = created.Add(domain.TokenTTL - time.Nanosecond)
	ok, _ := store.Contains(ctx, sampleToken)
	assert.True(t, ok, "re-adding must not extend retention")

	clk.t = created.Add(domain.TokenTTL + time.Nanosecond)
	ok, _ = store.Contains(ctx, sampleToken)
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len(), "read-time filter does not delete")

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, 0, store.Len())
}

func TestPostgresRevocationStore(t *testing.T) {
	fp := Fingerprint(sampleToken)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, created time.Time)
		run       func(t *testing.T, store *postgresRevocationStore)
	}{
		{
			name: "add is idempotent insert",
			setupMock: func(mock pgxmock.PgxPoolIface, _ time.Time) {
				mock.ExpectExec(`INSERT INTO revoked_tokens`).
					WithArgs(fp, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
			},
			run: func(t *testing.T, store *postgresRevocationStore) {
				require.NoError(t, store.Add(context.Background(), sampleToken))
			},
		},
		{
			name: "missing entry",
			setupMock: func(mock pgxmock.PgxPoolIface, _ time.Time) {
				mock.ExpectQuery(`SELECT created_at FROM revoked_tokens`).
					WithArgs(fp).
					WillReturnError(pgx.ErrNoRows)
			},
			run: func(t *testing.T, store *postgresRevocationStore) {
				ok, err := store.Contains(context.Background(), sampleToken)
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name: "entry inside window",
			setupMock: func(mock pgxmock.PgxPoolIface, created time.Time) {
				mock.ExpectQuery(`SELECT created_at FROM revoked_tokens`).
					WithArgs(fp).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).
						AddRow(created.Add(-domain.TokenTTL + time.Second)))
			},
			run: func(t *testing.T, store *postgresRevocationStore) {
				ok, err := store.Contains(context.Background(), sampleToken)
				require.NoError(t, err)
				assert.True(t, ok)
			},
		},
		{
			name: "entry past window not yet swept",
			setupMock: func(mock pgxmock.PgxPoolIface, created time.Time) {
				mock.ExpectQuery(`SELECT created_at FROM revoked_tokens`).
					WithArgs(fp).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).
						AddRow(created.Add(-domain.TokenTTL - time.Second)))
			},
			run: func(t *testing.T, store *postgresRevocationStore) {
				ok, err := store.Contains(context.Background(), sampleToken)
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name: "lookup failure",
			setupMock: func(mock pgxmock.PgxPoolIface, _ time.Time) {
				mock.ExpectQuery(`SELECT created_at FROM revoked_tokens`).
					WithArgs(fp).
					WillReturnError(errors.New("connection refused"))
			},
			run: func(t *testing.T, store *postgresRevocationStore) {
				_, err := store.Contains(context.Background(), sampleToken)
				require.Error(t, err)
				assert.Contains(t, err.Error(), "connection refused")
			},
		},
		{
			name: "sweep deletes expired rows",
			setupMock: func(mock pgxmock.PgxPoolIface, _ time.Time) {
				mock.ExpectExec(`DELETE FROM revoked_tokens`).
					WithArgs(pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("DELETE", 3))
			},
			run: func(t *testing.T, store *postgresRevocationStore) {
				n, err := store.Sweep(context.Background())
				require.NoError(t, err)
				assert.Equal(t, int64(3), n)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			clk := newClock()
			tt.setupMock(mock, clk.t)

			store := NewPostgresRevocationStore(mock).(*postgresRevocationStore)
			store.now = clk.now
			tt.run(t, store)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
