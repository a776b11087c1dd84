package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

// Querier is the subset of pgxpool.Pool the repositories use.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ActorRepository defines persistence access for one actor kind. Lookups
// return pgx.ErrNoRows when nothing matches; Create surfaces the driver's
// unique-violation error untouched apart from wrapping.
type ActorRepository interface {
	Kind() domain.ActorKind
	Create(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id string) (*domain.Actor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Actor, error)
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	db Querier
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db Querier) ActorRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Kind() domain.ActorKind {
	return domain.ActorKindUser
}

func (r *userRepository) Create(ctx context.Context, user *domain.Actor) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, password_hash, socket_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.FullName.FirstName,
		nullable(user.FullName.LastName),
		user.Email,
		user.PasswordHash,
		user.SocketID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").With("kind", "user").Wrap(err)
	}
	user.Kind = domain.ActorKindUser
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	const query = `
        SELECT id, first_name, last_name, email, password_hash, socket_id, created_at, updated_at
        FROM users WHERE id=$1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("by", "id").Wrap(err)
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.Actor, error) {
	const query = `
        SELECT id, first_name, last_name, email, password_hash, socket_id, created_at, updated_at
        FROM users WHERE email=$1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("by", "email").Wrap(err)
	}
	return user, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return oops.Code("USER_DELETE_FAILED").Wrap(pgx.ErrNoRows)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.Actor, error) {
	user := domain.Actor{Kind: domain.ActorKindUser}
	var lastName *string
	if err := row.Scan(
		&user.ID,
		&user.FullName.FirstName,
		&lastName,
		&user.Email,
		&user.PasswordHash,
		&user.SocketID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.FullName.LastName = deref(lastName)
	return &user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
