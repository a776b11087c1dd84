package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

// memoryActorRepository keeps actors in process memory. It is used when no
// Postgres DSN is configured and in tests. It reports duplicates and misses
// with the same errors the Postgres driver produces.
type memoryActorRepository struct {
	kind    domain.ActorKind
	table   string
	mu      sync.RWMutex
	byID    map[string]*domain.Actor
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryActorRepository builds an empty in-memory repository for kind.
func NewMemoryActorRepository(kind domain.ActorKind) ActorRepository {
	return &memoryActorRepository{
		kind:    kind,
		table:   string(kind) + "s",
		byID:    make(map[string]*domain.Actor),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *memoryActorRepository) Kind() domain.ActorKind {
	return r.kind
}

func (r *memoryActorRepository) Create(_ context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[actor.Email]; exists {
		return &pgconn.PgError{
			Severity:       "ERROR",
			Code:           pgerrcode.UniqueViolation,
			Message:        fmt.Sprintf("duplicate key value violates unique constraint %q", r.table+"_email_key"),
			Detail:         fmt.Sprintf("Key (email)=(%s) already exists.", actor.Email),
			TableName:      r.table,
			ConstraintName: r.table + "_email_key",
		}
	}
	if actor.PasswordHash == "" {
		return &pgconn.PgError{
			Severity:   "ERROR",
			Code:       pgerrcode.NotNullViolation,
			Message:    `null value in column "password_hash" violates not-null constraint`,
			TableName:  r.table,
			ColumnName: "password_hash",
		}
	}

	now := r.now()
	actor.ID = uuid.NewString()
	actor.Kind = r.kind
	actor.CreatedAt = now
	actor.UpdatedAt = now
	if actor.Kind == domain.ActorKindCaptain && actor.Captain != nil && actor.Captain.Status == "" {
		actor.Captain.Status = domain.CaptainStatusInactive
	}

	stored := *actor
	if actor.Captain != nil {
		profile := *actor.Captain
		stored.Captain = &profile
	}
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *memoryActorRepository) GetByID(_ context.Context, id string) (*domain.Actor, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &pgconn.PgError{
			Severity: "ERROR",
			Code:     pgerrcode.InvalidTextRepresentation,
			Message:  fmt.Sprintf("invalid input syntax for type uuid: %q", id),
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	actor, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return clone(actor), nil
}

func (r *memoryActorRepository) GetByEmail(_ context.Context, email string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return clone(r.byID[id]), nil
}

func (r *memoryActorRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(r.byEmail, actor.Email)
	delete(r.byID, id)
	return nil
}

func clone(actor *domain.Actor) *domain.Actor {
	cp := *actor
	if actor.Captain != nil {
		profile := *actor.Captain
		cp.Captain = &profile
	}
	return &cp
}
