package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

type captainRepository struct {
	db Querier
}

// NewCaptainRepository instantiates the repository.
func NewCaptainRepository(db Querier) ActorRepository {
	return &captainRepository{db: db}
}

func (r *captainRepository) Kind() domain.ActorKind {
	return domain.ActorKindCaptain
}

func (r *captainRepository) Create(ctx context.Context, captain *domain.Actor) error {
	if captain.Captain == nil {
		return oops.Code("CAPTAIN_CREATE_FAILED").Errorf("captain profile missing")
	}
	profile := captain.Captain
	if profile.Status == "" {
		profile.Status = domain.CaptainStatusInactive
	}

	const query = `
        INSERT INTO captains (first_name, last_name, email, password_hash, socket_id, status,
            vehicle_color, vehicle_plate, vehicle_capacity, vehicle_type)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		captain.FullName.FirstName,
		nullable(captain.FullName.LastName),
		captain.Email,
		captain.PasswordHash,
		captain.SocketID,
		profile.Status,
		profile.Vehicle.Color,
		profile.Vehicle.Plate,
		profile.Vehicle.Capacity,
		profile.Vehicle.VehicleType,
	).Scan(&captain.ID, &captain.CreatedAt, &captain.UpdatedAt)
	if err != nil {
		return oops.Code("CAPTAIN_CREATE_FAILED").With("kind", "captain").Wrap(err)
	}
	captain.Kind = domain.ActorKindCaptain
	return nil
}

func (r *captainRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	const query = `
        SELECT id, first_name, last_name, email, password_hash, socket_id, status,
            vehicle_color, vehicle_plate, vehicle_capacity, vehicle_type, created_at, updated_at
        FROM captains WHERE id=$1`

	captain, err := scanCaptain(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, oops.Code("CAPTAIN_LOOKUP_FAILED").With("by", "id").Wrap(err)
	}
	return captain, nil
}

func (r *captainRepository) GetByEmail(ctx context.Context, email string) (*domain.Actor, error) {
	const query = `
        SELECT id, first_name, last_name, email, password_hash, socket_id, status,
            vehicle_color, vehicle_plate, vehicle_capacity, vehicle_type, created_at, updated_at
        FROM captains WHERE email=$1`

	captain, err := scanCaptain(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, oops.Code("CAPTAIN_LOOKUP_FAILED").With("by", "email").Wrap(err)
	}
	return captain, nil
}

func (r *captainRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM captains WHERE id=$1`, id)
	if err != nil {
		return oops.Code("CAPTAIN_DELETE_FAILED").Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return oops.Code("CAPTAIN_DELETE_FAILED").Wrap(pgx.ErrNoRows)
	}
	return nil
}

func scanCaptain(row pgx.Row) (*domain.Actor, error) {
	captain := domain.Actor{Kind: domain.ActorKindCaptain, Captain: &domain.CaptainProfile{}}
	var lastName *string
	if err := row.Scan(
		&captain.ID,
		&captain.FullName.FirstName,
		&lastName,
		&captain.Email,
		&captain.PasswordHash,
		&captain.SocketID,
		&captain.Captain.Status,
		&captain.Captain.Vehicle.Color,
		&captain.Captain.Vehicle.Plate,
		&captain.Captain.Vehicle.Capacity,
		&captain.Captain.Vehicle.VehicleType,
		&captain.CreatedAt,
		&captain.UpdatedAt,
	); err != nil {
		return nil, err
	}
	captain.FullName.LastName = deref(lastName)
	return &captain, nil
}
