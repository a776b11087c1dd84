package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ride-auth-service/internal/auth"
	"github.com/spec-kit/ride-auth-service/internal/domain"
	"github.com/spec-kit/ride-auth-service/internal/repository"
	apperrors "github.com/spec-kit/ride-auth-service/pkg/util/errorutil"
)

// Directory owns actor records of every kind. Lookups that find nothing
// return (nil, nil); only storage failures are errors.
type Directory struct {
	repos  map[domain.ActorKind]repository.ActorRepository
	hasher *auth.PasswordHasher
}

// NewDirectory builds a directory over one repository per actor kind.
func NewDirectory(hasher *auth.PasswordHasher, repos ...repository.ActorRepository) *Directory {
	d := &Directory{repos: make(map[domain.ActorKind]repository.ActorRepository, len(repos)), hasher: hasher}
	for _, repo := range repos {
		d.repos[repo.Kind()] = repo
	}
	return d
}

func (d *Directory) repo(kind domain.ActorKind) (repository.ActorRepository, error) {
	repo, ok := d.repos[kind]
	if !ok {
		return nil, fmt.Errorf("no repository registered for actor kind %q", kind)
	}
	return repo, nil
}

// Create hashes the password and stores a new actor. The returned actor
// never carries the credential hash.
func (d *Directory) Create(ctx context.Context, actor *domain.Actor, password string) (*domain.Actor, error) {
	if actor == nil {
		return nil, apperrors.NewBadRequest("Actor data is required")
	}
	actor.Email = normalizeEmail(actor.Email)
	actor.FullName.FirstName = strings.TrimSpace(actor.FullName.FirstName)
	actor.FullName.LastName = strings.TrimSpace(actor.FullName.LastName)

	if missing := missingFields(actor, password); len(missing) > 0 {
		return nil, apperrors.NewValidationFailure("All fields are required", missing)
	}

	repo, err := d.repo(actor.Kind)
	if err != nil {
		return nil, err
	}

	existing, err := repo.GetByEmail(ctx, actor.Email)
	switch {
	case err == nil && existing != nil:
		return nil, apperrors.NewConflict("Duplicate value for unique field", apperrors.FieldError{
			Field:   "email",
			Message: "email already exists",
			Value:   actor.Email,
		})
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	actor.PasswordHash = hash
	if actor.Kind == domain.ActorKindCaptain && actor.Captain.Status == "" {
		actor.Captain.Status = domain.CaptainStatusInactive
	}

	// A concurrent registration can still win the race here; the unique
	// index rejects it and the normalizer reports a conflict.
	if err := repo.Create(ctx, actor); err != nil {
		return nil, err
	}
	return actor.WithoutCredential(), nil
}

// FindByContact looks an actor up by email. The credential hash is only
// kept when includeCredential is set.
func (d *Directory) FindByContact(ctx context.Context, kind domain.ActorKind, email string, includeCredential bool) (*domain.Actor, error) {
	repo, err := d.repo(kind)
	if err != nil {
		return nil, err
	}
	actor, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if includeCredential {
		return actor, nil
	}
	return actor.WithoutCredential(), nil
}

// FindByID looks an actor up by id, credential stripped.
func (d *Directory) FindByID(ctx context.Context, kind domain.ActorKind, id string) (*domain.Actor, error) {
	repo, err := d.repo(kind)
	if err != nil {
		return nil, err
	}
	actor, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return actor.WithoutCredential(), nil
}

// Delete removes an actor. Missing actors surface as NotFound.
func (d *Directory) Delete(ctx context.Context, kind domain.ActorKind, id string) error {
	repo, err := d.repo(kind)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func missingFields(actor *domain.Actor, password string) []apperrors.FieldError {
	var missing []apperrors.FieldError
	add := func(field string) {
		missing = append(missing, apperrors.FieldError{Field: field, Message: field + " is required"})
	}

	if actor.FullName.FirstName == "" {
		add("fullName.firstName")
	}
	if actor.Email == "" {
		add("email")
	}
	if password == "" {
		add("password")
	}
	if actor.Kind == domain.ActorKindCaptain {
		if actor.Captain == nil {
			add("vehicle")
			return missing
		}
		v := actor.Captain.Vehicle
		if strings.TrimSpace(v.Color) == "" {
			add("vehicle.color")
		}
		if strings.TrimSpace(v.Plate) == "" {
			add("vehicle.plate")
		}
		if v.Capacity == 0 {
			add("vehicle.capacity")
		}
		if v.VehicleType == "" {
			add("vehicle.vehicleType")
		}
	}
	return missing
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
