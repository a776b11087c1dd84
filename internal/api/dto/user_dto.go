package dto

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/ride-auth-service/internal/domain"
	apperrors "github.com/spec-kit/ride-auth-service/pkg/util/errorutil"
)

// FullNameDTO is the name part of a register payload and actor response.
type FullNameDTO struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
}

// VehicleDTO describes a captain's vehicle.
type VehicleDTO struct {
	Color       string `json:"color"`
	Plate       string `json:"plate"`
	Capacity    int    `json:"capacity"`
	VehicleType string `json:"vehicleType"`
}

// RegisterRequest payload for new users and captains. Vehicle is only read
// for captains.
type RegisterRequest struct {
	FullName FullNameDTO `json:"fullName"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Vehicle  *VehicleDTO `json:"vehicle,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate reports every invalid field of a register payload for kind.
func (r RegisterRequest) Validate(kind domain.ActorKind) []apperrors.FieldError {
	var errs []apperrors.FieldError
	fail := func(field, message string, value any) {
		errs = append(errs, apperrors.FieldError{Field: field, Message: message, Value: value})
	}

	email := strings.TrimSpace(r.Email)
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		fail("email", "Invalid Email", r.Email)
	}
	if tooShort(r.FullName.FirstName, 3) {
		fail("fullName.firstName", "First name must be at least 3 characters long", r.FullName.FirstName)
	}
	if r.FullName.LastName != "" && tooShort(r.FullName.LastName, 3) {
		fail("fullName.lastName", "Last name must be at least 3 characters long", r.FullName.LastName)
	}
	if utf8.RuneCountInString(r.Password) < 6 {
		fail("password", "Password must be at least 6 characters long", nil)
	}

	if kind != domain.ActorKindCaptain {
		return errs
	}
	if r.Vehicle == nil {
		fail("vehicle", "Vehicle is required", nil)
		return errs
	}
	if tooShort(r.Vehicle.Color, 3) {
		fail("vehicle.color", "Color must be at least 3 characters long", r.Vehicle.Color)
	}
	if tooShort(r.Vehicle.Plate, 3) {
		fail("vehicle.plate", "Plate must be at least 3 characters long", r.Vehicle.Plate)
	}
	if r.Vehicle.Capacity < 1 {
		fail("vehicle.capacity", "Capacity must be at least 1", r.Vehicle.Capacity)
	}
	if !domain.VehicleType(r.Vehicle.VehicleType).Valid() {
		fail("vehicle.vehicleType", "Invalid vehicle type", r.Vehicle.VehicleType)
	}
	return errs
}

// ToActor converts the payload into an unsaved actor of kind.
func (r RegisterRequest) ToActor(kind domain.ActorKind) *domain.Actor {
	name := domain.FullName{FirstName: r.FullName.FirstName, LastName: r.FullName.LastName}
	if kind == domain.ActorKindCaptain && r.Vehicle != nil {
		return domain.NewCaptain(name, r.Email, domain.Vehicle{
			Color:       r.Vehicle.Color,
			Plate:       r.Vehicle.Plate,
			Capacity:    r.Vehicle.Capacity,
			VehicleType: domain.VehicleType(r.Vehicle.VehicleType),
		})
	}
	actor := domain.NewUser(name, r.Email)
	actor.Kind = kind
	return actor
}

// Validate reports missing login fields.
func (r LoginRequest) Validate() []apperrors.FieldError {
	var errs []apperrors.FieldError
	if strings.TrimSpace(r.Email) == "" {
		errs = append(errs, apperrors.FieldError{Field: "email", Message: "Email is required"})
	}
	if r.Password == "" {
		errs = append(errs, apperrors.FieldError{Field: "password", Message: "Password is required"})
	}
	return errs
}

// ActorResponse is the public view of an actor. It has no credential field.
type ActorResponse struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	FullName  FullNameDTO `json:"fullName"`
	Email     string      `json:"email"`
	SocketID  *string     `json:"socketId,omitempty"`
	Status    string      `json:"status,omitempty"`
	Vehicle   *VehicleDTO `json:"vehicle,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewActorResponse maps a domain actor to its public view.
func NewActorResponse(actor *domain.Actor) ActorResponse {
	resp := ActorResponse{
		ID:        actor.ID,
		Kind:      string(actor.Kind),
		FullName:  FullNameDTO{FirstName: actor.FullName.FirstName, LastName: actor.FullName.LastName},
		Email:     actor.Email,
		SocketID:  actor.SocketID,
		CreatedAt: actor.CreatedAt,
	}
	if actor.Captain != nil {
		resp.Status = string(actor.Captain.Status)
		resp.Vehicle = &VehicleDTO{
			Color:       actor.Captain.Vehicle.Color,
			Plate:       actor.Captain.Vehicle.Plate,
			Capacity:    actor.Captain.Vehicle.Capacity,
			VehicleType: string(actor.Captain.Vehicle.VehicleType),
		}
	}
	return resp
}

func tooShort(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) < n
}
