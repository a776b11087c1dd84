package domain

import "time"

// ActorKind discriminates the two principal families.
type ActorKind string

const (
	ActorKindUser    ActorKind = "user"
	ActorKindCaptain ActorKind = "captain"
)

// Valid reports whether k names a known actor family.
func (k ActorKind) Valid() bool {
	return k == ActorKindUser || k == ActorKindCaptain
}

// CaptainStatus is the availability of a captain.
type CaptainStatus string

const (
	CaptainStatusActive   CaptainStatus = "active"
	CaptainStatusInactive CaptainStatus = "inactive"
)

// VehicleType enumerates accepted vehicle classes.
type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeAuto       VehicleType = "auto"
)

// Valid reports whether v is an accepted vehicle class.
func (v VehicleType) Valid() bool {
	switch v {
	case VehicleTypeCar, VehicleTypeMotorcycle, VehicleTypeAuto:
		return true
	}
	return false
}

// FullName is the display name of an actor.
type FullName struct {
	FirstName string
	LastName  string
}

// Vehicle describes the vehicle a captain drives.
type Vehicle struct {
	Color       string
	Plate       string
	Capacity    int
	VehicleType VehicleType
}

// CaptainProfile holds the fields only captains carry.
type CaptainProfile struct {
	Status  CaptainStatus
	Vehicle Vehicle
}

// Actor is a user or a captain. Captain is set iff Kind is ActorKindCaptain.
type Actor struct {
	ID           string
	Kind         ActorKind
	FullName     FullName
	Email        string
	PasswordHash string `json:"-"`
	SocketID     *string
	Captain      *CaptainProfile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser builds an unsaved user actor.
func NewUser(name FullName, email string) *Actor {
	return &Actor{Kind: ActorKindUser, FullName: name, Email: email}
}

// NewCaptain builds an unsaved captain actor, inactive until it goes online.
func NewCaptain(name FullName, email string, vehicle Vehicle) *Actor {
	return &Actor{
		Kind:     ActorKindCaptain,
		FullName: name,
		Email:    email,
		Captain:  &CaptainProfile{Status: CaptainStatusInactive, Vehicle: vehicle},
	}
}

func (a *Actor) SubjectID() string      { return a.ID }
func (a *Actor) SubjectKind() ActorKind { return a.Kind }
func (a *Actor) CredentialHash() string { return a.PasswordHash }

// WithoutCredential returns a shallow copy with the credential hash cleared.
func (a *Actor) WithoutCredential() *Actor {
	if a == nil {
		return nil
	}
	cp := *a
	cp.PasswordHash = ""
	if a.Captain != nil {
		profile := *a.Captain
		cp.Captain = &profile
	}
	return &cp
}
