package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ride-auth-service/internal/auth"
	"github.com/spec-kit/ride-auth-service/internal/domain"
	"github.com/spec-kit/ride-auth-service/internal/events"
	"github.com/spec-kit/ride-auth-service/internal/repository"
	apperrors "github.com/spec-kit/ride-auth-service/pkg/util/errorutil"
)

const invalidCredentialsMessage = "Invalid email or password"

// Session is the result of a successful login.
type Session struct {
	Actor     *domain.Actor
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration, login and logout flows.
type AuthService struct {
	directory   *Directory
	hasher      *auth.PasswordHasher
	tokenMgr    *auth.TokenManager
	revocations repository.RevocationStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Directory   *Directory
	Hasher      *auth.PasswordHasher
	Tokens      *auth.TokenManager
	Revocations repository.RevocationStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		directory:   deps.Directory,
		hasher:      deps.Hasher,
		tokenMgr:    deps.Tokens,
		revocations: deps.Revocations,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// Register creates a new actor of the kind carried by actor.
func (s *AuthService) Register(ctx context.Context, actor *domain.Actor, password string) (*domain.Actor, error) {
	created, err := s.directory.Create(ctx, actor, password)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventActorRegistered, created.ID, created.Kind, nil))
	return created, nil
}

// Login checks credentials and mints a token. Unknown email and wrong
// password fail identically.
func (s *AuthService) Login(ctx context.Context, kind domain.ActorKind, email, password string) (*Session, error) {
	actor, err := s.directory.FindByContact(ctx, kind, email, true)
	if err != nil {
		return nil, err
	}
	if actor == nil || !s.hasher.Verify(password, actor.CredentialHash()) {
		return nil, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}

	token, exp, err := s.tokenMgr.MintFor(actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventActorLoggedIn, actor.ID, actor.Kind, nil))
	return &Session{Actor: actor.WithoutCredential(), Token: token, ExpiresAt: exp}, nil
}

// Logout ends a session. Captain tokens that still verify are revoked so
// they cannot be replayed before expiry; user logout only clears the
// client cookie. It reports whether a revocation entry was written.
func (s *AuthService) Logout(ctx context.Context, kind domain.ActorKind, token string) (bool, error) {
	if kind != domain.ActorKindCaptain || token == "" {
		return false, nil
	}
	claims, err := s.tokenMgr.Verify(token)
	if err != nil || claims.Kind != kind {
		return false, nil
	}
	if err := s.revocations.Add(ctx, token); err != nil {
		return false, err
	}
	s.publish(ctx, events.NewEvent(events.EventActorLoggedOut, claims.ActorID(), kind, events.LoggedOutPayload{Revoked: true}))
	return true, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auth event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
