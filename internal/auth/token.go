package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

var (
	// ErrSigningSecretMissing aborts startup when no signing secret is configured.
	ErrSigningSecretMissing = errors.New("auth: token signing secret is not configured")

	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager signing with secret.
func NewTokenManager(secret string) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSigningSecretMissing
	}
	return &TokenManager{secret: []byte(secret), ttl: domain.TokenTTL, now: time.Now}, nil
}

// Claims describes JWT payload. The actor id travels in the registered
// subject claim.
type Claims struct {
	Kind domain.ActorKind `json:"kind"`
	jwt.RegisteredClaims
}

// ActorID returns the subject of the token.
func (c *Claims) ActorID() string {
	return c.Subject
}

// Mint signs a token for the actor valid for the fixed token TTL.
func (tm *TokenManager) Mint(actorID string, kind domain.ActorKind) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// MintFor signs a token for any actor kind.
func (tm *TokenManager) MintFor(subject domain.Subject) (string, time.Time, error) {
	return tm.Mint(subject.SubjectID(), subject.SubjectKind())
}

// Verify validates signature and expiry and returns the claims. The returned
// error wraps both an auth sentinel and the jwt cause.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || !claims.Kind.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}
