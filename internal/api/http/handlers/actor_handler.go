package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ride-auth-service/internal/api/dto"
	"github.com/spec-kit/ride-auth-service/internal/auth"
	"github.com/spec-kit/ride-auth-service/internal/domain"
	"github.com/spec-kit/ride-auth-service/internal/service"
	apperrors "github.com/spec-kit/ride-auth-service/pkg/util/errorutil"
	"github.com/spec-kit/ride-auth-service/pkg/util/response"
)

// ActorHandler exposes the auth endpoints of one actor kind.
type ActorHandler struct {
	kind         domain.ActorKind
	auth         *service.AuthService
	cookieSecure bool
}

// NewActorHandler constructs handler.
func NewActorHandler(kind domain.ActorKind, authService *service.AuthService, cookieSecure bool) *ActorHandler {
	return &ActorHandler{kind: kind, auth: authService, cookieSecure: cookieSecure}
}

// Register handles POST /{kind}s/register.
func (h *ActorHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("Invalid request body").WithCause(err)
	}
	if errs := req.Validate(h.kind); len(errs) > 0 {
		return apperrors.NewValidationFailure("Validation failed", errs)
	}

	actor, err := h.auth.Register(c.UserContext(), req.ToActor(h.kind), req.Password)
	if err != nil {
		return err
	}
	return response.Created(c, "", dto.NewActorResponse(actor))
}

// Login handles POST /{kind}s/login.
func (h *ActorHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("Invalid request body").WithCause(err)
	}
	if errs := req.Validate(); len(errs) > 0 {
		return apperrors.NewBadRequest("Email and password are required", errs...)
	}

	session, err := h.auth.Login(c.UserContext(), h.kind, req.Email, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(domain.TokenTTL / time.Second),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return response.OK(c, "Login successful", dto.NewActorResponse(session.Actor))
}

// Logout handles POST /{kind}s/logout. It always succeeds and clears the
// token cookie.
func (h *ActorHandler) Logout(c *fiber.Ctx) error {
	if _, err := h.auth.Logout(c.UserContext(), h.kind, auth.ExtractToken(c)); err != nil {
		return err
	}
	c.ClearCookie(auth.CookieName)
	return response.OK(c, "Logged out", nil)
}

// Profile handles GET /{kind}s/profile behind the auth gate.
func (h *ActorHandler) Profile(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Authentication required")
	}
	return response.OK(c, "", dto.NewActorResponse(actor))
}
