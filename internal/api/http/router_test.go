package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ride-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/ride-auth-service/internal/auth"
	"github.com/spec-kit/ride-auth-service/internal/domain"
	"github.com/spec-kit/ride-auth-service/internal/events"
	"github.com/spec-kit/ride-auth-service/internal/observability"
	"github.com/spec-kit/ride-auth-service/internal/repository"
	"github.com/spec-kit/ride-auth-service/internal/service"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	app         *fiber.App
	tokens      *auth.TokenManager
	revocations *repository.MemoryRevocationStore
	logs        *observer.ObservedLogs
}

func newTestServer(t *testing.T, development bool) *testServer {
	t.Helper()

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager("router-test-secret")
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	revocations := repository.NewMemoryRevocationStore()

	directory := service.NewDirectory(hasher,
		repository.NewMemoryActorRepository(domain.ActorKindUser),
		repository.NewMemoryActorRepository(domain.ActorKindCaptain))
	authService := service.NewAuthService(service.AuthDependencies{
		Directory:   directory,
		Hasher:      hasher,
		Tokens:      tokens,
		Revocations: revocations,
		Dispatcher:  events.NewInMemoryDispatcher(logger),
		Logger:      logger,
	})

	mwCfg := MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     5 * time.Second,
		Development: development,
		Now:         func() time.Time { return fixedNow },
	}
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorResponder(mwCfg).Handle})
	RegisterMiddlewares(app, mwCfg)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("ride-auth-service", "test", map[string]handlers.Pinger{"postgres": nil}),
		Users:    handlers.NewActorHandler(domain.ActorKindUser, authService, false),
		Captains: handlers.NewActorHandler(domain.ActorKindCaptain, authService, false),
		Gate:     auth.NewGate(tokens, revocations, directory, metrics, logger),
		Gatherer: registry,
	})
	app.Get("/boom", func(*fiber.Ctx) error { panic("nil map write") })
	app.Get("/broken", func(*fiber.Ctx) error { return errors.New("dial tcp 10.0.0.5:5432: connection refused") })

	return &testServer{app: app, tokens: tokens, revocations: revocations, logs: logs}
}

type result struct {
	status  int
	body    map[string]any
	raw     string
	cookies []*nethttp.Cookie
}

func (s *testServer) do(t *testing.T, method, path string, payload any, prepare ...func(*nethttp.Request)) result {
	t.Helper()
	var reader io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		reader = strings.NewReader(p)
	default:
		buf, err := json.Marshal(p)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, fn := range prepare {
		fn(req)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	res := result{status: resp.StatusCode, raw: string(raw), cookies: resp.Cookies()}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &res.body), string(raw))
	}
	return res
}

func (r result) cookie(name string) *nethttp.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func withCookie(c *nethttp.Cookie) func(*nethttp.Request) {
	return func(r *nethttp.Request) { r.AddCookie(&nethttp.Cookie{Name: c.Name, Value: c.Value}) }
}

func withBearer(token string) func(*nethttp.Request) {
	return func(r *nethttp.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

var ann = map[string]any{
	"email":    "a@b.com",
	"fullName": map[string]any{"firstName": "Ann"},
	"password": "longpass1",
}

var captainCarl = map[string]any{
	"email":    "carl@b.com",
	"fullName": map[string]any{"firstName": "Carl", "lastName": "Jones"},
	"password": "longpass1",
	"vehicle":  map[string]any{"color": "red", "plate": "ABC123", "capacity": 4, "vehicleType": "car"},
}

func TestRegister_CreatesOnceThenConflicts(t *testing.T) {
	srv := newTestServer(t, false)

	first := srv.do(t, nethttp.MethodPost, "/users/register", ann)
	require.Equal(t, nethttp.StatusCreated, first.status, first.raw)
	assert.Equal(t, true, first.body["success"])
	assert.Equal(t, "Resource created successfully", first.body["message"])

	data := first.body["data"].(map[string]any)
	assert.Equal(t, "a@b.com", data["email"])
	assert.Equal(t, "Ann", data["fullName"].(map[string]any)["firstName"])
	assert.NotContains(t, first.raw, "password")
	assert.NotContains(t, first.raw, "longpass1")

	second := srv.do(t, nethttp.MethodPost, "/users/register", ann)
	assert.Equal(t, nethttp.StatusConflict, second.status)
	assert.Equal(t, "fail", second.body["status"])
	assert.Equal(t, "Conflict", second.body["errorType"])
	details := second.body["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "email", details[0].(map[string]any)["field"])
}

func TestRegister_ValidationReportsEveryField(t *testing.T) {
	srv := newTestServer(t, false)

	res := srv.do(t, nethttp.MethodPost, "/captains/register", map[string]any{
		"email":    "bad",
		"fullName": map[string]any{"firstName": "Al"},
		"password": "123",
		"vehicle":  map[string]any{"color": "red", "plate": "AB", "capacity": 0, "vehicleType": "boat"},
	})
	assert.Equal(t, nethttp.StatusUnprocessableEntity, res.status)
	assert.Equal(t, "ValidationFailure", res.body["errorType"])
	assert.Len(t, res.body["details"], 6)
	assert.NotContains(t, res.raw, "123\"", "password value must not be echoed")
}

func TestRegister_MalformedBody(t *testing.T) {
	srv := newTestServer(t, false)

	res := srv.do(t, nethttp.MethodPost, "/users/register", "{not json")
	assert.Equal(t, nethttp.StatusBadRequest, res.status)
	assert.Equal(t, "BadRequest", res.body["errorType"])
}

func TestLogin_WrongPasswordSetsNoCookie(t *testing.T) {
	srv := newTestServer(t, false)
	require.Equal(t, nethttp.StatusCreated, srv.do(t, nethttp.MethodPost, "/users/register", ann).status)

	res := srv.do(t, nethttp.MethodPost, "/users/login", map[string]any{"email": "a@b.com", "password": "wrong"})
	assert.Equal(t, nethttp.StatusUnauthorized, res.status)
	assert.Nil(t, res.cookie(auth.CookieName))

	unknown := srv.do(t, nethttp.MethodPost, "/users/login", map[string]any{"email": "x@b.com", "password": "wrong"})
	assert.Equal(t, res.body["message"], unknown.body["message"])
}

func TestLogin_MissingFields(t *testing.T) {
	srv := newTestServer(t, false)

	res := srv.do(t, nethttp.MethodPost, "/users/login", map[string]any{})
	assert.Equal(t, nethttp.StatusBadRequest, res.status)
	assert.Len(t, res.body["details"], 2)
}

func TestLogin_SetsCookieAndProfileWorks(t *testing.T) {
	srv := newTestServer(t, false)
	require.Equal(t, nethttp.StatusCreated, srv.do(t, nethttp.MethodPost, "/users/register", ann).status)

	login := srv.do(t, nethttp.MethodPost, "/users/login", map[string]any{"email": "a@b.com", "password": "longpass1"})
	require.Equal(t, nethttp.StatusOK, login.status, login.raw)
	assert.Equal(t, true, login.body["success"])
	assert.NotContains(t, login.raw, "passwordHash")
	assert.NotContains(t, login.raw, "$2a$")

	cookie := login.cookie(auth.CookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	data := login.body["data"].(map[string]any)
	assert.Equal(t, "a@b.com", data["email"])
	assert.NotContains(t, data, "token")
	assert.NotContains(t, login.raw, cookie.Value, "token travels only in the HTTP-only cookie")
	_, err := srv.tokens.Verify(cookie.Value)
	require.NoError(t, err)

	profile := srv.do(t, nethttp.MethodGet, "/users/profile", nil, withCookie(cookie))
	require.Equal(t, nethttp.StatusOK, profile.status, profile.raw)
	assert.Equal(t, "a@b.com", profile.body["data"].(map[string]any)["email"])

	other := srv.do(t, nethttp.MethodGet, "/captains/profile", nil, withCookie(cookie))
	assert.Equal(t, nethttp.StatusUnauthorized, other.status)
}

func TestProfile_RejectionsShareOneBody(t *testing.T) {
	srv := newTestServer(t, false)

	ghost, _, err := srv.tokens.Mint("6f1c2b1e-0000-4000-8000-000000000000", domain.ActorKindUser)
	require.NoError(t, err)

	missing := srv.do(t, nethttp.MethodGet, "/users/profile", nil)
	malformed := srv.do(t, nethttp.MethodGet, "/users/profile", nil, withBearer("abc.def.ghi"))
	deleted := srv.do(t, nethttp.MethodGet, "/users/profile", nil, withBearer(ghost))

	for _, res := range []result{missing, malformed, deleted} {
		assert.Equal(t, nethttp.StatusUnauthorized, res.status)
		assert.Equal(t, missing.raw, res.raw)
	}
	assert.Equal(t, "fail", missing.body["status"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), missing.body["timestamp"])
}

func TestCaptainLogout_RevokesToken(t *testing.T) {
	srv := newTestServer(t, false)
	require.Equal(t, nethttp.StatusCreated, srv.do(t, nethttp.MethodPost, "/captains/register", captainCarl).status)

	login := srv.do(t, nethttp.MethodPost, "/captains/login", map[string]any{"email": "carl@b.com", "password": "longpass1"})
	require.Equal(t, nethttp.StatusOK, login.status, login.raw)
	cookie := login.cookie(auth.CookieName)
	require.NotNil(t, cookie)

	require.Equal(t, nethttp.StatusOK, srv.do(t, nethttp.MethodGet, "/captains/profile", nil, withCookie(cookie)).status)

	logout := srv.do(t, nethttp.MethodPost, "/captains/logout", nil, withCookie(cookie))
	assert.Equal(t, nethttp.StatusOK, logout.status)
	if cleared := logout.cookie(auth.CookieName); assert.NotNil(t, cleared) {
		assert.Empty(t, cleared.Value)
	}
	assert.Equal(t, 1, srv.revocations.Len())

	// The signature and expiry are still valid; only the revocation entry stops it.
	_, err := srv.tokens.Verify(cookie.Value)
	require.NoError(t, err)
	again := srv.do(t, nethttp.MethodGet, "/captains/profile", nil, withBearer(cookie.Value))
	assert.Equal(t, nethttp.StatusUnauthorized, again.status)
}

func TestUserLogout_AlwaysSucceeds(t *testing.T) {
	srv := newTestServer(t, false)

	res := srv.do(t, nethttp.MethodPost, "/users/logout", nil)
	assert.Equal(t, nethttp.StatusOK, res.status)
	assert.Zero(t, srv.revocations.Len())
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, false)

	res := srv.do(t, nethttp.MethodGet, "/nowhere", nil)
	assert.Equal(t, nethttp.StatusNotFound, res.status)
	assert.Equal(t, "NotFound", res.body["errorType"])
}

func TestInternalErrors_MaskedInProduction(t *testing.T) {
	srv := newTestServer(t, false)

	for _, path := range []string{"/broken", "/boom"} {
		res := srv.do(t, nethttp.MethodGet, path, nil)
		assert.Equal(t, nethttp.StatusInternalServerError, res.status)
		assert.Equal(t, map[string]any{
			"status":    "error",
			"message":   "Internal server error",
			"errorType": "InternalError",
			"timestamp": fixedNow.Format(time.RFC3339),
		}, res.body)
		assert.NotContains(t, res.raw, "10.0.0.5")
	}
	assert.Equal(t, 2, srv.logs.FilterMessage("request failed").Len())
}

func TestInternalErrors_DetailedInDevelopment(t *testing.T) {
	srv := newTestServer(t, true)

	res := srv.do(t, nethttp.MethodGet, "/broken", nil)
	assert.Equal(t, nethttp.StatusInternalServerError, res.status)
	assert.Contains(t, res.body["error"], "10.0.0.5")
	assert.NotEmpty(t, res.body["stack"])

	panicked := srv.do(t, nethttp.MethodGet, "/boom", nil)
	assert.Equal(t, nethttp.StatusInternalServerError, panicked.status)
	assert.Contains(t, panicked.body["error"], "nil map write")
	assert.NotEmpty(t, panicked.body["stack"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, false)

	live := srv.do(t, nethttp.MethodGet, "/health/live", nil)
	assert.Equal(t, nethttp.StatusOK, live.status)
	assert.Equal(t, "alive", live.body["status"])

	ready := srv.do(t, nethttp.MethodGet, "/health/ready", nil)
	assert.Equal(t, nethttp.StatusOK, ready.status)
	assert.Equal(t, "disabled", ready.body["dependencies"].(map[string]any)["postgres"])

	srv.do(t, nethttp.MethodGet, "/users/profile", nil)
	metrics := srv.do(t, nethttp.MethodGet, "/metrics", nil)
	assert.Equal(t, nethttp.StatusOK, metrics.status)
	assert.Contains(t, metrics.raw, `ride_auth_gate_attempts_total{kind="user",outcome="fail",stage="start"} 1`)
}
