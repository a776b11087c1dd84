package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/spec-kit/ride-auth-service/internal/observability"
	apperrors "github.com/spec-kit/ride-auth-service/pkg/util/errorutil"
)

// MiddlewareConfig bundles what the global middlewares need.
type MiddlewareConfig struct {
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Timeout     time.Duration
	Development bool
	Now         func() time.Time
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(errorHandlingMiddleware(NewErrorResponder(cfg)))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// ErrorResponder turns any error into the JSON error envelope.
type ErrorResponder struct {
	logger      *zap.Logger
	metrics     *observability.Metrics
	development bool
	now         func() time.Time
}

// NewErrorResponder builds a responder from the middleware config.
func NewErrorResponder(cfg MiddlewareConfig) *ErrorResponder {
	r := &ErrorResponder{
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		development: cfg.Development,
		now:         cfg.Now,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Handle is usable as fiber.Config.ErrorHandler.
func (r *ErrorResponder) Handle(c *fiber.Ctx, err error) error {
	se := apperrors.Normalize(err)
	if se == nil {
		return nil
	}

	route := c.Path()
	if rt := c.Route(); rt != nil && rt.Path != "" && rt.Path != "/" {
		route = rt.Path
	}
	r.metrics.RecordError(route, c.Method(), string(se.Kind))

	if !se.Operational {
		fields := []zap.Field{
			zap.String("route", route),
			zap.String("method", c.Method()),
			zap.String("error_type", string(se.Kind)),
			zap.Error(err),
		}
		if oopsErr, ok := oops.AsOops(err); ok {
			fields = append(fields, zap.String("stack", oopsErr.Stacktrace()))
		}
		r.logger.Error("request failed", fields...)
	}

	return c.Status(se.Status).JSON(apperrors.Serialize(se, r.development, r.now().UTC()))
}

func errorHandlingMiddleware(responder *ErrorResponder) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = oops.Code("PANIC").With("panic", r).Errorf("panic recovered: %v", r)
			}
			if err != nil {
				err = responder.Handle(c, err)
			}
		}()
		return c.Next()
	}
}
