package errorutil

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// uniqueDetail matches the postgres detail line for 23505, e.g.
// `Key (email)=(a@b.com) already exists.`
var uniqueDetail = regexp.MustCompile(`Key \((.+?)\)=\((.*)\) already exists`)

// Normalize classifies any error into the taxonomy. It never returns nil for a
// non-nil err.
func Normalize(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped := fromPgError(pgErr); mapped != nil {
			return mapped.WithCause(err)
		}
		return NewInternalError(withStack(err))
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource").WithCause(err)
	}

	if isTokenError(err) {
		return NewUnauthorized("Authentication required").WithCause(err)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return New(KindForStatus(fiberErr.Code), fiberErr.Message).WithCause(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewUnavailable("Request timed out").WithCause(err)
	}

	if isBackendUnreachable(err) {
		return NewUnavailable("Service temporarily unavailable").WithCause(err)
	}

	return NewInternalError(withStack(err))
}

// isBackendUnreachable matches transport failures talking to redis or any
// other network dependency.
func isBackendUnreachable(err error) bool {
	if errors.Is(err, redis.ErrPoolTimeout) || errors.Is(err, redis.ErrClosed) || errors.Is(err, redis.ErrPoolExhausted) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// withStack makes sure an unexpected error carries a stacktrace for
// development responses and server logs.
func withStack(err error) error {
	if _, ok := oops.AsOops(err); ok {
		return err
	}
	return oops.Wrap(err)
}

func fromPgError(pgErr *pgconn.PgError) *StructuredError {
	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		field, value := uniqueKey(pgErr)
		return NewConflict("Duplicate value for unique field", FieldError{
			Field:   field,
			Message: field + " already exists",
			Value:   value,
		})
	case pgErr.Code == pgerrcode.NotNullViolation:
		field := columnField(pgErr)
		return NewValidationFailure("Validation failed", []FieldError{{
			Field:   field,
			Message: field + " is required",
		}})
	case pgErr.Code == pgerrcode.CheckViolation,
		pgErr.Code == pgerrcode.StringDataRightTruncationDataException:
		field := columnField(pgErr)
		return NewValidationFailure("Validation failed", []FieldError{{
			Field:   field,
			Message: field + " is invalid",
		}})
	case pgErr.Code == pgerrcode.InvalidTextRepresentation,
		pgErr.Code == pgerrcode.InvalidBinaryRepresentation:
		return NewBadRequest("Invalid identifier format")
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return NewUnavailable("Storage temporarily unavailable")
	}
	return nil
}

func uniqueKey(pgErr *pgconn.PgError) (string, any) {
	if m := uniqueDetail.FindStringSubmatch(pgErr.Detail); m != nil {
		return camelCase(m[1]), redact(m[1], m[2])
	}
	if pgErr.ColumnName != "" {
		return camelCase(pgErr.ColumnName), nil
	}
	return constraintField(pgErr, "_key"), nil
}

func columnField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return camelCase(pgErr.ColumnName)
	}
	return constraintField(pgErr, "_check")
}

// constraintField derives a field name from postgres' default constraint
// naming, <table>_<column>_<suffix>.
func constraintField(pgErr *pgconn.PgError, suffix string) string {
	name := pgErr.ConstraintName
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	name = strings.TrimSuffix(name, suffix)
	if name == "" {
		return "unknown"
	}
	return camelCase(name)
}

func camelCase(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

func isTokenError(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenNotValidYet) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims)
}

var sensitiveFields = []string{"password", "token", "hash", "secret"}

// IsSensitiveField reports whether values of the named field must never be echoed.
func IsSensitiveField(field string) bool {
	lower := strings.ToLower(field)
	for _, s := range sensitiveFields {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func redact(field string, value any) any {
	if IsSensitiveField(field) {
		return nil
	}
	return value
}
