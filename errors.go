package cms

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("session token has expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures, garbage payloads, and tokens
// signed with an unexpected method.
var ErrTokenMalformed = errors.New("invalid session token", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrMissingSubject is returned when a structurally valid token carries
// no subject claim. A verified token is still useless without one.
var ErrMissingSubject = errors.New("session token has no subject", errors.CategoryAuth).
	WithTextCode("TOKEN_NO_SUBJECT").
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the single failure for both an
// unknown email and a wrong password, so responses do not leak which
// accounts exist.
var ErrMismatchedHashAndPassword = errors.New("Incorrect email or password", errors.CategoryAuth).
	WithTextCode("BAD_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_VALUE")

// ErrNotAuthenticated is the immediate failure when neither the
// authorization header nor the cookie yields a token.
var ErrNotAuthenticated = errors.New("Not authenticated", errors.CategoryAuth).
	WithTextCode("NOT_AUTHENTICATED").
	WithCode(errors.CodeUnauthorized)

// ErrUserNotActive blocks inactive accounts at the guard.
var ErrUserNotActive = errors.New("Authentication required: user is not active", errors.CategoryAuth).
	WithTextCode("USER_INACTIVE").
	WithCode(errors.CodeUnauthorized)

// ErrNotSuperuser blocks non-superusers at the superuser guard. The
// source system reports 401 here rather than 403; preserved.
var ErrNotSuperuser = errors.New("Authentication required: user is not a superuser", errors.CategoryAuth).
	WithTextCode("NOT_SUPERUSER").
	WithCode(errors.CodeUnauthorized)

// ErrOwnershipRequired is the self-or-superuser failure on user edit
// and delete. Also 401 in the source; preserved.
var ErrOwnershipRequired = errors.New("You don't have permission to modify this user", errors.CategoryAuth).
	WithTextCode("NOT_OWNER").
	WithCode(errors.CodeUnauthorized)

// ErrInvalidSecretToken rejects superuser provisioning with a wrong
// shared secret.
var ErrInvalidSecretToken = errors.New("Invalid secret token", errors.CategoryAuth).
	WithTextCode("BAD_SECRET_TOKEN").
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken surfaces the unique-email violation. The source maps
// this conflict to 400, not 409; preserved.
var ErrEmailTaken = errors.New("Email already registered", errors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is the 404 for user point reads.
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrProductNotFound is the 404 for product point reads.
var ErrProductNotFound = errors.New("Product not found", errors.CategoryNotFound).
	WithTextCode("PRODUCT_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrDuplicateLanguage rejects product payloads carrying two
// translations for the same language.
var ErrDuplicateLanguage = errors.New("duplicate translation language", errors.CategoryValidation).
	WithTextCode("DUPLICATE_LANGUAGE")

// HTTPStatus maps a rich error to the status the API reports. The
// source system collapses every auth and authorization failure to 401,
// uses 400 for conflicts and unsupported formats, and 422 for payload
// validation; that mapping is preserved here.
func HTTPStatus(err error) int {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return http.StatusInternalServerError
	}

	switch rich.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return http.StatusUnauthorized
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case errors.CategoryConflict, errors.CategoryBadInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsAuthError reports whether err should carry a WWW-Authenticate
// challenge in the response.
func IsAuthError(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.Category == errors.CategoryAuth || rich.Category == errors.CategoryAuthz
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) || strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation detects datastore uniqueness failures across the
// two engines in use (Postgres in production, SQLite in tests) so the
// command layer can roll back and surface a conflict.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") || // pgdriver
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}
