// Package guard authenticates fiber requests from a bearer token
// carried in the Authorization header or a session cookie, resolves the
// account behind it, and enforces an authorization policy.
package guard

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrMissingToken = errors.New("missing or malformed token")
	ErrInactive     = errors.New("inactive account")
	ErrNotSuperuser = errors.New("superuser privileges required")
)

// Policy selects the authorization check applied after authentication.
type Policy int

const (
	// PolicyActive requires a resolved account with an active flag.
	PolicyActive Policy = iota
	// PolicySuperuser additionally requires the superuser flag.
	PolicySuperuser
)

// Account is the resolved request identity. Declared here so the guard
// does not import the package that owns the user model.
type Account interface {
	IsActiveAccount() bool
	IsSuperuserAccount() bool
}

// Resolver validates a raw token and loads the account it names.
type Resolver func(ctx context.Context, token string) (Account, error)

type Config struct {
	// Resolver is required.
	Resolver Resolver
	// CookieName is the session cookie checked after the header.
	CookieName string
	// AuthScheme is the expected Authorization scheme prefix.
	AuthScheme string
	// ContextKey is where the resolved account lands in Locals.
	ContextKey string
	Policy     Policy
	// ErrorHandler receives extraction, resolution and policy errors.
	ErrorHandler func(c *fiber.Ctx, err error) error
}

func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		raw, err := ExtractToken(c, cfg.CookieName, cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		account, err := cfg.Resolver(c.UserContext(), raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if !account.IsActiveAccount() {
			return cfg.ErrorHandler(c, ErrInactive)
		}

		if cfg.Policy == PolicySuperuser && !account.IsSuperuserAccount() {
			return cfg.ErrorHandler(c, ErrNotSuperuser)
		}

		c.Locals(cfg.ContextKey, account)

		return c.Next()
	}
}

func configDefault(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Resolver == nil {
		panic("GUARD: middleware configuration: Resolver is required.")
	}

	if cfg.CookieName == "" {
		cfg.CookieName = "access_token"
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"detail": err.Error()})
		}
	}

	return cfg
}

// ExtractToken pulls the raw token from the Authorization header first,
// then from the named cookie. The cookie value may carry the scheme
// prefix as well, which is stripped.
func ExtractToken(c *fiber.Ctx, cookieName, authScheme string) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	l := len(authScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], authScheme) {
		return strings.TrimSpace(header[l:]), nil
	}

	if raw := c.Cookies(cookieName); raw != "" {
		if len(raw) > l+1 && strings.EqualFold(raw[:l], authScheme) {
			return strings.TrimSpace(raw[l:]), nil
		}
		return raw, nil
	}

	return "", ErrMissingToken
}

// AccountFromContext returns the account the guard stored for this
// request, or nil when the route is not guarded.
func AccountFromContext(c *fiber.Ctx, key string) Account {
	account, ok := c.Locals(key).(Account)
	if !ok {
		return nil
	}
	return account
}
