package cms

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/mvoicu/catalog-cms/middleware/guard"
)

// UserContextKey is where guarded routes find the resolved account.
const UserContextKey = "current_user"

// RouteAuthenticator glues the authenticator to the HTTP surface. It
// issues the session cookie on login, clears it on logout, and builds
// the guard middleware for protected routes.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            AuthConfig
	cookieDuration time.Duration
	secureCookies  bool
	Logger         Logger
}

func NewHTTPAuthenticator(auther Authenticator, cfg AuthConfig) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	return a, nil
}

// WithSecureCookies marks the session cookie Secure. Off by default so
// local development over plain HTTP keeps working.
func (a *RouteAuthenticator) WithSecureCookies(secure bool) *RouteAuthenticator {
	a.secureCookies = secure
	return a
}

func (a *RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Login authenticates the credentials and sets the session cookie. The
// raw token is returned so handlers can include it in the body too.
func (a *RouteAuthenticator) Login(c *fiber.Ctx, email, password string) (string, error) {
	token, err := a.auth.Login(c.UserContext(), email, password)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return "", err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	return token, nil
}

func (a *RouteAuthenticator) Logout(c *fiber.Ctx) {
	a.cookieDel(c, a.cfg.GetCookieName())
}

// Protected builds the guard middleware for the given policy.
func (a *RouteAuthenticator) Protected(policy guard.Policy) fiber.Handler {
	return guard.New(guard.Config{
		Resolver:     a.resolver(),
		CookieName:   a.cfg.GetCookieName(),
		AuthScheme:   a.cfg.GetAuthScheme(),
		ContextKey:   UserContextKey,
		Policy:       policy,
		ErrorHandler: a.AuthErrorHandler,
	})
}

// resolver validates the raw token and loads the account it names. The
// lookup runs on every request so deactivated or deleted users lose
// access as soon as their row changes.
func (a *RouteAuthenticator) resolver() guard.Resolver {
	return func(ctx context.Context, raw string) (guard.Account, error) {
		claims, err := a.auth.Validator().Validate(raw)
		if err != nil {
			return nil, err
		}

		user, err := a.auth.ResolveSubject(ctx, claims.Subject())
		if err != nil {
			return nil, err
		}

		return user, nil
	}
}

// AuthErrorHandler normalizes guard failures into the error envelope.
func (a *RouteAuthenticator) AuthErrorHandler(c *fiber.Ctx, err error) error {
	var richErr *errors.Error

	switch {
	case err == guard.ErrMissingToken:
		richErr = ErrNotAuthenticated
	case err == guard.ErrInactive:
		richErr = ErrUserNotActive
	case err == guard.ErrNotSuperuser:
		richErr = ErrNotSuperuser
	case IsTokenExpiredError(err):
		richErr = ErrTokenExpired
	case IsMalformedError(err):
		richErr = ErrTokenMalformed
	case errors.IsNotFound(err):
		// token subject no longer maps to an account
		richErr = ErrNotAuthenticated
	case errors.As(err, &richErr):
	default:
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info("auth rejected: %s %s: %s", c.Method(), c.Path(), richErr.Message)

	return RespondError(c, richErr)
}

// CurrentUser returns the account the guard resolved for this request.
func CurrentUser(c *fiber.Ctx) *User {
	user, ok := c.Locals(UserContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// RespondError writes err as the detail envelope with the status mapped
// from its category. Unauthorized responses carry the challenge header.
func RespondError(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)

	if IsAuthError(err) {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}

	detail := "An unexpected server error occurred"
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		detail = richErr.Message
	}

	return c.Status(status).JSON(fiber.Map{"detail": detail})
}

func (a *RouteAuthenticator) setCookieToken(c *fiber.Ctx, val string, duration time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    val,
		MaxAge:   int(duration.Seconds()),
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
