package cms

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// TokenConfig holds what the token codec needs to sign and verify.
type TokenConfig interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenExpiration() int
}

// AuthConfig extends TokenConfig with the request-side lookup settings.
type AuthConfig interface {
	TokenConfig
	GetCookieName() string
	GetAuthScheme() string
}

// TokenValidator validates tokens and extracts claims without tying
// callers to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*SessionClaims, error)
}

// Authenticator verifies credentials, issues tokens, and resolves a
// token subject back to a stored user.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	ResolveSubject(ctx context.Context, subject string) (*User, error)
	Validator() TokenValidator
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CMS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CMS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CMS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
