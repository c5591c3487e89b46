package cms

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Auther implements Authenticator on top of the users repository and
// the token codec.
type Auther struct {
	users  Users
	tokens *TokenService
	logger Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users Users, tokens *TokenService) *Auther {
	return &Auther{
		users:  users,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Validator exposes the token codec for the request middleware.
func (a *Auther) Validator() TokenValidator {
	return a.tokens
}

// Authenticate verifies email and password against the store. A
// missing user and a wrong password produce the same failure so the
// response cannot be used to enumerate accounts.
func (a *Auther) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return user, nil
}

// Login authenticates and issues a signed session token whose subject
// is the user's email.
func (a *Auther) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.Authenticate(ctx, email, password)
	if err != nil {
		a.logger.Error("login verify credentials error", "error", err)
		return "", err
	}

	token, err := a.tokens.Generate(user.Email)
	if err != nil {
		a.logger.Error("login token generation error", "error", err)
		return "", err
	}

	return token, nil
}

// ResolveSubject maps a verified token subject back to the stored user
// record. This is a fresh point read on every call, so deactivating an
// account takes effect on the very next request.
func (a *Auther) ResolveSubject(ctx context.Context, subject string) (*User, error) {
	user, err := a.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve token subject")
	}

	return user, nil
}

var _ Authenticator = (*Auther)(nil)
