package cms

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// SessionClaims is the payload of a session token: the subject (user
// email) plus the registered time claims. Tokens carry nothing else.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// Subject returns the identity claim (the user email).
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the absolute expiry instant, zero if unset.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// TokenService is the session token codec: it signs subjects into
// expiring tokens and verifies tokens back into claims.
type TokenService struct {
	signingKey      []byte
	method          jwt.SigningMethod
	tokenExpiration int
	logger          Logger
}

// NewTokenService builds the codec from the startup configuration. The
// signing method string was validated at config load, so an unknown
// value here is a programming error and panics.
func NewTokenService(cfg TokenConfig, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	method := jwt.GetSigningMethod(cfg.GetSigningMethod())
	if method == nil {
		panic("token service: unknown signing method " + cfg.GetSigningMethod())
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		panic("token service: only HMAC signing methods are supported")
	}

	return &TokenService{
		signingKey:      []byte(cfg.GetSigningKey()),
		method:          method,
		tokenExpiration: cfg.GetTokenExpiration(),
		logger:          logger,
	}
}

// Generate signs a token for subject, valid for exactly the configured
// window from now. There is no refresh or rotation mechanism.
func (ts *TokenService) Generate(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("subject must not be empty", errors.CategoryBadInput)
	}

	now := time.Now().UTC()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary session claims using the configured key.
func (ts *TokenService) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(ts.method, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signedString, nil
}

// Validate parses and verifies a token string. It never returns claims
// from an unverified payload: signature, expiry, and the presence of a
// subject are all checked before anything is handed back.
func (ts *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != ts.method.Alg() {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	if claims.Subject() == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}

var _ TokenValidator = (*TokenService)(nil)
