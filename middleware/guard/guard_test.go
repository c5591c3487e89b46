package guard_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoicu/catalog-cms/middleware/guard"
)

type stubAccount struct {
	active    bool
	superuser bool
}

func (s stubAccount) IsActiveAccount() bool    { return s.active }
func (s stubAccount) IsSuperuserAccount() bool { return s.active && s.superuser }

func newGuardedApp(account guard.Account, resolveErr error, policy guard.Policy) *fiber.App {
	app := fiber.New()

	app.Get("/protected", guard.New(guard.Config{
		Resolver: func(ctx context.Context, token string) (guard.Account, error) {
			if resolveErr != nil {
				return nil, resolveErr
			}
			if token != "valid-token" {
				return nil, errors.New("token is malformed")
			}
			return account, nil
		},
		Policy: policy,
	}), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	return app
}

func testRequest(t *testing.T, app *fiber.App, mutate func(*http.Request)) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGuardTokenExtraction(t *testing.T) {
	app := newGuardedApp(stubAccount{active: true}, nil, guard.PolicyActive)

	t.Run("no token at all is rejected before decoding", func(t *testing.T) {
		resp := testRequest(t, app, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
	})

	t.Run("bearer header is accepted", func(t *testing.T) {
		resp := testRequest(t, app, func(r *http.Request) {
			r.Header.Set(fiber.HeaderAuthorization, "Bearer valid-token")
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("cookie fallback is accepted", func(t *testing.T) {
		resp := testRequest(t, app, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "valid-token"})
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("cookie with scheme prefix is stripped", func(t *testing.T) {
		resp := testRequest(t, app, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "Bearer valid-token"})
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		resp := testRequest(t, app, func(r *http.Request) {
			r.Header.Set(fiber.HeaderAuthorization, "Bearer valid-token")
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "stale-token"})
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("bad token is rejected", func(t *testing.T) {
		resp := testRequest(t, app, func(r *http.Request) {
			r.Header.Set(fiber.HeaderAuthorization, "Bearer expired-token")
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestGuardPolicies(t *testing.T) {
	withToken := func(r *http.Request) {
		r.Header.Set(fiber.HeaderAuthorization, "Bearer valid-token")
	}

	t.Run("inactive account fails the active policy", func(t *testing.T) {
		app := newGuardedApp(stubAccount{active: false}, nil, guard.PolicyActive)
		resp := testRequest(t, app, withToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("active non-superuser fails the superuser policy", func(t *testing.T) {
		app := newGuardedApp(stubAccount{active: true}, nil, guard.PolicySuperuser)
		resp := testRequest(t, app, withToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("inactive superuser fails the superuser policy", func(t *testing.T) {
		app := newGuardedApp(stubAccount{active: false, superuser: true}, nil, guard.PolicySuperuser)
		resp := testRequest(t, app, withToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("active superuser passes", func(t *testing.T) {
		app := newGuardedApp(stubAccount{active: true, superuser: true}, nil, guard.PolicySuperuser)
		resp := testRequest(t, app, withToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body["ok"])
	})
}
