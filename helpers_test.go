package cms_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	cms "github.com/mvoicu/catalog-cms"
	"github.com/mvoicu/catalog-cms/imaging"
)

type testEnv struct {
	app    *fiber.App
	db     *bun.DB
	cfg    *cms.Config
	repo   cms.RepositoryManager
	auther *cms.RouteAuthenticator
}

func testDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, cms.CreateSchema(context.Background(), db))

	t.Cleanup(func() { db.Close() })

	return db
}

func testConfig(t *testing.T) *cms.Config {
	t.Helper()

	return &cms.Config{
		Port:           "0",
		SecretKey:      "test-signing-key",
		Algorithm:      "HS256",
		SuperuserToken: "provisioning-secret",
		ImagesDir:      t.TempDir(),
		WebPQuality:    85,
		CookieName:     "access_token",
		AuthScheme:     "Bearer",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	cfg := testConfig(t)
	repo := cms.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())

	tokens := cms.NewTokenService(cfg, nil)
	auth := cms.NewAuthenticator(repo.Users(), tokens)

	auther, err := cms.NewHTTPAuthenticator(auth, cfg)
	require.NoError(t, err)

	large, medium, small := cfg.ImageRoots()
	pipeline := imaging.New(large, medium, small, cfg.WebPQuality)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return cms.RespondError(c, err)
		},
	})

	cms.RegisterUserRoutes(app, func(c *cms.UserController) *cms.UserController {
		c.Repo = repo
		c.Auther = auther
		c.SuperuserToken = cfg.SuperuserToken
		return c
	})

	cms.RegisterProductRoutes(app, func(c *cms.ProductController) *cms.ProductController {
		c.Repo = repo
		c.Auther = auther
		c.Images = pipeline
		return c
	})

	return &testEnv{
		app:    app,
		db:     db,
		cfg:    cfg,
		repo:   repo,
		auther: auther,
	}
}

func (e *testEnv) createUser(t *testing.T, name, email, password string) *cms.User {
	t.Helper()

	user, err := cms.NewRegisterUserHandler(e.repo).
		Execute(context.Background(), cms.RegisterUserMessage{
			Name:     name,
			Email:    email,
			Password: password,
		})
	require.NoError(t, err)

	return user
}

func (e *testEnv) setFlags(t *testing.T, user *cms.User, active, superuser bool) *cms.User {
	t.Helper()

	updated, err := cms.NewUpdateUserHandler(e.repo).
		Execute(context.Background(), cms.UpdateUserMessage{
			UserID:      user.ID,
			IsActive:    &active,
			IsSuperuser: &superuser,
			AllowFlags:  true,
		})
	require.NoError(t, err)

	return updated
}

// login posts the OAuth2-style credentials form and returns the token
// from the response body.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	resp := e.postForm(t, "/user/token", url.Values{
		"username": {email},
		"password": {password},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["access_token"])

	return body["access_token"]
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func (e *testEnv) request(t *testing.T, method, path, token string, body io.Reader) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func detailOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeJSON[map[string]any](t, resp)
	detail, _ := body["detail"].(string)
	return detail
}
