package cms

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-errors"
)

// AccessTokenExpireDays is the fixed session validity window.
const AccessTokenExpireDays = 1

// Config is the immutable process configuration, loaded once at
// startup and passed by reference to the components that need it.
// There is no ambient global state.
type Config struct {
	Port       string
	Production bool

	SecretKey      string
	Algorithm      string
	SuperuserToken string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	ImagesDir    string
	WebPQuality  float32
	CookieName   string
	AuthScheme   string
	AllowOrigins string
}

// LoadConfig reads the environment. A missing token secret or signing
// algorithm is a fatal condition: the codec cannot run without them.
func LoadConfig() (*Config, error) {
	secret := os.Getenv("SECRET_KEY")
	algorithm := os.Getenv("ALGORITHM")

	if secret == "" || algorithm == "" {
		return nil, errors.New("SECRET_KEY and ALGORITHM must be set", errors.CategoryOperation).
			WithTextCode("MISSING_TOKEN_CONFIG")
	}

	switch algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, errors.New(
			fmt.Sprintf("unsupported signing algorithm %q", algorithm),
			errors.CategoryOperation,
		).WithTextCode("BAD_ALGORITHM")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "unable to resolve working directory")
	}

	cfg := &Config{
		Port:       envOr("PORT", "8002"),
		Production: os.Getenv("PRODUCTION") != "",

		SecretKey:      secret,
		Algorithm:      algorithm,
		SuperuserToken: os.Getenv("SUPERUSER_SECRET_TOKEN"),

		DBUser:     envOr("POSTGRES_USER", "postgres"),
		DBPassword: os.Getenv("POSTGRES_PASSWORD"),
		DBHost:     envOr("POSTGRES_HOST", "localhost"),
		DBPort:     envOr("POSTGRES_PORT", "5432"),
		DBName:     envOr("POSTGRES_DB", "cms"),

		ImagesDir:    envOr("IMAGES_PATH", filepath.Join(cwd, "images")),
		WebPQuality:  85,
		CookieName:   "access_token",
		AuthScheme:   "Bearer",
		AllowOrigins: envOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DSN builds the Postgres connection string for pgdriver.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// ImageRoots returns the three tier storage roots, largest first.
func (c *Config) ImageRoots() (large, medium, small string) {
	return filepath.Join(c.ImagesDir, "large"),
		filepath.Join(c.ImagesDir, "medium"),
		filepath.Join(c.ImagesDir, "small")
}

func (c *Config) GetSigningKey() string { return c.SecretKey }

func (c *Config) GetSigningMethod() string { return c.Algorithm }

// GetTokenExpiration is the validity window in hours.
func (c *Config) GetTokenExpiration() int { return AccessTokenExpireDays * 24 }

func (c *Config) GetCookieName() string { return c.CookieName }

func (c *Config) GetAuthScheme() string { return c.AuthScheme }

var _ AuthConfig = (*Config)(nil)
