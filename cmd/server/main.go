package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	cms "github.com/mvoicu/catalog-cms"
	"github.com/mvoicu/catalog-cms/imaging"
)

// zeroLogger adapts zerolog to the application logger.
type zeroLogger struct{}

func (zeroLogger) Debug(format string, args ...any) { log.Debug().Msgf(format, args...) }
func (zeroLogger) Info(format string, args ...any)  { log.Info().Msgf(format, args...) }
func (zeroLogger) Error(format string, args ...any) { log.Error().Msgf(format, args...) }

func main() {
	cfg, err := cms.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Production {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zeroLogger{}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN())))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cms.CreateSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	repo := cms.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		log.Fatal().Err(err).Msg("repository setup failed")
	}

	tokens := cms.NewTokenService(cfg, logger)
	auth := cms.NewAuthenticator(repo.Users(), tokens).WithLogger(logger)

	auther, err := cms.NewHTTPAuthenticator(auth, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("authenticator setup failed")
	}
	auther.WithSecureCookies(cfg.Production)
	auther.Logger = logger

	large, medium, small := cfg.ImageRoots()
	pipeline := imaging.New(large, medium, small, cfg.WebPQuality)

	app := fiber.New(fiber.Config{
		AppName: "catalog-cms",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return cms.RespondError(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowCredentials: true,
	}))

	app.Static("/images/large", large)
	app.Static("/images/medium", medium)
	app.Static("/images/small", small)

	cms.RegisterUserRoutes(app, func(c *cms.UserController) *cms.UserController {
		c.Logger = logger
		c.Repo = repo
		c.Auther = auther
		c.SuperuserToken = cfg.SuperuserToken
		return c
	})

	cms.RegisterProductRoutes(app, func(c *cms.ProductController) *cms.ProductController {
		c.Logger = logger
		c.Repo = repo
		c.Auther = auther
		c.Images = pipeline
		return c
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("catalog-cms listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
