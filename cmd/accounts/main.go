package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/controller"
	"github.com/goliatone/go-accounts/middleware/csrf"
	"github.com/goliatone/go-accounts/middleware/jwtware"
	"github.com/goliatone/go-accounts/notification"
	"github.com/goliatone/go-accounts/repository"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

//go:embed views
var viewsFS embed.FS

func main() {
	cfg, err := loadConfig(envFilePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	zl, err := newZapLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()

	if err := run(context.Background(), cfg, zl); err != nil {
		zl.Fatal("accounts service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg Config, zl *zap.Logger) error {
	logger := zapLogger{log: zl.Sugar()}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	group, err := repository.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group != nil && !group.IsZero() {
		logger.Info("applied migrations %s", group)
	}

	repo := repository.NewRepositoryManager(db)
	repo.MustValidate()

	dispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}

	options := cfg.accountsOptions()
	service := accounts.NewRegistrationService(repo.Accounts(),
		accounts.WithConfig(options),
		accounts.WithNotificationDispatcher(dispatcher),
		accounts.WithActivitySink(accounts.NewFilteredActivitySink(activityLogger(zl.Named("activity")), cfg.eventOptions())),
		accounts.WithLogger(logger),
	)

	srv, err := newHTTPServer()
	if err != nil {
		return err
	}

	controllerOpts := []controller.RegistrationControllerOption{
		controller.WithService(service),
		controller.WithLogger(logger),
		controller.WithDebug(cfg.Debug),
		controller.WithRoutes(controller.RoutesFromConfig(options)),
	}

	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	if cfg.JWTSecret != "" {
		issuer := controller.NewJWTSessionIssuer(cfg.JWTSecret)
		issuer.Issuer = cfg.JWTIssuer
		issuer.CookieName = cfg.SessionCookie
		issuer.Duration = cfg.SessionTimeout
		controllerOpts = append(controllerOpts, controller.WithSessionIssuer(issuer))

		srv.Router().Use(jwtware.New(jwtware.Config{
			TokenValidator: issuer,
			TokenLookup:    issuer.TokenLookup(),
			Optional:       true,
		}))
	} else {
		logger.Warn("JWT_SECRET not set, sessions will not be issued")
	}

	switch {
	case cfg.CSRFSecret == "":
		logger.Warn("CSRF_SECRET not set, form tokens will not survive a restart")
	case len(cfg.CSRFSecret) < csrf.MinSecureKeyLength:
		return fmt.Errorf("CSRF_SECRET must be at least %d bytes", csrf.MinSecureKeyLength)
	}
	srv.Router().Use(csrf.New(csrf.Config{
		SecureKey:  []byte(cfg.CSRFSecret),
		Expiration: cfg.CSRFExpiration,
	}))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("index", router.ViewContext{})
	})

	srv.Router().Get(options.GetRoutes().Login, func(ctx router.Context) error {
		return ctx.Render("login", router.ViewContext{
			"return_url": ctx.Query("returnUrl"),
		})
	})

	controller.RegisterRoutes(srv.Router(), controllerOpts...)

	logger.Info("accounts service listening on %s", cfg.Addr)
	srv.Serve(cfg.Addr)

	sig := WaitExitSignal()
	logger.Info("received %s, shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func openDB(cfg Config) (*bun.DB, error) {
	switch cfg.DBDriver {
	case "postgres", "pg":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DBDSN)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case "sqlite", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db := bun.NewDB(sqldb, sqlitedialect.New())
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

func newDispatcher(cfg Config, logger accounts.Logger) (accounts.NotificationDispatcher, error) {
	switch cfg.MailMode {
	case "smtp":
		return notification.NewEmailDispatcher(cfg.smtpConfig(), notification.WithLogger(logger))
	case "console", "":
		return notification.NewConsoleDispatcher(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unsupported mail mode %q", cfg.MailMode)
	}
}

func newHTTPServer() (router.Server[*fiber.App], error) {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	return srv, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
