package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accounts_service/internal/auth"
	"accounts_service/internal/config"
	changePassword "accounts_service/internal/http_server/handlers/change_password"
	deleteAccount "accounts_service/internal/http_server/handlers/delete_account"
	deleteUser "accounts_service/internal/http_server/handlers/delete_user"
	forgotPassword "accounts_service/internal/http_server/handlers/forgot_password"
	"accounts_service/internal/http_server/handlers/login"
	"accounts_service/internal/http_server/handlers/logout"
	"accounts_service/internal/http_server/handlers/refresh"
	"accounts_service/internal/http_server/handlers/register"
	resendEmail "accounts_service/internal/http_server/handlers/resend_verification_email"
	resetPassword "accounts_service/internal/http_server/handlers/reset_password"
	"accounts_service/internal/http_server/handlers/verify"
	"accounts_service/internal/lib/hasher"
	"accounts_service/internal/lib/jwt"
	sl "accounts_service/internal/lib/logger"
	"accounts_service/internal/lib/mail"
	"accounts_service/internal/lib/validation"
	"accounts_service/internal/lib/verification"
	"accounts_service/internal/middleware/authn"
	"accounts_service/internal/middleware/authz"
	"accounts_service/internal/models"
	"accounts_service/internal/rabbitmq"
	"accounts_service/internal/storage/memory"
	"accounts_service/internal/storage/postgres"
	"accounts_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type accountStore interface {
	auth.UserDirectory
	auth.RefreshTokenStore
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting accounts service",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("one_time_tokens", cfg.OneTimeTokenDriver()),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	accounts, resets, closeStorage, err := setupStorage(ctx, log, cfg)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer closeStorage()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	renderer, err := mail.NewRenderer()
	if err != nil {
		log.Error("failed to parse email templates", sl.Err(err))
		os.Exit(1)
	}

	bcrypt := hasher.New(cfg.HashCost)

	sessions := auth.NewSessionIssuer(
		log,
		accounts,
		accounts,
		bcrypt,
		jwt.New(cfg.Tokens.Access.Secret, cfg.Tokens.Access.TTL),
		jwt.New(cfg.Tokens.Refresh.Secret, cfg.Tokens.Refresh.TTL),
	)

	authService := auth.New(
		log,
		accounts,
		resets,
		sessions,
		bcrypt,
		verification.New(log, msgBroker, renderer, cfg.BaseURL),
		jwt.New(cfg.Tokens.ConfirmEmail.Secret, cfg.Tokens.ConfirmEmail.TTL),
		jwt.New(cfg.Tokens.ResetPassword.Secret, cfg.Tokens.ResetPassword.TTL),
	)

	router := setupRouter(log, cfg.HTTPServer.RequestTimeout, authService, sessions)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + cfg.HTTPServer.RequestTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down HTTP server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", sl.Err(err))
	} else {
		log.Info("server stopped gracefully")
	}
}

// setupStorage opens the account store and the store holding password
// reset tokens. The returned func releases every connection opened.
func setupStorage(ctx context.Context, log *slog.Logger, cfg *config.Config) (accountStore, auth.PasswordResetStore, func(), error) {
	var (
		accounts accountStore
		resets   auth.PasswordResetStore
		closers  []func()
	)

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var pg *postgres.PostgresRepo
	var mem *memory.Storage

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(cfg.Postgres.MigrateURL()); err != nil {
				return nil, nil, nil, err
			}
			log.Info("migrations applied")
		}

		repo, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, repo.Close)

		pg = repo
		accounts = repo
	case config.DriverMemory:
		log.Warn("using in-memory storage, data is lost on restart")

		mem = memory.New()
		accounts = mem
	}

	switch cfg.OneTimeTokenDriver() {
	case config.DriverRedis:
		rdb, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, rdb.Close)

		resets = rdb
	case config.DriverPostgres:
		if pg == nil {
			closeAll()
			return nil, nil, nil, errors.New("postgres one-time token store requires the postgres driver")
		}
		resets = pg
	case config.DriverMemory:
		if mem == nil {
			mem = memory.New()
		}
		resets = mem
	}

	return accounts, resets, closeAll, nil
}

func setupRouter(
	log *slog.Logger,
	requestTimeout time.Duration,
	authService *auth.Auth,
	sessions *auth.SessionIssuer,
) *chi.Mux {
	validate := validation.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Post("/register", register.New(log, validate, authService))
	r.Post("/login", login.New(log, validate, authService))
	r.Post("/refresh-token", refresh.New(log, validate, authService))
	r.Get("/confirm-email", verify.New(log, authService))
	r.Post("/confirm-email/resend", resendEmail.New(log, validate, authService))
	r.Post("/forgot-password", forgotPassword.New(log, validate, authService))
	r.Post("/reset-password", resetPassword.New(log, validate, authService))

	r.Group(func(r chi.Router) {
		r.Use(authn.New(log, sessions))

		r.Route("/my-account", func(r chi.Router) {
			r.Patch("/change-password", changePassword.New(log, validate, authService))
			r.Delete("/logout", logout.New(log, authService))
			r.Delete("/", deleteAccount.New(log, validate, authService))
		})

		r.With(authz.RequirePermission(log, models.PermUsersDelete)).
			Delete("/users/{id}", deleteUser.New(log, authService))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
