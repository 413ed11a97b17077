package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sundayezeilo/yourlsbot/internal/bot"
	"github.com/sundayezeilo/yourlsbot/internal/config"
	"github.com/sundayezeilo/yourlsbot/internal/discord"
	"github.com/sundayezeilo/yourlsbot/internal/errx"
	"github.com/sundayezeilo/yourlsbot/internal/idgen"
	"github.com/sundayezeilo/yourlsbot/internal/server"
	"github.com/sundayezeilo/yourlsbot/internal/stats"
	"github.com/sundayezeilo/yourlsbot/internal/yourls"
)

const serviceName = "yourlsbot"

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DBPool  *pgxpool.Pool
	Stats   *stats.Store
	Gateway *discord.Gateway
	Server  *server.Server
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"stats_backend", cfg.Stats.Backend,
	)

	a := &App{Config: cfg, Logger: logger}

	persister, err := a.setupPersister(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to set up statistics storage: %w", err)
	}

	store, err := stats.Open(ctx, stats.StoreConfig{
		Persister: persister,
		Logger:    logger,
	})
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	a.Stats = store

	client, err := yourls.NewClient(yourls.ClientConfig{
		Endpoint:  cfg.YOURLS.URL,
		Signature: cfg.YOURLS.SignatureToken,
		Timeout:   cfg.YOURLS.Timeout,
		Logger:    logger,
	})
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("failed to create shortening client: %w", err)
	}

	ids := idgen.New()

	dispatcher := bot.NewDispatcher(bot.DispatcherConfig{
		Shortener:   client,
		Stats:       store,
		Logger:      logger,
		IDGenerator: ids,
		Features: bot.Features{
			CustomURL: bool(cfg.Features.EnableCustomURL),
			Info:      bool(cfg.Features.EnableInfoCommand),
		},
		Ephemeral:       bool(cfg.Features.EphemeralResponse),
		GithubLink:      cfg.Features.GithubLink,
		DonationLink:    cfg.Features.DonationLink,
		ShowTopDomains:  bool(cfg.Features.ShowTopDomains),
		TopDomainsLimit: cfg.Features.TopDomainsLimit,
	})

	gateway, err := discord.NewGateway(discord.GatewayConfig{
		Token:          cfg.Discord.Token,
		GuildID:        cfg.Discord.GuildID,
		Dispatcher:     dispatcher,
		Logger:         logger,
		IDGenerator:    ids,
		HandlerTimeout: cfg.Discord.HandlerTimeout,
	})
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("failed to create discord gateway: %w", err)
	}
	a.Gateway = gateway

	if cfg.Server.Enabled() {
		a.Server = server.New(server.Config{
			Addr:            cfg.Server.Addr,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			Service:         serviceName,
			Version:         cfg.App.Version,
			Stats:           store,
			TopDomainsLimit: cfg.Features.TopDomainsLimit,
			Checks:          a.healthChecks(),
			Logger:          logger,
			IDGenerator:     ids,
		})
	}

	logger.Info("application initialized",
		"commands", len(dispatcher.Commands()),
		"health_addr", cfg.Server.Addr,
	)

	return a, nil
}

// Start connects the bot and blocks until an interrupt or termination
// signal arrives, or the health server fails.
func (a *App) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Gateway.Open(); err != nil {
		return fmt.Errorf("failed to connect to discord: %w", err)
	}
	a.Logger.Info("bot connected")

	serverErrors := make(chan error, 1)
	if a.Server != nil {
		go func() {
			serverErrors <- a.Server.Start(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		a.Logger.Info("received shutdown signal")
		if a.Server != nil {
			if err := <-serverErrors; err != nil {
				a.Logger.Warn("health server shutdown failed", "error", err.Error())
			}
		}
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("health server error: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	var errs []error
	if a.Gateway != nil {
		if err := a.Gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gateway: %w", err))
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return errors.Join(errs...)
}

func (a *App) setupPersister(ctx context.Context) (stats.Persister, error) {
	switch a.Config.Stats.Backend {
	case config.BackendPostgres:
		pool, err := connectDatabase(ctx, &a.Config.Stats, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DBPool = pool

		p := stats.NewPostgresPersister(pool)
		if err := p.EnsureSchema(ctx); err != nil {
			pool.Close()
			a.DBPool = nil
			return nil, err
		}
		return p, nil
	default:
		a.Logger.Info("using statistics file", "path", a.Config.Stats.File)
		return stats.NewFilePersister(a.Config.Stats.File), nil
	}
}

func (a *App) healthChecks() map[string]server.Check {
	checks := map[string]server.Check{}
	if a.DBPool != nil {
		pool := a.DBPool
		checks["database"] = func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return errx.E("app.healthChecks", errx.Unavailable, err)
			}
			return nil
		}
	}
	return checks
}

// loadEnv loads a .env file from the working directory when one exists.
// Variables already present in the environment win.
func loadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found.")
	}
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.StatsConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns

	logger.Info("connecting to database",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}
