package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unisdr/delta/pkg/approval"
	"github.com/unisdr/delta/pkg/causal"
	"github.com/unisdr/delta/pkg/config"
	"github.com/unisdr/delta/pkg/identity"
	"github.com/unisdr/delta/pkg/notify"
	"github.com/unisdr/delta/pkg/observability"
	"github.com/unisdr/delta/pkg/store/sqlstore"
	"github.com/unisdr/delta/pkg/workflow"
)

// commonFlags are accepted by every database command.
type commonFlags struct {
	configPath string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to a YAML config file")
}

// actorFlags identify who performs a workflow command.
type actorFlags struct {
	token  string
	userID string
	role   string
}

func (a *actorFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&a.token, "token", "", "Signed actor token (required when TOKEN_SECRET is set)")
	fs.StringVar(&a.userID, "user", "", "Acting user id (local mode only)")
	fs.StringVar(&a.role, "role", "", "Acting user role (local mode only)")
}

func (a *actorFlags) resolve(cfg *config.Config) (identity.Actor, error) {
	if secret := cfg.Identity.TokenSecret; secret != "" {
		if a.token == "" {
			return identity.Actor{}, errors.New("--token is required when a token secret is configured")
		}
		return identity.ParseToken([]byte(secret), a.token)
	}
	if a.userID == "" {
		return identity.Actor{}, errors.New("--user is required")
	}
	role := approval.Role(a.role)
	if !role.Valid() {
		return identity.Actor{}, fmt.Errorf("unknown role %q", a.role)
	}
	return identity.Actor{UserID: a.userID, Role: role}, nil
}

// app holds everything a command needs, built from configuration.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *sql.DB
	store      *sqlstore.Store
	redis      *notify.RedisNotifier
	dispatcher *notify.Dispatcher
	telemetry  *observability.Provider
	registry   *prometheus.Registry
	metrics    *observability.WorkflowMetrics
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func newApp(ctx context.Context, flags commonFlags, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlstore.Open(dialect, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	rt := &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
		store: sqlstore.New(db, dialect,
			sqlstore.WithSerializable(cfg.Database.Serializable),
			sqlstore.WithLogger(logger),
		),
	}
	rt.metrics = observability.NewWorkflowMetrics(rt.registry)

	telemetry := observability.DefaultConfig()
	telemetry.Enabled = cfg.Telemetry.Enabled
	telemetry.OTLPEndpoint = cfg.Telemetry.Endpoint
	rt.telemetry, err = observability.New(ctx, telemetry)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if addr := cfg.Notify.RedisAddr; addr != "" {
		rt.redis = notify.NewRedisNotifier(addr, cfg.Notify.RedisPassword, cfg.Notify.RedisDB, cfg.Notify.Queue)
		notifier = notify.Multi{notifier, rt.redis}
	}
	rt.dispatcher = notify.NewDispatcher(notifier,
		notify.WithRate(cfg.Notify.RatePerSecond, 1),
		notify.WithDispatchLogger(logger),
		notify.WithFailureRecorder(rt.metrics),
	)
	return rt, nil
}

func (rt *app) orchestrator() *workflow.Orchestrator {
	return workflow.New(rt.store,
		workflow.WithEditor(causal.NewEditor(
			causal.WithMaxDepth(rt.cfg.Causal.MaxDepth),
			causal.WithLogger(rt.logger.With("component", "causal")),
		)),
		workflow.WithDispatcher(rt.dispatcher),
		workflow.WithTracker(rt.telemetry),
		workflow.WithMetrics(rt.metrics),
		workflow.WithLogger(rt.logger),
	)
}

// close waits for queued notifications, then releases connections.
func (rt *app) close(ctx context.Context) {
	if err := rt.dispatcher.Close(ctx); err != nil {
		rt.logger.WarnContext(ctx, "notifications still in flight at exit", "error", err)
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	_ = rt.telemetry.Shutdown(ctx)
	_ = rt.db.Close()
}
