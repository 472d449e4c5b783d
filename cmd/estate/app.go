package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/activitymap"
	"github.com/tokenestate/go-estate-auth/chain"
	"github.com/tokenestate/go-estate-auth/client"
	"github.com/tokenestate/go-estate-auth/config"
	"github.com/tokenestate/go-estate-auth/metrics"
	"github.com/tokenestate/go-estate-auth/rolesync"
	"github.com/tokenestate/go-estate-auth/storage"
)

// app holds everything a command needs, built once from the config.
type app struct {
	cfg      *config.Config
	zap      *zap.Logger
	provider auth.LoggerProvider
	logger   auth.Logger
	db       storage.Manager
	store    *auth.SessionStore
	backend  *client.Client
	feed     *activitymap.Feed
	sink     auth.ActivitySink
	metrics  *metrics.Collectors
	service  *auth.AuthService
	state    *auth.AuthState
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	base, err := newZap(cfg)
	if err != nil {
		return nil, err
	}
	provider := auth.NewZapProvider(base)
	a := &app{
		cfg:      cfg,
		zap:      base,
		provider: provider,
		logger:   provider.GetLogger("estate"),
		feed:     activitymap.NewFeed(activitymap.DefaultFeedSize),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}

	driver := storage.Driver(cfg.GetSessionDriver())
	if dbPath := a.dbPath(driver); dbPath != "" {
		a.db, err = storage.Open(ctx, dbPath)
		if err != nil {
			return nil, err
		}
	}

	sinks := []auth.ActivitySink{a.feed}
	if a.db != nil {
		sinks = append(sinks, a.db.Activity())
	}
	a.sink = activitymap.Fanout(sinks...)

	tokens, err := storage.NewTokenStorage(driver, cfg.GetSessionPath(), a.db)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = auth.NewSessionStore(tokens, auth.WithSessionLogger(provider.GetLogger("auth.session")))

	a.backend, err = client.New(cfg.GetBackendURL(),
		client.WithTimeout(cfg.GetRequestTimeout()),
		client.WithRateLimit(cfg.GetRateLimit()),
		client.WithTokenSource(a.store.Get),
		client.WithLogger(provider.GetLogger("client")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.service = auth.NewAuthService(a.backend, auth.WithAuthServiceActivitySink(a.sink)).
		WithLoggerProvider(provider)
	a.state = auth.NewAuthState(a.service, a.store,
		auth.WithRequestTimeout(cfg.GetRequestTimeout()),
		auth.WithAuthStateActivitySink(a.sink),
		auth.WithAuthStateLogger(provider.GetLogger("auth.state")),
		auth.WithTransitionHook(a.metrics.TransitionHook()),
	)
	return a, nil
}

// dbPath is the SQLite file backing sessions and the activity log, empty
// when neither needs one.
func (a *app) dbPath(driver storage.Driver) string {
	if p := a.cfg.GetActivityDBPath(); p != "" {
		return p
	}
	if driver == storage.DriverSQLite {
		if p := a.cfg.GetSessionPath(); p != "" {
			return p
		}
		return filepath.Join(storage.ConfigDir(), "estate.db")
	}
	return ""
}

// synchronizer dials the chain. It fails when no registry or signer is set.
func (a *app) synchronizer(ctx context.Context) (*rolesync.Synchronizer, error) {
	if !a.cfg.HasChain() {
		return nil, auth.ValidationError(nil, "chain.rpc_url and chain.registry are required for role grants")
	}
	if a.cfg.GetSignerKey() == "" {
		return nil, auth.ValidationError(nil, "chain.signer_key is required for role grants")
	}

	granter, err := a.dialChain(ctx)
	if err != nil {
		return nil, err
	}

	return rolesync.New(granter, a.backend,
		rolesync.WithActivitySink(a.sink),
		rolesync.WithObserver(a.metrics),
		rolesync.WithLogger(a.provider.GetLogger("rolesync")),
	), nil
}

func (a *app) dialChain(ctx context.Context) (*chain.Client, error) {
	if !a.cfg.HasChain() {
		return nil, auth.ValidationError(nil, "chain.rpc_url and chain.registry are required")
	}
	return chain.Dial(ctx, chain.Config{
		RPCURL:    a.cfg.GetChainRPCURL(),
		ChainID:   a.cfg.GetChainID(),
		Registry:  a.cfg.GetRegistryAddress(),
		SignerKey: a.cfg.GetSignerKey(),
	}, chain.WithLogger(a.provider.GetLogger("chain")))
}

func (a *app) Close() {
	if a.state != nil {
		a.state.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing database", "error", err)
		}
	}
	_ = a.zap.Sync()
}

func newZap(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.GetLogLevel()))
	if err != nil {
		return nil, auth.ValidationError(err, "invalid log level")
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
