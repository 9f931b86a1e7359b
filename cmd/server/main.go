// Command authd starts the credential and session-issuance server: three
// HTTP surfaces (public, management, auxiliary) plus a gRPC liveness
// listener, all backed by a switchable database backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/and161185/authd/internal/config"
	pkgcrypto "github.com/and161185/authd/internal/crypto"
	"github.com/and161185/authd/internal/health"
	"github.com/and161185/authd/internal/model"
	"github.com/and161185/authd/internal/server/grpcserver"
	"github.com/and161185/authd/internal/server/httpapi"
	"github.com/and161185/authd/internal/service"
	"github.com/and161185/authd/internal/switchboard"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// bootstrap covers the few settings needed before the resolver itself runs.
type bootstrap struct {
	DevConfigFile string `env:"DEV_CONFIG_FILE" envDefault:"authd.dev.yml"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
}

func main() {
	var bs bootstrap
	if err := env.Parse(&bs); err != nil {
		fmt.Fprintln(os.Stderr, "parse bootstrap env:", err)
		os.Exit(1)
	}

	logger := newLogger(bs.Debug)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	cfg, err := config.Resolve(config.DefaultSchema(), config.Options{
		Args:    os.Args[1:],
		DevFile: bs.DevConfigFile,
	})
	if err != nil {
		logger.Fatal("resolve config", zap.Error(err))
	}

	jwtSecret := cfg.String(config.KeyJWTSecretKey)
	if jwtSecret == "" {
		logger.Fatal("missing jwt secret key (JWT_SECRET_KEY)")
	}
	if alg := cfg.String(config.KeyJWTAlgorithm); alg != "HS256" {
		logger.Fatal("unsupported jwt algorithm", zap.String("algorithm", alg))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	board := switchboard.New(switchboard.Options{
		Policy:       switchboard.PolicyReject,
		ProbeTimeout: time.Duration(cfg.Int(config.KeySwitchTimeoutSec)) * time.Second,
		Logger:       logger,
	})
	if err := board.Bootstrap(ctx, defaultDescriptor(cfg)); err != nil {
		logger.Fatal("bootstrap default backend", zap.Error(err))
	}
	defer func() { _ = board.Close() }()

	creds := service.NewCredentialStore(board, pkgcrypto.Argon2Hasher{})
	ttl := time.Duration(cfg.Int(config.KeyJWTExpirationHours)) * time.Hour
	tokens := service.NewTokenIndex(board, ttl)
	signer := service.NewSigner([]byte(jwtSecret))

	registry := health.NewRegistry()
	grpcPort := cfg.Int(config.KeyPortServiceGRPC)
	httpPort := cfg.Int(config.KeyPortServiceHTTP)
	managePort := cfg.Int(config.KeyPortManage)
	auxPort := cfg.Int(config.KeyPortAux)

	prober := health.NewProber(registry, []health.Target{
		{Process: "auth_grpc", Kind: health.ProbeGRPC, Addr: fmt.Sprintf("127.0.0.1:%d", grpcPort)},
		{Process: "auth_http", Kind: health.ProbeTCP, Addr: fmt.Sprintf("127.0.0.1:%d", httpPort)},
		{Process: "manage_http", Kind: health.ProbeTCP, Addr: fmt.Sprintf("127.0.0.1:%d", managePort)},
		{Process: "aux_http", Kind: health.ProbeTCP, Addr: fmt.Sprintf("127.0.0.1:%d", auxPort)},
	}, time.Duration(cfg.Int(config.KeyHealthProbeInterval))*time.Second, logger)

	public := httpapi.NewServer("public", httpPort,
		httpapi.NewPublic(creds, tokens, signer, logger).Handler(), logger)
	manage := httpapi.NewServer("manage", managePort,
		httpapi.NewManage(creds, tokens, board, registry, cfg, logger).Handler(), logger)
	aux := httpapi.NewServer("aux", auxPort,
		httpapi.NewAux(registry, cfg, logger).Handler(), logger)
	liveness := grpcserver.New(grpcPort, logger)

	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	run := func(fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errCh <- err
			}
		}()
	}
	run(public.Run)
	run(manage.Run)
	run(aux.Run)
	run(liveness.Run)
	go prober.Run(ctx)

	select {
	case err := <-errCh:
		logger.Error("listener failed", zap.Error(err))
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}
	wg.Wait()
	logger.Info("stopped")
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return l
	}
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// defaultDescriptor builds the non-removable default connection from the
// DATABASE_* configuration keys.
func defaultDescriptor(cfg *config.Resolved) model.ConnectionDescriptor {
	kind := model.ConnKind(cfg.String(config.KeyDatabaseType))
	if kind == model.KindSQLite {
		return model.ConnectionDescriptor{
			Name: "Local SQLite",
			Kind: kind,
			Path: cfg.String(config.KeyDatabaseSQLitePath),
		}
	}
	return model.ConnectionDescriptor{
		Name:     fmt.Sprintf("Configured %s", kind),
		Kind:     kind,
		Host:     cfg.String(config.KeyDatabaseHost),
		Port:     cfg.Int(config.KeyDatabasePort),
		Database: cfg.String(config.KeyDatabaseName),
		Username: cfg.String(config.KeyDatabaseUser),
		Password: cfg.String(config.KeyDatabasePassword),
	}
}
