// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/synod-project/synod/lib/clock"
	"github.com/synod-project/synod/lib/designator"
	"github.com/synod-project/synod/lib/leadership"
	"github.com/synod-project/synod/lib/peerstore"
	"github.com/synod-project/synod/lib/proxy"
	"github.com/synod-project/synod/lib/secretstore"
	"github.com/synod-project/synod/lib/signingkey"
	"github.com/synod-project/synod/lib/status"
	"github.com/synod-project/synod/lib/workload"
	"github.com/synod-project/synod/messaging"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "synodd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool
	var logLevel string
	pflag.StringVar(&configPath, "config", "", "path to the synodd config file")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pflag.Parse()

	if showVersion {
		fmt.Println("synodd", version)
		return nil
	}
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("parsing --log-level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	self := config.Self()
	supervisor := workload.NewSocketClient(config.Supervisor.SocketPath)

	backend, err := buildBackend(ctx, config, clk, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	reconciler := &Reconciler{
		store:      backend.store,
		designator: designator.New(backend.store, self, logger),
		leadership: backend.leadership,
		signing: signingkey.NewCoordinator(signingkey.Config{
			Bucket:     backend.store,
			Secrets:    backend.secrets,
			Client:     supervisor,
			Self:       self,
			ServerName: config.ServerName,
			Logger:     logger,
		}),
		client:       supervisor,
		tracker:      status.NewTracker(backend.sink),
		self:         self,
		serverName:   config.ServerName,
		clustered:    config.Backend != BackendNone,
		plannedUnits: config.PlannedUnits,
		logger:       logger,
	}
	if config.Proxy.Enabled {
		reconciler.proxy = proxy.NewCompanion(workload.NewSocketClient(config.Proxy.SocketPath), logger)
	}

	logger.Info("synodd starting",
		"unit", self,
		"server_name", config.ServerName,
		"backend", config.Backend,
		"poll_interval", config.PollInterval,
	)

	watcher := NewWatcher(reconciler, backend.store, backend.leadership, supervisor, clk, config.PollInterval, logger)
	if err := watcher.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// backend bundles the coordination surfaces a reconciler needs, built
// once per backend kind.
type backend struct {
	store      peerstore.Store
	leadership leadership.Checker
	secrets    secretstore.Store
	sink       status.Sink
	close      func()
}

func buildBackend(ctx context.Context, config Config, clk clock.Clock, logger *slog.Logger) (*backend, error) {
	self := config.Self()

	switch config.Backend {
	case BackendMatrix:
		return buildMatrixBackend(ctx, config, clk, logger)

	case BackendEtcd:
		client, err := clientv3.New(clientv3.Config{
			Endpoints:   config.Etcd.Endpoints,
			DialTimeout: config.Etcd.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to etcd: %w", err)
		}
		store := peerstore.NewEtcd(client, config.App, self)
		if err := store.Register(ctx); err != nil {
			client.Close()
			return nil, err
		}
		identity, recipients, err := loadSecretsConfig(config)
		if err != nil {
			client.Close()
			return nil, err
		}
		return &backend{
			store: store,
			// etcd deployments get leadership from the orchestrator,
			// observed here as static configuration.
			leadership: leadership.Static(config.Leadership.Static),
			secrets:    secretstore.NewKV(store, recipients, identity),
			sink:       status.NewLog(logger),
			close:      func() { client.Close() },
		}, nil

	case BackendNone:
		store := peerstore.NewMemory(self)
		return &backend{
			store:      store,
			leadership: leadership.Static(true),
			secrets:    secretstore.NewMemory(),
			sink:       status.NewLog(logger),
			close:      func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", config.Backend)
}

func buildMatrixBackend(ctx context.Context, config Config, clk clock.Clock, logger *slog.Logger) (*backend, error) {
	self := config.Self()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: config.Matrix.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating coordination client: %w", err)
	}
	if _, err := client.ServerVersions(ctx); err != nil {
		return nil, fmt.Errorf("checking homeserver reachability: %w", err)
	}

	tokenBytes, err := os.ReadFile(config.Matrix.AccessTokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading access token: %w", err)
	}
	session, err := client.Session(config.Matrix.UserID, strings.TrimSpace(string(tokenBytes)))
	if err != nil {
		return nil, fmt.Errorf("creating coordination session: %w", err)
	}
	// A token for the wrong account would let one unit clobber
	// another unit's state events; fail before joining anything.
	reported, err := session.WhoAmI(ctx)
	if err != nil {
		return nil, fmt.Errorf("validating access token: %w", err)
	}
	if reported != session.UserID() {
		return nil, fmt.Errorf("access token belongs to %s, configured user is %s", reported, session.UserID())
	}

	roomID, err := session.ResolveAlias(ctx, config.Matrix.RoomAlias)
	if err != nil {
		return nil, fmt.Errorf("resolving coordination room %q: %w", config.Matrix.RoomAlias, err)
	}
	if err := session.JoinRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("joining coordination room: %w", err)
	}

	identity, recipients, err := loadSecretsConfig(config)
	if err != nil {
		return nil, err
	}

	logger.Info("coordination room ready", "room", roomID, "alias", config.Matrix.RoomAlias)
	return &backend{
		store:      peerstore.NewMatrix(session, roomID, self),
		leadership: leadership.NewLease(session, roomID, config.App, config.UnitName),
		secrets:    secretstore.NewSealed(session, roomID, recipients, identity),
		sink:       status.NewMatrix(session, roomID, self, clk),
		close:      func() {},
	}, nil
}

func loadSecretsConfig(config Config) (identity string, recipients []string, err error) {
	if config.Secrets.IdentityFile == "" {
		return "", nil, nil
	}
	raw, err := os.ReadFile(config.Secrets.IdentityFile)
	if err != nil {
		return "", nil, fmt.Errorf("reading age identity: %w", err)
	}
	return strings.TrimSpace(string(raw)), config.Secrets.Recipients, nil
}
