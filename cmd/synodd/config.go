// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/synod-project/synod/lib/unit"
)

// Backend names accepted by Config.Backend.
const (
	// BackendMatrix coordinates through state events in a shared
	// Matrix room.
	BackendMatrix = "matrix"

	// BackendEtcd coordinates through an etcd keyspace.
	BackendEtcd = "etcd"

	// BackendNone runs without shared coordination. Valid only for
	// single-unit deployments.
	BackendNone = "none"
)

// Config is the synodd agent configuration, loaded from a single YAML
// file. No environment fallbacks, no discovery.
type Config struct {
	// UnitName is this unit's orchestrator-assigned name, e.g.
	// "matrix/0".
	UnitName string `yaml:"unit_name"`

	// App is the application name. Defaults to the portion of
	// UnitName before the "/".
	App string `yaml:"app,omitempty"`

	// ServerName is the homeserver's public server name.
	ServerName string `yaml:"server_name"`

	// PlannedUnits is the number of units the operator has scaled the
	// application to. More than one planned unit requires a real
	// coordination backend.
	PlannedUnits int `yaml:"planned_units,omitempty"`

	// PollInterval is how often the watcher samples shared state.
	// Defaults to 15s.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// Backend selects the coordination backend.
	Backend string `yaml:"backend"`

	Matrix     MatrixConfig     `yaml:"matrix,omitempty"`
	Etcd       EtcdConfig       `yaml:"etcd,omitempty"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Proxy      ProxyConfig      `yaml:"proxy,omitempty"`
	Secrets    SecretsConfig    `yaml:"secrets,omitempty"`
	Leadership LeadershipConfig `yaml:"leadership,omitempty"`
}

// MatrixConfig configures the Matrix coordination backend.
type MatrixConfig struct {
	// HomeserverURL is the coordination homeserver. This is a
	// management-plane homeserver, not the workload being managed.
	HomeserverURL string `yaml:"homeserver_url"`

	// UserID is the agent's Matrix user, e.g. "@matrix/0:example.com".
	UserID string `yaml:"user_id"`

	// AccessTokenFile holds the agent's access token.
	AccessTokenFile string `yaml:"access_token_file"`

	// RoomAlias is the coordination room alias, resolved at startup.
	RoomAlias string `yaml:"room_alias"`
}

// EtcdConfig configures the etcd coordination backend.
type EtcdConfig struct {
	// Endpoints is the etcd cluster to connect to.
	Endpoints []string `yaml:"endpoints"`

	// DialTimeout bounds the initial connection. Defaults to 5s.
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
}

// SupervisorConfig locates the workload supervisor.
type SupervisorConfig struct {
	// SocketPath is the supervisor's control socket.
	SocketPath string `yaml:"socket_path"`
}

// ProxyConfig configures the optional client-traffic proxy companion.
type ProxyConfig struct {
	// Enabled turns the proxy companion on.
	Enabled bool `yaml:"enabled"`

	// SocketPath is the proxy supervisor's control socket.
	SocketPath string `yaml:"socket_path,omitempty"`
}

// SecretsConfig configures the sealed secret store used with the
// Matrix backend.
type SecretsConfig struct {
	// IdentityFile holds this unit's age identity.
	IdentityFile string `yaml:"identity_file"`

	// Recipients are the age recipients of every peer, so any unit
	// can unseal shared secrets.
	Recipients []string `yaml:"recipients"`
}

// LeadershipConfig selects how leadership is observed. Election itself
// is external; the agent only reads the result.
type LeadershipConfig struct {
	// Static, when true, makes this unit always the leader. Only
	// valid for single-unit deployments and tests.
	Static bool `yaml:"static,omitempty"`
}

// Default returns a Config with defaults applied.
func Default() Config {
	return Config{
		Backend:      BackendNone,
		PollInterval: 15 * time.Second,
		Etcd:         EtcdConfig{DialTimeout: 5 * time.Second},
	}
}

// LoadConfig reads and validates the config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if config.App == "" {
		config.App, _, _ = strings.Cut(config.UnitName, "/")
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.UnitName == "" {
		return fmt.Errorf("unit_name is required")
	}
	if _, err := unit.ParseID(c.UnitName); err != nil {
		return fmt.Errorf("unit_name: %w", err)
	}
	if c.ServerName == "" {
		return fmt.Errorf("server_name is required")
	}
	if c.Supervisor.SocketPath == "" {
		return fmt.Errorf("supervisor.socket_path is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	switch c.Backend {
	case BackendMatrix:
		if c.Matrix.HomeserverURL == "" || c.Matrix.UserID == "" {
			return fmt.Errorf("matrix backend requires homeserver_url and user_id")
		}
		if c.Matrix.AccessTokenFile == "" {
			return fmt.Errorf("matrix backend requires access_token_file")
		}
		if c.Matrix.RoomAlias == "" {
			return fmt.Errorf("matrix backend requires room_alias")
		}
		if c.Secrets.IdentityFile == "" || len(c.Secrets.Recipients) == 0 {
			return fmt.Errorf("matrix backend requires secrets.identity_file and secrets.recipients")
		}
	case BackendEtcd:
		if len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("etcd backend requires endpoints")
		}
	case BackendNone:
		// Scaling past one unit without a backend is a runtime
		// Blocked condition, not a config error: the operator may
		// scale an already-running deployment at any time.
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.Proxy.Enabled && c.Proxy.SocketPath == "" {
		return fmt.Errorf("proxy.enabled requires proxy.socket_path")
	}
	return nil
}

// Self returns the local unit identity.
func (c *Config) Self() unit.Unit {
	return unit.Unit{Name: c.UnitName, App: c.App}
}
