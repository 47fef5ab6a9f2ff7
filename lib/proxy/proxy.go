// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy manages the companion reverse proxy that fronts
// client traffic.
//
// Client requests must always land on the main unit — workers only
// serve replication traffic. The companion renders an upstream
// configuration pointed at the recorded main address and reapplies it
// whenever the main designation moves.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/synod-project/synod/lib/topology"
	"github.com/synod-project/synod/lib/workload"
)

const (
	// Process is the supervisor name of the proxy process.
	Process = "proxy"

	// ConfigPath is the rendered upstream configuration file.
	ConfigPath = "/data/proxy.conf"

	// ListenPort is where the proxy accepts client traffic.
	ListenPort = 8080
)

// Companion drives the proxy workload.
type Companion struct {
	client workload.Client
	logger *slog.Logger

	lastHash string
}

// NewCompanion creates a Companion using the given workload control
// plane.
func NewCompanion(client workload.Client, logger *slog.Logger) *Companion {
	return &Companion{client: client, logger: logger}
}

// Converge points the proxy at mainAddress, restarting it when the
// upstream changed. Returns true when a restart happened.
func (c *Companion) Converge(ctx context.Context, mainAddress string) (bool, error) {
	desired := render(mainAddress)
	hash, err := desired.Hash()
	if err != nil {
		return false, fmt.Errorf("proxy: hashing config: %w", err)
	}
	if hash == c.lastHash {
		return false, nil
	}

	if err := c.client.ApplyConfig(ctx, desired); err != nil {
		return false, fmt.Errorf("proxy: applying config: %w", err)
	}
	c.lastHash = hash
	c.logger.Info("proxy upstream converged", "main_address", mainAddress)
	return true, nil
}

// Ready reports whether the proxy process is running.
func (c *Companion) Ready(ctx context.Context) (bool, error) {
	state, err := c.client.ServiceStatus(ctx, Process)
	if err != nil {
		return false, fmt.Errorf("proxy: querying status: %w", err)
	}
	return state == workload.StateRunning, nil
}

func render(mainAddress string) *workload.Desired {
	upstream := mainAddress + ":" + strconv.Itoa(topology.PortMain)
	config := "upstream main {\n" +
		"    server " + upstream + ";\n" +
		"}\n" +
		"server {\n" +
		"    listen " + strconv.Itoa(ListenPort) + ";\n" +
		"    location / {\n" +
		"        proxy_pass http://main;\n" +
		"    }\n" +
		"}\n"

	return &workload.Desired{
		Files: []workload.FileSpec{{Path: ConfigPath, Data: []byte(config)}},
		Processes: []workload.ProcessSpec{{
			Name:    Process,
			Command: "nginx -g 'daemon off;' -c " + ConfigPath,
		}},
	}
}
