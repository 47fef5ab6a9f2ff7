// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"context"
	"errors"
)

// ErrFileNotFound reports that a requested workload file does not
// exist. The signing key coordinator branches on this: a missing key
// file when a read is required blocks the reconciliation.
var ErrFileNotFound = errors.New("workload: file not found")

// ServiceState is a supervised process's run state.
type ServiceState string

const (
	// StateRunning means the supervisor reports the process as up.
	StateRunning ServiceState = "running"

	// StateStopped means the process is not running.
	StateStopped ServiceState = "stopped"
)

// Client is the workload control plane.
type Client interface {
	// CanConnect reports whether the supervisor socket is reachable.
	// False is not an error: the scheduler redelivers the lifecycle
	// event once the workload comes up.
	CanConnect(ctx context.Context) bool

	// PushFile writes a file into the workload filesystem, creating
	// parent directories as needed.
	PushFile(ctx context.Context, path string, data []byte) error

	// ReadFile reads a file from the workload filesystem. Returns
	// ErrFileNotFound if the file does not exist.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// ApplyConfig converges the supervisor to the desired
	// configuration: writes the file set and replaces the process
	// definitions, restarting what changed. Idempotent — applying an
	// unchanged Desired is a no-op on the supervisor side.
	ApplyConfig(ctx context.Context, desired *Desired) error

	// RestartProcess restarts one supervised process by name.
	RestartProcess(ctx context.Context, name string) error

	// ServiceStatus reports one supervised process's run state.
	ServiceStatus(ctx context.Context, name string) (ServiceState, error)
}
