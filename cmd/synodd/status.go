// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/synod-project/synod/lib/status"
	"github.com/synod-project/synod/lib/workload"
)

// reportHealth closes a reconciliation pass with the unit's final
// state, derived from the run state of the processes the pass asked
// for and of the companion proxy. The tracker keeps any Blocked state
// reported earlier in the pass; this report then becomes a no-op.
func (r *Reconciler) reportHealth(ctx context.Context, desired *workload.Desired) error {
	for _, process := range desired.Processes {
		state, err := r.client.ServiceStatus(ctx, process.Name)
		if err != nil {
			return fmt.Errorf("querying %s status: %w", process.Name, err)
		}
		if state != workload.StateRunning {
			return r.tracker.Set(ctx, status.Status{
				State:  status.StateNotReady,
				Reason: fmt.Sprintf("process %s is %s", process.Name, state),
			})
		}
	}

	if r.proxy != nil {
		ready, err := r.proxy.Ready(ctx)
		if err != nil {
			return fmt.Errorf("querying proxy status: %w", err)
		}
		if !ready {
			return r.tracker.Set(ctx, status.Status{
				State:  status.StateNotReady,
				Reason: "waiting for companion proxy",
			})
		}
	}

	return r.tracker.Set(ctx, status.Status{State: status.StateActive})
}
