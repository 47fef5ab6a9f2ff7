// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"log/slog"
)

// Log reports unit status through the process log. Backends without a
// shared room for status events use it so operators still see state
// transitions. Repeated reports of the same status are elided.
type Log struct {
	logger *slog.Logger

	last     Status
	reported bool
}

// NewLog creates a Log sink writing to logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

var _ Sink = (*Log)(nil)

func (l *Log) Report(ctx context.Context, status Status) error {
	if l.reported && status == l.last {
		return nil
	}
	level := slog.LevelInfo
	if status.State == StateBlocked {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "unit status", "state", status.State, "reason", status.Reason)
	l.last = status
	l.reported = true
	return nil
}
