// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"testing"
	"time"

	"github.com/synod-project/synod/lib/clock"
	"github.com/synod-project/synod/lib/schema"
	"github.com/synod-project/synod/lib/unit"
)

type sentEvent struct {
	eventType string
	stateKey  string
	content   any
}

type fakeStatusWriter struct {
	sent []sentEvent
}

func (f *fakeStatusWriter) SendStateEvent(ctx context.Context, roomID, eventType, stateKey string, content any) (string, error) {
	f.sent = append(f.sent, sentEvent{eventType: eventType, stateKey: stateKey, content: content})
	return "$event", nil
}

func TestMatrixReport(t *testing.T) {
	writer := &fakeStatusWriter{}
	sink := NewMatrix(writer, "!room:example.com", unit.Unit{Name: "matrix/1", App: "matrix"}, clock.Fake(time.Unix(1700000000, 0)))

	if err := sink.Report(context.Background(), Status{State: StateActive}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(writer.sent) != 1 {
		t.Fatalf("sent = %d events, want 1", len(writer.sent))
	}
	event := writer.sent[0]
	if event.eventType != schema.EventTypeUnitStatus {
		t.Errorf("event type = %q", event.eventType)
	}
	if event.stateKey != "matrix/1" {
		t.Errorf("state key = %q, want unit name", event.stateKey)
	}
	content, ok := event.content.(schema.UnitStatusContent)
	if !ok {
		t.Fatalf("content type = %T", event.content)
	}
	if content.State != "active" || content.Since == "" {
		t.Errorf("content = %+v", content)
	}
}

func TestMatrixElidesRepeats(t *testing.T) {
	writer := &fakeStatusWriter{}
	sink := NewMatrix(writer, "!room:example.com", unit.Unit{Name: "matrix/1", App: "matrix"}, clock.Fake(time.Unix(1700000000, 0)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := sink.Report(ctx, Status{State: StateConfiguring}); err != nil {
			t.Fatalf("Report #%d: %v", i, err)
		}
	}
	if len(writer.sent) != 1 {
		t.Errorf("sent = %d events, want 1 (repeats elided)", len(writer.sent))
	}

	if err := sink.Report(ctx, Status{State: StateActive}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(writer.sent) != 2 {
		t.Errorf("sent = %d events, want 2 after state change", len(writer.sent))
	}
}

func TestMatrixUnclusteredIsNoOp(t *testing.T) {
	writer := &fakeStatusWriter{}
	sink := NewMatrix(writer, "", unit.Unit{Name: "matrix/0", App: "matrix"}, clock.Fake(time.Unix(1700000000, 0)))

	if err := sink.Report(context.Background(), Status{State: StateActive}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(writer.sent) != 0 {
		t.Errorf("sent = %d events, want 0 for unclustered unit", len(writer.sent))
	}
}
