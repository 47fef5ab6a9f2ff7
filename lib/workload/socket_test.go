// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/synod-project/synod/lib/codec"
)

// testSupervisor is a minimal in-process supervisor: one CBOR request
// per connection, file store backed by a map.
type testSupervisor struct {
	listener net.Listener
	files    map[string][]byte
}

func startTestSupervisor(t *testing.T) (*testSupervisor, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "supervisor.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	supervisor := &testSupervisor{
		listener: listener,
		files:    make(map[string][]byte),
	}
	t.Cleanup(func() { listener.Close() })
	go supervisor.serve()
	return supervisor, socketPath
}

func (s *testSupervisor) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *testSupervisor) handle(conn net.Conn) {
	defer conn.Close()

	var request map[string]any
	if err := codec.NewDecoder(conn).Decode(&request); err != nil {
		return
	}

	action, _ := request["action"].(string)
	reply := map[string]any{"ok": true}

	switch action {
	case "ping":
	case "push-file":
		path, _ := request["path"].(string)
		data, _ := request["data"].([]byte)
		s.files[path] = data
	case "read-file":
		path, _ := request["path"].(string)
		data, ok := s.files[path]
		if !ok {
			reply = map[string]any{"ok": false, "error": "open " + path + ": no such file or directory"}
			break
		}
		payload, err := codec.Marshal(map[string]any{"data": data})
		if err != nil {
			reply = map[string]any{"ok": false, "error": err.Error()}
			break
		}
		reply["data"] = codec.RawMessage(payload)
	case "service-status":
		payload, err := codec.Marshal(map[string]any{"state": "running"})
		if err != nil {
			reply = map[string]any{"ok": false, "error": err.Error()}
			break
		}
		reply["data"] = codec.RawMessage(payload)
	default:
		reply = map[string]any{"ok": false, "error": "unknown action " + action}
	}

	codec.NewEncoder(conn).Encode(reply)
}

func TestSocketClientRoundTrip(t *testing.T) {
	_, socketPath := startTestSupervisor(t)
	client := NewSocketClient(socketPath)
	ctx := context.Background()

	if !client.CanConnect(ctx) {
		t.Fatal("CanConnect = false against a live supervisor")
	}

	content := []byte("server_name: example.com\n")
	if err := client.PushFile(ctx, "/data/homeserver.yaml", content); err != nil {
		t.Fatalf("PushFile: %v", err)
	}

	read, err := client.ReadFile(ctx, "/data/homeserver.yaml")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(read, content) {
		t.Errorf("ReadFile = %q, want %q", read, content)
	}

	state, err := client.ServiceStatus(ctx, MainProcess)
	if err != nil {
		t.Fatalf("ServiceStatus: %v", err)
	}
	if state != StateRunning {
		t.Errorf("state = %q, want %q", state, StateRunning)
	}
}

func TestSocketClientFileNotFound(t *testing.T) {
	_, socketPath := startTestSupervisor(t)
	client := NewSocketClient(socketPath)

	_, err := client.ReadFile(context.Background(), "/data/missing.key")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("error = %v, want ErrFileNotFound", err)
	}
}

func TestSocketClientUnknownAction(t *testing.T) {
	_, socketPath := startTestSupervisor(t)
	client := NewSocketClient(socketPath)

	err := client.RestartProcess(context.Background(), "ghost")
	var supervisorErr *SupervisorError
	if !errors.As(err, &supervisorErr) {
		t.Fatalf("error = %v, want *SupervisorError", err)
	}
	if supervisorErr.Action != "restart-process" {
		t.Errorf("action = %q, want restart-process", supervisorErr.Action)
	}
}

func TestSocketClientSupervisorDown(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "absent.sock")
	client := NewSocketClient(socketPath)

	if client.CanConnect(context.Background()) {
		t.Error("CanConnect = true with no listener")
	}
	if err := client.PushFile(context.Background(), "/data/x", nil); err == nil {
		t.Error("expected connect error with no listener")
	}
}
