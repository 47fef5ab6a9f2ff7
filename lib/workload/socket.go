// Copyright 2026 The Synod Authors
// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/synod-project/synod/lib/codec"
)

// dialTimeout covers only the connect phase of a supervisor call. The
// supervisor is local, so a slow connect means it is down or wedged.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for a response
// after writing the request. Generous because apply-config restarts
// processes synchronously.
const responseReadTimeout = 45 * time.Second

// maxResponseSize bounds a single CBOR response. Reads of rendered
// configuration and signing keys fit comfortably under this.
const maxResponseSize = 1024 * 1024

// SupervisorError is returned when the supervisor responds with
// ok=false for a reason other than a missing file.
type SupervisorError struct {
	Action  string
	Message string
}

func (e *SupervisorError) Error() string {
	return fmt.Sprintf("supervisor error on %q: %s", e.Action, e.Message)
}

// response is the supervisor's reply envelope. Action-specific payload
// rides in Data and is decoded by the caller that knows its shape.
type response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// SocketClient talks to the workload supervisor over its Unix socket.
// Each call opens a new connection, sends one CBOR request, reads one
// CBOR response, and closes the connection.
type SocketClient struct {
	socketPath string
}

// NewSocketClient creates a client for the supervisor socket at
// socketPath. No connection is made until the first call.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{socketPath: socketPath}
}

var _ Client = (*SocketClient)(nil)

// CanConnect reports whether the supervisor answers a ping. A false
// return is expected during workload startup and is not an error.
func (c *SocketClient) CanConnect(ctx context.Context) bool {
	return c.call(ctx, "ping", nil, nil) == nil
}

// PushFile writes data to path inside the workload.
func (c *SocketClient) PushFile(ctx context.Context, path string, data []byte) error {
	return c.call(ctx, "push-file", map[string]any{
		"path": path,
		"data": data,
	}, nil)
}

// ReadFile reads the file at path from the workload. Returns
// ErrFileNotFound if the file does not exist.
func (c *SocketClient) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var result struct {
		Data []byte `cbor:"data"`
	}
	if err := c.call(ctx, "read-file", map[string]any{"path": path}, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ApplyConfig replaces the supervisor's plan with desired and restarts
// any process whose definition changed.
func (c *SocketClient) ApplyConfig(ctx context.Context, desired *Desired) error {
	return c.call(ctx, "apply-config", map[string]any{
		"files":     desired.Files,
		"processes": desired.Processes,
	}, nil)
}

// RestartProcess restarts the named process regardless of its current
// state.
func (c *SocketClient) RestartProcess(ctx context.Context, name string) error {
	return c.call(ctx, "restart-process", map[string]any{"name": name}, nil)
}

// ServiceStatus reports the current state of the named process.
func (c *SocketClient) ServiceStatus(ctx context.Context, name string) (ServiceState, error) {
	var result struct {
		State string `cbor:"state"`
	}
	if err := c.call(ctx, "service-status", map[string]any{"name": name}, &result); err != nil {
		return "", err
	}
	return ServiceState(result.State), nil
}

// call sends one request and decodes the response. Supervisor-side
// failures mentioning a missing file map to ErrFileNotFound so callers
// can branch on first-boot conditions.
func (c *SocketClient) call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	reply, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !reply.OK {
		if strings.Contains(reply.Error, "no such file") {
			return fmt.Errorf("%s: %w", reply.Error, ErrFileNotFound)
		}
		return &SupervisorError{Action: action, Message: reply.Error}
	}

	if result != nil && len(reply.Data) > 0 {
		if err := codec.Unmarshal(reply.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}

	return nil
}

// send connects to the socket, writes the request, and reads the
// response. Each call creates a new connection.
func (c *SocketClient) send(ctx context.Context, request any) (*response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the supervisor's read loop sees a
	// clean EOF after the single request.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var reply response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&reply); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &reply, nil
}

// IsFileNotFound reports whether err indicates a missing workload
// file.
func IsFileNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}
