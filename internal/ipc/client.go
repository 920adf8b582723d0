package ipc

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConnections bounds how many sockets may be open at once.
const DefaultMaxConnections = 10

// Options configures a Client.
type Options struct {
	SocketPath     string
	ByteOrder      binary.ByteOrder // nil means native
	MaxConnections int              // <= 0 means DefaultMaxConnections
	StrictDecode   bool             // default for calls that do not pass WithStrictDecode
	Logger         zerolog.Logger
}

// Client sends commands to the daemon. Every call dials a fresh connection;
// the only shared state is the permit pool limiting open sockets.
type Client struct {
	socketPath string
	order      binary.ByteOrder
	permits    *semaphore.Weighted
	strict     bool
	logger     zerolog.Logger
}

// NewClient creates a new IPC client.
func NewClient(opts Options) *Client {
	order := opts.ByteOrder
	if order == nil {
		order = binary.NativeEndian
	}
	capacity := opts.MaxConnections
	if capacity <= 0 {
		capacity = DefaultMaxConnections
	}

	return &Client{
		socketPath: opts.SocketPath,
		order:      order,
		permits:    semaphore.NewWeighted(int64(capacity)),
		strict:     opts.StrictDecode,
		logger:     opts.Logger.With().Str("component", "ipc").Logger(),
	}
}

// SocketPath returns the socket this client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

type sendOptions struct {
	strict bool
}

// SendOption adjusts a single Send call.
type SendOption func(*sendOptions)

// WithStrictDecode controls whether a non-empty, non-JSON response is an
// ErrProtocol error (true) or treated as no value (false).
func WithStrictDecode(strict bool) SendOption {
	return func(o *sendOptions) {
		o.strict = strict
	}
}

// Send issues one command and returns the decoded response. A nil result
// with a nil error means the daemon answered with no value.
//
// Send blocks until the daemon closes the connection; there is no timeout.
func (c *Client) Send(args []string, opts ...SendOption) (json.RawMessage, error) {
	so := sendOptions{strict: c.strict}
	for _, opt := range opts {
		opt(&so)
	}

	req, err := EncodeRequest(c.order, args)
	if err != nil {
		return nil, err
	}

	// Background context: waiters are served in arrival order and never give up.
	if err := c.permits.Acquire(context.Background(), 1); err != nil {
		return nil, fmt.Errorf("failed to acquire connection permit: %w", err)
	}
	defer c.permits.Release(1)

	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Strs("args", args).Int("response_bytes", len(resp)).Msg("command sent")
	return c.decode(args, resp, so.strict)
}

func (c *Client) roundTrip(req []byte) ([]byte, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon at %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return nil, fmt.Errorf("failed to half-close request: %w", err)
		}
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}

func (c *Client) decode(args []string, resp []byte, strict bool) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(resp)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed), nil
	}
	if strict {
		return nil, fmt.Errorf("%w: non-JSON response to %q: %q", ErrProtocol, args, truncate(trimmed, 120))
	}
	c.logger.Debug().Strs("args", args).Str("response", truncate(trimmed, 120)).Msg("ignoring non-JSON response")
	return nil, nil
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
