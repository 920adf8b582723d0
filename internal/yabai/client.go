package yabai

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/1broseidon/yws/internal/ipc"
	"github.com/1broseidon/yws/internal/platform"
)

// Sender is the transport the client issues commands through.
type Sender interface {
	Send(args []string, opts ...ipc.SendOption) (json.RawMessage, error)
}

// Client implements platform.Backend on top of the daemon socket.
type Client struct {
	sender Sender
	logger zerolog.Logger
}

var _ platform.Backend = (*Client)(nil)

// NewClient wraps a transport.
func NewClient(sender Sender, logger zerolog.Logger) *Client {
	return &Client{
		sender: sender,
		logger: logger.With().Str("component", "yabai").Logger(),
	}
}

// Probe verifies the daemon answers a query with well-formed JSON.
func (c *Client) Probe() error {
	raw, err := c.sender.Send(QueryDisplays, ipc.WithStrictDecode(true))
	if err != nil {
		return fmt.Errorf("daemon probe failed: %w", err)
	}
	var displays []json.RawMessage
	if raw == nil {
		return fmt.Errorf("daemon probe failed: %w: empty response", ipc.ErrProtocol)
	}
	if err := json.Unmarshal(raw, &displays); err != nil {
		return fmt.Errorf("daemon probe failed: %w: %v", ipc.ErrProtocol, err)
	}
	return nil
}

// Displays lists connected displays.
func (c *Client) Displays() ([]platform.Display, error) {
	return query[platform.Display](c, QueryDisplays)
}

// Spaces lists all spaces.
func (c *Client) Spaces() ([]platform.Space, error) {
	return query[platform.Space](c, QuerySpaces)
}

// Windows lists all windows.
func (c *Client) Windows() ([]platform.Window, error) {
	return query[platform.Window](c, QueryWindows)
}

// Run issues a mutation. The daemon reports no per-command success over the
// socket, so only transport failures are returned.
func (c *Client) Run(cmd platform.Command) error {
	// A refused command answers with a plain-text failure, never JSON.
	if _, err := c.sender.Send(cmd, ipc.WithStrictDecode(false)); err != nil {
		return fmt.Errorf("command %q: %w", []string(cmd), err)
	}
	return nil
}

func query[T any](c *Client, cmd platform.Command) ([]T, error) {
	raw, err := c.sender.Send(cmd, ipc.WithStrictDecode(true))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd[1], err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w: empty response", cmd[1], platform.ErrDecode)
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		if errors.Is(err, platform.ErrDecode) {
			return nil, fmt.Errorf("%s: %w", cmd[1], err)
		}
		return nil, fmt.Errorf("%s: %w: %v", cmd[1], platform.ErrDecode, err)
	}
	c.logger.Debug().Str("query", cmd[1]).Int("count", len(out)).Msg("query decoded")
	return out, nil
}
