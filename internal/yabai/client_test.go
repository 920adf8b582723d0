package yabai

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/yws/internal/ipc"
	"github.com/1broseidon/yws/internal/platform"
)

type cannedSender struct {
	responses map[string]string
	sent      [][]string
}

func (s *cannedSender) Send(args []string, _ ...ipc.SendOption) (json.RawMessage, error) {
	s.sent = append(s.sent, args)
	resp, ok := s.responses[strings.Join(args, " ")]
	if !ok || resp == "" {
		return nil, nil
	}
	return json.RawMessage(resp), nil
}

func TestClientQueries(t *testing.T) {
	sender := &cannedSender{responses: map[string]string{
		"query --displays": `[{"id":1,"uuid":"u","index":1,"frame":{"x":0,"y":0,"w":1,"h":1},"spaces":[1]}]`,
		"query --spaces":   `[]`,
		"query --windows":  `[{"id":1}]`,
	}}
	c := NewClient(sender, zerolog.Nop())

	displays, err := c.Displays()
	require.NoError(t, err)
	require.Len(t, displays, 1)
	assert.Equal(t, 1, displays[0].Index)

	spaces, err := c.Spaces()
	require.NoError(t, err)
	assert.Empty(t, spaces)

	_, err = c.Windows()
	assert.True(t, errors.Is(err, platform.ErrDecode), "got %v", err)
}

func TestClientQuery_NonArrayIsDecodeError(t *testing.T) {
	sender := &cannedSender{responses: map[string]string{"query --spaces": `{"id":1}`}}
	c := NewClient(sender, zerolog.Nop())

	_, err := c.Spaces()
	assert.True(t, errors.Is(err, platform.ErrDecode), "got %v", err)
}

func TestClientQuery_EmptyIsDecodeError(t *testing.T) {
	c := NewClient(&cannedSender{}, zerolog.Nop())

	_, err := c.Displays()
	assert.True(t, errors.Is(err, platform.ErrDecode), "got %v", err)
}

func TestClientProbe(t *testing.T) {
	ok := &cannedSender{responses: map[string]string{"query --displays": `[]`}}
	require.NoError(t, NewClient(ok, zerolog.Nop()).Probe())

	bad := &cannedSender{responses: map[string]string{"query --displays": `{}`}}
	assert.Error(t, NewClient(bad, zerolog.Nop()).Probe())

	empty := &cannedSender{}
	assert.True(t, errors.Is(NewClient(empty, zerolog.Nop()).Probe(), ipc.ErrProtocol))
}

func TestClientOverSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "yws")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "d.sock")

	var mu sync.Mutex
	var received [][]string
	srv := ipc.NewServer(path, binary.NativeEndian, func(args []string) []byte {
		mu.Lock()
		received = append(received, args)
		mu.Unlock()
		if args[0] == "query" {
			return []byte("[]\n")
		}
		return nil
	}, zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Close() })

	c := NewClient(ipc.NewClient(ipc.Options{SocketPath: path, Logger: zerolog.Nop()}), zerolog.Nop())
	require.NoError(t, c.Probe())
	require.NoError(t, c.Run(LabelSpace(2, "")))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, []string{"query", "--displays"}, received[0])
	assert.Equal(t, []string{"space", "2", "--label", ""}, received[1])
}

func TestClientRun_RefusalIsNotAnErrorOnStrictTransport(t *testing.T) {
	dir, err := os.MkdirTemp("", "yws")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "d.sock")

	srv := ipc.NewServer(path, nil, func(args []string) []byte {
		return []byte("\x07cannot focus window.\n")
	}, zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Close() })

	c := NewClient(ipc.NewClient(ipc.Options{SocketPath: path, StrictDecode: true, Logger: zerolog.Nop()}), zerolog.Nop())
	require.NoError(t, c.Run(FocusDisplay(1)))

	_, err = c.Spaces()
	assert.ErrorIs(t, err, ipc.ErrProtocol, "queries stay strict")
	assert.ErrorIs(t, c.Probe(), ipc.ErrProtocol)
}

func TestCommandBuilders(t *testing.T) {
	assert.Equal(t, platform.Command{"config", "--space", "4", "layout", "bsp"}, SetSpaceLayout(4, platform.SpaceBSP))
	assert.Equal(t, platform.Command{"config", "--space", "4", "split_type", "vertical"}, SetSpaceSplit(4, platform.SplitVertical))
	assert.Equal(t, platform.Command{"window", "7", "--warp", "8"}, Warp(7, 8))
	assert.Equal(t, platform.Command{"space", "--create"}, CreateSpace(0))
	assert.Equal(t, platform.Command{"space", "--create", "2"}, CreateSpace(2))
	assert.Nil(t, StackChain([]int{5}))
	assert.Equal(t, []platform.Command{Stack(1, 2), Stack(2, 3)}, StackChain([]int{1, 2, 3}))
}
