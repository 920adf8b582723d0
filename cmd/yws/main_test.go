package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/yws/internal/config"
	"github.com/1broseidon/yws/internal/ipc"
	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/platform/platformtest"
	"github.com/1broseidon/yws/internal/tiling"
	"github.com/1broseidon/yws/internal/workspace"
	"github.com/1broseidon/yws/internal/yabai"
)

// testEnv is an isolated config directory plus a fake daemon.
type testEnv struct {
	dir        string
	configPath string
	wsDir      string
	fake       *platformtest.Backend
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "yws.yaml"),
		wsDir:      filepath.Join(dir, "workspaces"),
		fake: platformtest.New(
			[]platform.Display{platformtest.Display(1)},
			[]platform.Space{
				platformtest.Space(1, 1, 1, 10, 11),
				platformtest.Space(2, 2, 1, 12),
			},
			[]platform.Window{
				platformtest.Window(10, "Code", 1, 1),
				platformtest.Window(11, "Terminal", 1, 1),
				platformtest.Window(12, "Safari", 1, 2),
			},
		),
	}

	cfg := "workspaces_dir: " + env.wsDir + "\nhandlers: []\n" + extraConfig
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o644))
	return env
}

// run executes the CLI against the fake backend.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return e.runWith(t, func(*app) (platform.Backend, error) { return e.fake, nil }, args...)
}

func (e *testEnv) runWith(t *testing.T, backend func(*app) (platform.Backend, error), args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout)
	if backend != nil {
		a.newBackend = backend
	}
	cmd := newRootCmd(a)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := a.execute(context.Background(), cmd)
	return stdout.String(), stderr.String(), err
}

// serveFake answers framed requests from the fake backend, the way the
// daemon would.
func serveFake(t *testing.T, fake *platformtest.Backend) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "yws")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "yabai.sock")

	srv := ipc.NewServer(sock, nil, func(args []string) []byte {
		if len(args) == 2 && args[0] == "query" {
			var v any
			var err error
			switch args[1] {
			case "--displays":
				v, err = fake.Displays()
			case "--spaces":
				v, err = fake.Spaces()
			case "--windows":
				v, err = fake.Windows()
			}
			if err != nil {
				return []byte(err.Error())
			}
			data, _ := json.Marshal(v)
			return data
		}
		if err := fake.Run(platform.Command(args)); err != nil {
			return []byte(err.Error())
		}
		return nil
	}, zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Close() })
	return sock
}

func TestLayoutApply_Inline(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t, "layout", "apply", `{"spaces": {"1": {"layout_type": "columns", "col_count": 2,},}}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied layouts to 1 space(s)")

	cmds := env.fake.Commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, yabai.SetSpaceSplit(1, platform.SplitVertical), cmds[0])
	assert.Equal(t, yabai.Balance(1), cmds[len(cmds)-1])
}

func TestLayoutApply_FromFileSkipsUnknownSpace(t *testing.T) {
	env := newTestEnv(t, "")
	path := filepath.Join(env.dir, "layouts.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // managed space and one that does not exist
  "spaces": {"2": {"layout_type": "managed"}, "9": {"layout_type": "none"}}
}`), 0o644))

	_, stderr, err := env.run(t, "layout", "apply", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, []platform.Command{
		yabai.SetSpaceLayout(2, platform.SpaceFloat),
		yabai.SetSpaceLayout(2, platform.SpaceBSP),
	}, env.fake.Commands())
	assert.Contains(t, stderr, "no such space")
}

func TestLayoutApply_FromConfig(t *testing.T) {
	env := newTestEnv(t, "layouts:\n  1:\n    layout_type: managed\n")

	_, _, err := env.run(t, "layout", "apply")
	require.NoError(t, err)
	assert.Equal(t, 2, env.fake.Count("config", "--space", "1", "layout"))
}

func TestLayoutApply_NothingToApply(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := env.run(t, "layout", "apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no layouts configured")
}

func TestLayoutApply_DryRunIssuesNothing(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t, "layout", "apply", "--dry-run", `{"spaces": {"1": {"layout_type": "columns", "col_count": 2}}}`)
	require.NoError(t, err)
	assert.Contains(t, out, "# space 1: columns")
	assert.Contains(t, out, "config --space 1 layout bsp")
	assert.Empty(t, env.fake.Commands())
}

func TestLayoutApply_InvalidLayoutIsInputError(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := env.run(t, "layout", "apply", `{"spaces": {"1": {"layout_type": "columns", "col_count": 0}}}`)
	require.Error(t, err)
	require.ErrorIs(t, err, tiling.ErrInvalidLayout)
	assert.Equal(t, exitInvalidInput, exitCodeForError(err))
	assert.Empty(t, env.fake.Commands())
}

func TestLayoutShow_RoundTripsThroughApply(t *testing.T) {
	env := newTestEnv(t, "layouts:\n  3:\n    layout_type: columns\n    col_count: 3\n  1:\n    layout_type: managed\n")

	out, _, err := env.run(t, "layout", "show")
	require.NoError(t, err)

	layouts, err := tiling.ParseMapping([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, map[int]tiling.Layout{
		1: tiling.ManagedLayout{},
		3: tiling.ColumnsLayout{ColCount: 3},
	}, layouts)
	assert.Empty(t, env.fake.Commands())
}

func TestWorkspace_NamedLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t, "workspace", "save", "dev", "--description", "morning setup")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 3 window(s) on 2 space(s)")
	assert.FileExists(t, filepath.Join(env.wsDir, "dev.json"))

	out, _, err = env.run(t, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "dev\t2 spaces\t3 windows\tmorning setup")

	out, _, err = env.run(t, "workspace", "show", "dev")
	require.NoError(t, err)
	ws, err := workspace.Decode([]byte(out))
	require.NoError(t, err)
	require.NotNil(t, ws.Meta)
	assert.Equal(t, "dev", ws.Meta.Name)

	env.fake.Reset()
	out, _, err = env.run(t, "workspace", "restore", "dev")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 2 space(s) and 3 window(s)")
	assert.Contains(t, env.fake.Commands(), yabai.FocusDisplay(1))
	assert.Contains(t, env.fake.Commands(), yabai.MoveToSpace(12, 2))

	_, _, err = env.run(t, "workspace", "delete", "dev")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(env.wsDir, "dev.json"))

	out, _, err = env.run(t, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved workspaces in "+env.wsDir)
}

func TestWorkspace_SaveAndRestoreByFile(t *testing.T) {
	env := newTestEnv(t, "")
	path := filepath.Join(env.dir, "snap", "state.json")

	_, _, err := env.run(t, "workspace", "save", "--file", path)
	require.NoError(t, err)

	ws, err := workspace.ReadFile(path)
	require.NoError(t, err)
	assert.Nil(t, ws.Meta)
	assert.Len(t, ws.Windows, 3)

	_, _, err = env.run(t, "workspace", "restore", "--file", path)
	require.NoError(t, err)
}

func TestWorkspace_TargetValidation(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := env.run(t, "workspace", "save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file is required")

	_, _, err = env.run(t, "workspace", "save", "dev", "--file", "x.json")
	require.Error(t, err)

	_, _, err = env.run(t, "workspace", "save", "../escape")
	require.ErrorIs(t, err, workspace.ErrInvalidName)
	assert.Equal(t, exitInvalidInput, exitCodeForError(err))
	assert.Empty(t, env.fake.Commands())
}

func TestQuery_OverSocket(t *testing.T) {
	env := newTestEnv(t, "")
	sock := serveFake(t, env.fake)

	out, _, err := env.runWith(t, nil, "--socket", sock, "query", "spaces")
	require.NoError(t, err)

	var spaces []platform.Space
	require.NoError(t, json.Unmarshal([]byte(out), &spaces))
	require.Len(t, spaces, 2)
	assert.Equal(t, []int{10, 11}, spaces[0].Windows)
}

func TestQuery_RejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := env.run(t, "query", "menus")
	require.Error(t, err)
	assert.Equal(t, exitInvalidInput, exitCodeForError(err))
}

func TestStatus_SocketFromEnvironment(t *testing.T) {
	env := newTestEnv(t, "layouts:\n  1: {layout_type: managed}\n  7: {layout_type: managed}\n")
	sock := serveFake(t, env.fake)
	t.Setenv("YWS_SOCKET", sock)

	out, _, err := env.runWith(t, nil, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Daemon:         reachable")
	assert.Contains(t, out, "Socket:         "+sock)
	assert.Contains(t, out, "Windows:        3")
	assert.Contains(t, out, "Focused space:  1")
	assert.Contains(t, out, "2 configured, 1 for missing spaces")
}

func TestStatus_ProbeFailureIsFatal(t *testing.T) {
	env := newTestEnv(t, "")
	sock := filepath.Join(env.dir, "missing.sock")

	_, _, err := env.runWith(t, nil, "--socket", sock, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon probe failed")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t, "byte_order: big\n")

	out, _, err := env.run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Config OK")

	out, _, err = env.run(t, "config", "explain", "byte_order")
	require.NoError(t, err)
	assert.Contains(t, out, "byte_order: big")
	assert.Contains(t, out, "# set in ")

	out, _, err = env.run(t, "config", "print")
	require.NoError(t, err)
	assert.Contains(t, out, "workspaces_dir: "+env.wsDir)
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t, "")

	_, _, err := env.run(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	path := filepath.Join(env.dir, "fresh", "yws.yaml")
	out, _, err := env.run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	res, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().MaxConnections, res.Config.MaxConnections)

	_, _, err = env.run(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfig_InvalidFileIsInputError(t *testing.T) {
	env := newTestEnv(t, "max_connections: 0\n")

	_, _, err := env.run(t, "config", "validate")
	require.Error(t, err)
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, exitInvalidInput, exitCodeForError(err))
}

func TestExecute_ClosesLogFileWhenCommandFails(t *testing.T) {
	env := newTestEnv(t, "log:\n  file: "+filepath.Join(t.TempDir(), "yws.log")+"\n")

	var stdout bytes.Buffer
	a := newApp(&stdout)
	a.newBackend = func(*app) (platform.Backend, error) { return env.fake, nil }
	cmd := newRootCmd(a)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "layout", "apply"})

	err := a.execute(context.Background(), cmd)
	require.Error(t, err)
	require.NotNil(t, a.cfg, "setup ran before the failure")
	assert.Nil(t, a.logger)
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid layout", err: tiling.ErrInvalidLayout, want: exitInvalidInput},
		{name: "unknown flag", err: errors.New("unknown flag: --nope"), want: exitInvalidInput},
		{name: "arg count", err: errors.New("accepts 1 arg(s), received 2"), want: exitInvalidInput},
		{name: "transport", err: errors.New("failed to connect to daemon"), want: exitError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCodeForError(tc.err))
		})
	}
}

func TestRootHelpWithoutArgs(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "workspace") && strings.Contains(out, "layout"))
}
