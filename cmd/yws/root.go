package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/yws/internal/config"
	"github.com/1broseidon/yws/internal/handlers/chrome"
	"github.com/1broseidon/yws/internal/ipc"
	"github.com/1broseidon/yws/internal/logging"
	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/runtimepath"
	"github.com/1broseidon/yws/internal/tiling"
	"github.com/1broseidon/yws/internal/workspace"
	"github.com/1broseidon/yws/internal/yabai"
)

// Exit codes.
const (
	exitError        = 1
	exitInvalidInput = 2
)

// globalFlags holds flags available to all commands.
type globalFlags struct {
	Config  string
	Socket  string
	Verbose bool
	Quiet   bool
}

// app carries the state shared by the subcommands of one invocation.
type app struct {
	out   io.Writer
	flags globalFlags
	v     *viper.Viper

	configPath string
	loaded     *config.LoadResult
	cfg        *config.Config
	logger     *logging.Logger
	socket     string // set once the daemon has been dialed

	// newBackend is replaced in tests.
	newBackend func(a *app) (platform.Backend, error)
}

func newApp(out io.Writer) *app {
	return &app{
		out:        out,
		v:          viper.New(),
		newBackend: dialBackend,
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yws",
		Short: "Layouts and workspace snapshots for the yabai window manager",
		Long: `yws talks to the yabai daemon over its local socket.

It applies declarative layouts to spaces, saves the current arrangement of
displays, spaces and windows to a snapshot, and replays a snapshot onto the
displays that are connected now.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(a.out)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.flags.Config, "config", "c", "", "config file (default ~/.config/yws/config.yaml)")
	pf.StringVar(&a.flags.Socket, "socket", "", "daemon socket path (skips discovery)")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&a.flags.Quiet, "quiet", "q", false, "only log warnings and errors")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		newLayoutCmd(a),
		newWorkspaceCmd(a),
		newQueryCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

// execute runs the command tree and releases the log file. Cobra skips
// post-run hooks when a command fails, so the close happens here.
func (a *app) execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if cerr := a.logger.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close log file: %w", cerr)
	}
	a.logger = nil
	return err
}

// bindFlags binds the persistent flags to viper. The YWS_ prefix is used for
// environment variables (YWS_CONFIG, YWS_SOCKET, YWS_VERBOSE, YWS_QUIET).
func (a *app) bindFlags(cmd *cobra.Command) error {
	rootFlags := cmd.Root().PersistentFlags()
	for _, name := range []string{"config", "socket", "verbose", "quiet"} {
		if err := a.v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}
	a.v.SetEnvPrefix("YWS")
	a.v.AutomaticEnv()
	return nil
}

// setup loads the configuration and builds the logger. Flags and YWS_*
// variables win over the file.
func (a *app) setup(cmd *cobra.Command) error {
	if err := a.bindFlags(cmd); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	a.configPath = a.v.GetString("config")
	if a.configPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		a.configPath = path
	}

	res, err := config.LoadFromPath(a.configPath)
	if err != nil {
		return err
	}
	a.loaded = res
	a.cfg = res.Config
	if socket := a.v.GetString("socket"); socket != "" {
		a.cfg.Socket = socket
	}

	logger, err := logging.New(logging.Options{
		Level:     a.cfg.Log.Level,
		Verbose:   a.v.GetBool("verbose"),
		Quiet:     a.v.GetBool("quiet"),
		File:      a.cfg.Log.File,
		MaxSizeMB: a.cfg.Log.MaxSizeMB,
		MaxFiles:  a.cfg.Log.MaxFiles,
		Console:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// dialBackend resolves the socket, builds the transport and probes the
// daemon. A failed probe is fatal.
func dialBackend(a *app) (platform.Backend, error) {
	socket, err := runtimepath.SocketPath(a.cfg.Socket, a.cfg.SocketGlob)
	if err != nil {
		return nil, err
	}
	order, err := ipc.ParseByteOrder(a.cfg.ByteOrder)
	if err != nil {
		return nil, err
	}

	client := ipc.NewClient(ipc.Options{
		SocketPath:     socket,
		ByteOrder:      order,
		MaxConnections: a.cfg.MaxConnections,
		StrictDecode:   a.cfg.StrictDecode,
		Logger:         a.logger.Logger,
	})
	backend := yabai.NewClient(client, a.logger.Logger)
	if err := backend.Probe(); err != nil {
		return nil, err
	}
	a.socket = client.SocketPath()
	return backend, nil
}

func (a *app) backend() (platform.Backend, error) {
	return a.newBackend(a)
}

func (a *app) engine() (*tiling.Engine, error) {
	backend, err := a.backend()
	if err != nil {
		return nil, err
	}
	return tiling.NewEngine(backend, a.logger.Logger), nil
}

// registry builds the handler registry from the enabled handler names.
func (a *app) registry() *workspace.Registry {
	reg := workspace.NewRegistry(a.logger.Logger)
	for _, name := range a.cfg.Handlers {
		switch name {
		case chrome.Name:
			reg.Register(chrome.New(a.logger.Logger))
		default:
			a.logger.Warn().Str("handler", name).Msg("unknown handler, skipping")
		}
	}
	return reg
}

func (a *app) manager() (*workspace.Manager, error) {
	backend, err := a.backend()
	if err != nil {
		return nil, err
	}
	return workspace.NewManager(backend, a.registry(), a.logger.Logger), nil
}

func (a *app) store() *workspace.Store {
	return workspace.NewStore(a.cfg.WorkspacesDir)
}

// exitCodeForError maps user input errors to 2 and everything else to 1.
func exitCodeForError(err error) int {
	var verr *config.ValidationError
	switch {
	case errors.Is(err, tiling.ErrInvalidLayout),
		errors.Is(err, workspace.ErrInvalidName),
		errors.As(err, &verr):
		return exitInvalidInput
	}

	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "accepts ", "requires ", "if any flags in the group"} {
		if strings.HasPrefix(msg, prefix) || strings.Contains(msg, "invalid argument") {
			return exitInvalidInput
		}
	}
	return exitError
}
