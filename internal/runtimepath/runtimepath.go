package runtimepath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSocketGlob matches the per-user socket the window manager daemon
// registers under the temp directory (e.g. /tmp/yabai_alice.socket).
const DefaultSocketGlob = "/tmp/yabai_*.socket"

var (
	ErrSocketNotFound  = errors.New("no daemon socket found")
	ErrAmbiguousSocket = errors.New("multiple daemon sockets found")
)

// DiscoverSocket returns the single path matching pattern. Zero or several
// matches are both errors; the caller cannot pick a daemon on its own.
func DiscoverSocket(pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultSocketGlob
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to glob %q: %w", pattern, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: pattern %q (is the daemon running?)", ErrSocketNotFound, pattern)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %v", ErrAmbiguousSocket, matches)
	}
}

// SocketPath resolves the daemon socket. An explicit override wins over
// discovery and is returned even if it does not exist yet; connection errors
// surface on first use.
func SocketPath(override, pattern string) (string, error) {
	if override != "" {
		return override, nil
	}
	return DiscoverSocket(pattern)
}

// ConfigDir returns the yws configuration directory. Priority:
// 1) XDG_CONFIG_HOME/yws (if set)
// 2) ~/.config/yws
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "yws"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "yws"), nil
}

// ConfigPath returns the default configuration file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WorkspacesDir returns the directory holding named workspace snapshots.
func WorkspacesDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces"), nil
}

// StateDir returns the directory used for logs. Priority:
// 1) XDG_STATE_HOME/yws (if set)
// 2) ~/.local/state/yws
func StateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "yws"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "state", "yws"), nil
}

// LogPath returns the default rotating log file path.
func LogPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "yws.log"), nil
}
