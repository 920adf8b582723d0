// Package chrome saves and reopens Google Chrome tabs for workspace
// snapshots. It talks to Chrome through JXA scripts run by osascript.
package chrome

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"

	"github.com/1broseidon/yws/internal/platform"
)

const (
	// Name keys this handler's data on a window.
	Name = "chrome"
	// AppName is the app name the daemon reports for Chrome windows.
	AppName = "Google Chrome"
)

//go:embed scripts/capture.js
var captureScript string

//go:embed scripts/restore.js
var restoreScript string

// The daemon reports titles as "<title> - Google Chrome - <profile>" but
// Chrome's scripting API knows only "<title>".
var titleSuffix = regexp.MustCompile(` - Google Chrome.*$`)

// Tab is one saved browser tab.
type Tab struct {
	Title string `json:"title" mapstructure:"title"`
	URL   string `json:"url" mapstructure:"url"`
}

// Payload is the data stored under Name on a Chrome window.
type Payload struct {
	Tabs []Tab `json:"tabs" mapstructure:"tabs"`
}

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Handler implements workspace.Handler for Chrome.
type Handler struct {
	run    Runner
	logger zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRunner replaces the osascript runner.
func WithRunner(r Runner) Option {
	return func(h *Handler) { h.run = r }
}

// New creates a Chrome handler.
func New(logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		run:    execRunner,
		logger: logger.With().Str("handler", Name).Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string { return Name }

// Capture records the tabs of a Chrome window. Other apps, and windows
// Chrome cannot find by title, yield nil.
func (h *Handler) Capture(ctx context.Context, win platform.Window) (any, error) {
	if win.App != AppName {
		return nil, nil
	}

	title := titleSuffix.ReplaceAllString(win.Title, "")
	out, err := h.run(ctx, "osascript", "-l", "JavaScript", "-e", captureScript, title)
	if err != nil {
		return nil, fmt.Errorf("failed to capture tabs of %q: %w", title, err)
	}

	var tabs []Tab
	if err := json.Unmarshal(bytes.TrimSpace(out), &tabs); err != nil {
		return nil, fmt.Errorf("failed to parse tabs of %q: %w", title, err)
	}
	if len(tabs) == 0 {
		h.logger.Debug().Int("window", win.ID).Str("title", title).Msg("no tabs found")
		return nil, nil
	}
	return Payload{Tabs: tabs}, nil
}

// Restore opens a new Chrome window with the saved tabs.
func (h *Handler) Restore(ctx context.Context, payload any) error {
	var p Payload
	if err := mapstructure.Decode(payload, &p); err != nil {
		return fmt.Errorf("invalid %s payload: %w", Name, err)
	}

	urls := make([]string, 0, len(p.Tabs))
	for _, tab := range p.Tabs {
		if tab.URL != "" {
			urls = append(urls, tab.URL)
		}
	}
	if len(urls) == 0 {
		return nil
	}

	arg, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("failed to encode urls: %w", err)
	}
	if _, err := h.run(ctx, "osascript", "-l", "JavaScript", "-e", restoreScript, string(arg)); err != nil {
		return fmt.Errorf("failed to reopen %d tabs: %w", len(urls), err)
	}
	h.logger.Debug().Int("tabs", len(urls)).Msg("reopened chrome window")
	return nil
}

// osascript is often launched from a daemon hook with a minimal PATH.
const scriptPath = "PATH=/bin:/usr/bin:/usr/local/bin:/opt/homebrew/bin"

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), scriptPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
