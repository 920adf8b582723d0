package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/1broseidon/yws/internal/config"
	"github.com/1broseidon/yws/internal/daemon"
	"github.com/1broseidon/yws/internal/tiling"
)

const reloadDebounce = 500 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep configured layouts applied as windows come and go",
		Long: `Watch refreshes daemon state on an interval and re-applies the configured
layout to every space whose windows changed. Edits to the config file are
picked up without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				interval = a.cfg.Watch.Interval
			}
			return a.watch(cmd.Context(), interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default from config)")
	return cmd
}

func (a *app) watch(ctx context.Context, interval time.Duration) error {
	layouts, err := a.cfg.ParsedLayouts()
	if err != nil {
		return err
	}
	backend, err := a.backend()
	if err != nil {
		return err
	}

	state := daemon.NewState(backend)
	engine := tiling.NewEngine(backend, a.logger.Logger)
	rec := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: interval,
		Logger:   a.logger.Logger,
	}, state, engine)
	rec.SetLayouts(layouts)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(a.configPath)); err != nil {
		a.logger.Warn().Err(err).Str("path", a.configPath).Msg("config reload disabled")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(ctx)
	}()

	a.logger.Info().
		Dur("interval", interval).
		Int("spaces", len(layouts)).
		Str("config", a.configPath).
		Msg("watching")

	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	events, errs := watcher.Events, watcher.Errors
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			<-done
			return nil
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(a.configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			a.reloadLayouts(rec)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// reloadLayouts re-reads the config file. A broken file keeps the current
// layouts.
func (a *app) reloadLayouts(rec *daemon.Reconciler) {
	res, err := config.LoadFromPath(a.configPath)
	if err != nil {
		a.logger.Error().Err(err).Msg("config reload failed, keeping current layouts")
		return
	}
	layouts, err := res.Config.ParsedLayouts()
	if err != nil {
		a.logger.Error().Err(err).Msg("config reload failed, keeping current layouts")
		return
	}
	rec.SetLayouts(layouts)
}
