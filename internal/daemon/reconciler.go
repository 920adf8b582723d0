package daemon

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/tiling"
)

// DefaultInterval is used when ReconcilerConfig.Interval is not positive.
const DefaultInterval = 2 * time.Second

// LayoutApplier applies one layout to one space.
type LayoutApplier interface {
	Apply(layout tiling.Layout, space platform.Space) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   zerolog.Logger
}

// Reconciler periodically refreshes State and re-applies the configured
// layout to every space whose window set changed since it was last laid
// out.
type Reconciler struct {
	interval time.Duration
	state    *State
	engine   LayoutApplier
	logger   zerolog.Logger

	mu      sync.Mutex
	layouts map[int]tiling.Layout
	applied map[int]string
}

// NewReconciler creates a reconciler with no layouts configured.
func NewReconciler(cfg ReconcilerConfig, state *State, engine LayoutApplier) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		interval: interval,
		state:    state,
		engine:   engine,
		logger:   cfg.Logger.With().Str("component", "reconciler").Logger(),
		layouts:  map[int]tiling.Layout{},
		applied:  map[int]string{},
	}
}

// SetLayouts replaces the configured layouts. Every configured space is
// laid out again on the next pass.
func (r *Reconciler) SetLayouts(layouts map[int]tiling.Layout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layouts = make(map[int]tiling.Layout, len(layouts))
	for index, l := range layouts {
		r.layouts[index] = l
	}
	r.applied = map[int]string{}
	r.logger.Info().Int("spaces", len(layouts)).Msg("layouts updated")
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("reconciler started")
	r.reconcile()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// ReconcileNow runs one pass and returns how many spaces were laid out.
func (r *Reconciler) ReconcileNow() int {
	return r.reconcile()
}

func (r *Reconciler) reconcile() (applied int) {
	// Recover from panics to keep the loop alive
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Msg("reconciler panic recovered")
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.layouts) == 0 {
		return 0
	}

	ws, err := r.state.Refresh()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to refresh state")
		return 0
	}

	indexes := make([]int, 0, len(r.layouts))
	for index := range r.layouts {
		indexes = append(indexes, index)
	}
	slices.Sort(indexes)

	for _, index := range indexes {
		space, ok := platform.SpaceByIndex(ws.Spaces, index)
		if !ok {
			if _, seen := r.applied[index]; seen {
				r.logger.Warn().Int("space", index).Msg("configured space disappeared")
				delete(r.applied, index)
			}
			continue
		}

		fp := fingerprint(space.Windows)
		if prev, ok := r.applied[index]; ok && prev == fp {
			continue
		}

		if err := r.engine.Apply(r.layouts[index], space); err != nil {
			r.logger.Error().Err(err).Int("space", index).Msg("failed to apply layout")
			continue
		}
		r.applied[index] = fp
		applied++
		r.logger.Debug().Int("space", index).Int("windows", len(space.Windows)).Msg("layout re-applied")
	}
	return applied
}

// fingerprint identifies a window set regardless of order. Laying out a
// space reorders its windows but never changes membership.
func fingerprint(windows []int) string {
	ids := slices.Clone(windows)
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
