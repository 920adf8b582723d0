package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/seq"
	"github.com/1broseidon/yws/internal/yabai"
)

// Manager saves live state into workspaces and replays them.
type Manager struct {
	backend  platform.Backend
	handlers *Registry
	logger   zerolog.Logger
}

// NewManager creates a manager. A nil registry means no handlers.
func NewManager(backend platform.Backend, handlers *Registry, logger zerolog.Logger) *Manager {
	if handlers == nil {
		handlers = NewRegistry(logger)
	}
	return &Manager{
		backend:  backend,
		handlers: handlers,
		logger:   logger.With().Str("component", "workspace").Logger(),
	}
}

// Save captures live state and runs every handler's capture hook on every
// window. A hook error aborts the save.
func (m *Manager) Save(ctx context.Context, meta *Meta) (*Workspace, error) {
	if meta != nil {
		if err := (&Workspace{Meta: meta}).Validate(); err != nil {
			return nil, err
		}
	}

	ws, err := Capture(m.backend)
	if err != nil {
		return nil, err
	}
	ws.Meta = meta

	names := m.handlers.Names()
	for i := range ws.Windows {
		win := &ws.Windows[i]
		for _, name := range names {
			h, ok := m.handlers.Get(name)
			if !ok {
				continue
			}
			payload, err := h.Capture(ctx, *win)
			if err != nil {
				return nil, fmt.Errorf("%w: %s capture for window %d: %w", ErrHandler, name, win.ID, err)
			}
			if payload == nil {
				continue
			}
			if win.HandlerData == nil {
				win.HandlerData = make(map[string]any)
			}
			win.HandlerData[name] = payload
		}
	}

	m.logger.Debug().
		Int("displays", len(ws.Displays)).
		Int("spaces", len(ws.Spaces)).
		Int("windows", len(ws.Windows)).
		Msg("captured workspace")
	return ws, nil
}

// Restore resets the daemon to one empty space per display, rebuilds the
// recorded spaces, moves recorded windows into them, then runs restore hooks.
//
// Spaces are matched by index, not id. Spaces recorded on a display that is
// no longer connected are created on the focused display instead.
func (m *Manager) Restore(ctx context.Context, ws *Workspace) error {
	if ws == nil {
		return errors.New("workspace is nil")
	}
	if err := m.Reset(); err != nil {
		return err
	}

	displays, err := m.backend.Displays()
	if err != nil {
		return fmt.Errorf("failed to query displays: %w", err)
	}
	connected := make(map[int]bool, len(displays))
	for _, d := range displays {
		connected[d.Index] = true
	}

	groups := seq.OrderedGroupBy(ws.Spaces,
		func(s platform.Space) int { return s.Display },
		func(s platform.Space) int { return s.Index },
	)

	for _, group := range groups {
		present := connected[group.Key]
		if !present {
			m.logger.Warn().
				Int("display", group.Key).
				Int("spaces", len(group.Items)).
				Msg("workspace references a display that is not connected, using the focused display")
		}

		for i, space := range group.Items {
			var live int
			if i == 0 && present {
				live, err = m.firstSpaceOn(group.Key)
			} else {
				target := group.Key
				if !present {
					target = 0
				}
				live, err = m.createSpace(target)
			}
			if err != nil {
				return fmt.Errorf("recorded space %d: %w", space.Index, err)
			}

			m.logger.Debug().
				Int("recorded", space.Index).
				Int("live", live).
				Int("windows", len(space.Windows)).
				Msg("placing space")

			for _, id := range space.Windows {
				if err := m.backend.Run(yabai.MoveToSpace(id, live)); err != nil {
					return fmt.Errorf("failed to move window %d to space %d: %w", id, live, err)
				}
			}
		}
	}

	return m.restoreHandlers(ctx, ws.Windows)
}

// Reset clears labels and destroys every live space from the highest index
// down, then focuses display 1. The daemon refuses to destroy the last
// space on a display, leaving exactly one per display.
func (m *Manager) Reset() error {
	spaces, err := m.backend.Spaces()
	if err != nil {
		return fmt.Errorf("failed to query spaces: %w", err)
	}
	slices.SortFunc(spaces, func(a, b platform.Space) int { return b.Index - a.Index })

	for _, s := range spaces {
		if s.Label != "" {
			if err := m.backend.Run(yabai.LabelSpace(s.Index, "")); err != nil {
				return fmt.Errorf("failed to clear label on space %d: %w", s.Index, err)
			}
		}
		if err := m.backend.Run(yabai.DestroySpace(s.Index)); err != nil {
			return fmt.Errorf("failed to destroy space %d: %w", s.Index, err)
		}
	}

	if err := m.backend.Run(yabai.FocusDisplay(1)); err != nil {
		return fmt.Errorf("failed to focus display 1: %w", err)
	}
	return nil
}

func (m *Manager) firstSpaceOn(display int) (int, error) {
	spaces, err := m.backend.Spaces()
	if err != nil {
		return 0, fmt.Errorf("failed to query spaces: %w", err)
	}
	first := 0
	for _, s := range spaces {
		if s.Display == display && (first == 0 || s.Index < first) {
			first = s.Index
		}
	}
	if first == 0 {
		return 0, fmt.Errorf("display %d has no spaces", display)
	}
	return first, nil
}

// createSpace creates a space on display (0 for the focused display) and
// returns the new space's index, the highest one on that display.
func (m *Manager) createSpace(display int) (int, error) {
	if err := m.backend.Run(yabai.CreateSpace(display)); err != nil {
		return 0, fmt.Errorf("failed to create space: %w", err)
	}

	spaces, err := m.backend.Spaces()
	if err != nil {
		return 0, fmt.Errorf("failed to query spaces: %w", err)
	}

	target := display
	if target <= 0 {
		target = 1
		for _, s := range spaces {
			if s.HasFocus {
				target = s.Display
				break
			}
		}
	}

	last := 0
	for _, s := range spaces {
		if s.Display == target && s.Index > last {
			last = s.Index
		}
	}
	if last == 0 {
		return 0, fmt.Errorf("no space on display %d after create", target)
	}
	return last, nil
}

func (m *Manager) restoreHandlers(ctx context.Context, windows []platform.Window) error {
	for _, win := range windows {
		if len(win.HandlerData) == 0 {
			continue
		}
		names := make([]string, 0, len(win.HandlerData))
		for name := range win.HandlerData {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			h, ok := m.handlers.Get(name)
			if !ok {
				m.logger.Warn().
					Str("handler", name).
					Int("window", win.ID).
					Msg("no handler registered for recorded data, skipping")
				continue
			}
			if err := h.Restore(ctx, win.HandlerData[name]); err != nil {
				return fmt.Errorf("%w: %s restore for window %d: %w", ErrHandler, name, win.ID, err)
			}
		}
	}
	return nil
}
