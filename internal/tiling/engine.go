// Package tiling turns layout directives into ordered daemon command
// sequences and issues them against a space.
package tiling

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/seq"
	"github.com/1broseidon/yws/internal/yabai"
)

// Engine applies layouts. Commands for one space are issued strictly in
// order and nothing is verified in between, so a failure part way leaves
// the space partially arranged.
type Engine struct {
	mu      sync.Mutex
	backend platform.Backend
	logger  zerolog.Logger
}

var _ planner = (*Engine)(nil)

// NewEngine creates an engine bound to a backend.
func NewEngine(backend platform.Backend, logger zerolog.Logger) *Engine {
	return &Engine{
		backend: backend,
		logger:  logger.With().Str("component", "tiling").Logger(),
	}
}

// Plan returns the commands Apply would issue for layout on space. The
// stack-beside-rows plan depends on the live window list and queries it.
func (e *Engine) Plan(layout Layout, space platform.Space) ([]platform.Command, error) {
	if layout == nil {
		return nil, fmt.Errorf("%w: nil layout", ErrInvalidLayout)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return layout.accept(e, space)
}

// Apply arranges space according to layout.
func (e *Engine) Apply(layout Layout, space platform.Space) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(layout, space)
}

func (e *Engine) applyLocked(layout Layout, space platform.Space) error {
	cmds, err := e.Plan(layout, space)
	if err != nil {
		return err
	}

	e.logger.Debug().
		Int("space", space.Index).
		Str("layout", string(layout.Type())).
		Int("commands", len(cmds)).
		Msg("applying layout")

	for _, cmd := range cmds {
		if err := e.backend.Run(cmd); err != nil {
			return fmt.Errorf("space %d: %s layout: %w", space.Index, layout.Type(), err)
		}
	}
	return nil
}

// ApplyAll applies each layout to the space with the matching index, in
// ascending index order. Spaces are queried once up front; indexes with no
// live space are skipped with a warning.
func (e *Engine) ApplyAll(layouts map[int]Layout) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	spaces, err := e.backend.Spaces()
	if err != nil {
		return fmt.Errorf("failed to query spaces: %w", err)
	}

	indexes := make([]int, 0, len(layouts))
	for index := range layouts {
		indexes = append(indexes, index)
	}
	slices.Sort(indexes)

	var errs []error
	for _, index := range indexes {
		space, ok := platform.SpaceByIndex(spaces, index)
		if !ok {
			e.logger.Warn().Int("space", index).Msg("no such space, skipping layout")
			continue
		}
		if err := e.applyLocked(layouts[index], space); err != nil {
			if errors.Is(err, ErrInvalidLayout) {
				e.logger.Warn().Err(err).Int("space", index).Msg("skipping invalid layout")
				errs = append(errs, err)
				continue
			}
			return err
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) planNone(NoLayout, platform.Space) ([]platform.Command, error) {
	return nil, nil
}

// planManaged toggles float then bsp, which makes the daemon recompute the
// tree from scratch. The reverse order is a no-op on some daemon versions.
func (e *Engine) planManaged(_ ManagedLayout, space platform.Space) ([]platform.Command, error) {
	return []platform.Command{
		yabai.SetSpaceLayout(space.Index, platform.SpaceFloat),
		yabai.SetSpaceLayout(space.Index, platform.SpaceBSP),
	}, nil
}

func (e *Engine) planColumns(l ColumnsLayout, space platform.Space) ([]platform.Command, error) {
	return columnsPlan(l, space), nil
}

func (e *Engine) planStackBesideRows(l StackBesideRowsLayout, space platform.Space) ([]platform.Command, error) {
	windows, err := e.backend.Windows()
	if err != nil {
		return nil, fmt.Errorf("failed to query windows: %w", err)
	}
	return stackBesideRowsPlan(l, space, windows, e.logger), nil
}

// columnsPlan fills a grid row by row. The first row is linked left to
// right; every later cell is then placed below the cell above it.
func columnsPlan(l ColumnsLayout, space platform.Space) []platform.Command {
	idx := space.Index
	cmds := []platform.Command{
		yabai.SetSpaceSplit(idx, platform.SplitVertical),
		yabai.SetSpaceLayout(idx, platform.SpaceBSP),
	}

	rows := seq.Chunk(space.Windows, l.ColCount)
	if len(rows) > 0 {
		first := rows[0]
		for i := 0; i+1 < len(first); i++ {
			cmds = append(cmds,
				yabai.Insert(first[i], yabai.East),
				yabai.Warp(first[i+1], first[i]),
			)
		}
		for r := 0; r+1 < len(rows); r++ {
			upper, lower := rows[r], rows[r+1]
			for c := 0; c < len(lower) && c < len(upper); c++ {
				cmds = append(cmds,
					yabai.Insert(upper[c], yabai.South),
					yabai.Warp(lower[c], upper[c]),
				)
			}
		}
	}

	return append(cmds, yabai.Balance(idx))
}

// stackBesideRowsPlan stacks the prioritized windows and lays the rest out
// in rows to the east of the stack. Rows past SecondaryRowCount are stacked
// onto the last row.
func stackBesideRowsPlan(l StackBesideRowsLayout, space platform.Space, windows []platform.Window, logger zerolog.Logger) []platform.Command {
	idx := space.Index
	cmds := []platform.Command{yabai.SetSpaceLayout(idx, platform.SpaceBSP)}

	// The windows query is newer than the spaces query; trust its space field.
	onSpace := make([]platform.Window, 0, len(windows))
	for _, w := range windows {
		if w.Space == idx {
			onSpace = append(onSpace, w)
		}
	}

	others, stacked := seq.Partition(onSpace, func(w platform.Window) bool {
		return slices.Contains(l.AppStackPriority, w.App)
	})

	if len(stacked) == 0 {
		if len(others) == 0 {
			logger.Warn().Int("space", idx).Msg("no windows on space, nothing to arrange")
			return cmds
		}
		logger.Warn().
			Int("space", idx).
			Strs("apps", l.AppStackPriority).
			Int("window", others[0].ID).
			Msg("no prioritized app on space, stacking first window instead")
		stacked, others = others[:1], others[1:]
	}

	slices.SortStableFunc(stacked, func(a, b platform.Window) int {
		return slices.Index(l.AppStackPriority, a.App) - slices.Index(l.AppStackPriority, b.App)
	})

	stackIDs := windowIDs(stacked)
	last := stackIDs[len(stackIDs)-1]
	cmds = append(cmds, yabai.StackChain(stackIDs)...)
	cmds = append(cmds, yabai.SwapFirst(last))

	if len(others) == 0 {
		return cmds
	}

	otherIDs := windowIDs(others)
	n := min(l.SecondaryRowCount, len(otherIDs))
	rows, overflow := otherIDs[:n], otherIDs[n:]

	cmds = append(cmds,
		yabai.Insert(last, yabai.East),
		yabai.Warp(rows[0], last),
	)
	for i := 0; i+1 < len(rows); i++ {
		cmds = append(cmds,
			yabai.Insert(rows[i], yabai.South),
			yabai.Warp(rows[i+1], rows[i]),
		)
	}

	tail := append([]int{rows[len(rows)-1]}, overflow...)
	cmds = append(cmds, yabai.StackChain(tail)...)

	return append(cmds, yabai.Balance(idx))
}

func windowIDs(ws []platform.Window) []int {
	ids := make([]int, len(ws))
	for i, w := range ws {
		ids[i] = w.ID
	}
	return ids
}
