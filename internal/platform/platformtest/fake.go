// Package platformtest provides an in-memory platform.Backend that records
// every command and simulates the daemon's space bookkeeping.
package platformtest

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/1broseidon/yws/internal/platform"
)

// Backend is a fake daemon. Spaces are renumbered 1..n in display order
// after every create or destroy, like the real daemon does. Commands it does
// not model are recorded and otherwise ignored.
type Backend struct {
	mu       sync.Mutex
	displays []platform.Display
	spaces   []platform.Space
	windows  []platform.Window
	focused  int
	nextID   int
	commands []platform.Command

	// RunErr, if set, is returned by every Run call after recording.
	RunErr error
	// QueryErr, if set, is returned by every query.
	QueryErr error
}

// New creates a fake with the given state. Display.Spaces and
// Space.Windows are recomputed from the space and window records.
func New(displays []platform.Display, spaces []platform.Space, windows []platform.Window) *Backend {
	b := &Backend{
		displays: slices.Clone(displays),
		spaces:   slices.Clone(spaces),
		windows:  slices.Clone(windows),
		focused:  1,
	}
	for _, s := range spaces {
		b.nextID = max(b.nextID, s.ID)
	}
	b.reindex()
	return b
}

// Display returns a minimal valid display record.
func Display(index int) platform.Display {
	return platform.Display{
		ID:    index,
		UUID:  "display-" + strconv.Itoa(index),
		Index: index,
		Frame: platform.Frame{W: 1920, H: 1080},
	}
}

// Space returns a minimal valid space record.
func Space(id, index, display int, windows ...int) platform.Space {
	return platform.Space{
		ID:      id,
		UUID:    "space-" + strconv.Itoa(id),
		Index:   index,
		Type:    platform.SpaceBSP,
		Display: display,
		Windows: append([]int{}, windows...),
	}
}

// Window returns a minimal valid window record.
func Window(id int, app string, display, space int) platform.Window {
	return platform.Window{
		ID:        id,
		PID:       1000 + id,
		App:       app,
		Title:     app,
		Frame:     platform.Frame{W: 800, H: 600},
		Role:      "AXWindow",
		Subrole:   "AXStandardWindow",
		Display:   display,
		Space:     space,
		Opacity:   1,
		SplitType: platform.SplitNone,
		CanMove:   true,
		CanResize: true,
		IsVisible: true,
	}
}

func (b *Backend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.QueryErr != nil {
		return nil, b.QueryErr
	}
	return cloneDisplays(b.displays), nil
}

func (b *Backend) Spaces() ([]platform.Space, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.QueryErr != nil {
		return nil, b.QueryErr
	}
	out := make([]platform.Space, len(b.spaces))
	for i, s := range b.spaces {
		s.Windows = slices.Clone(s.Windows)
		out[i] = s
	}
	return out, nil
}

func (b *Backend) Windows() ([]platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.QueryErr != nil {
		return nil, b.QueryErr
	}
	return slices.Clone(b.windows), nil
}

// Run records cmd and applies it to the simulated state.
func (b *Backend) Run(cmd platform.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, slices.Clone(cmd))
	if b.RunErr != nil {
		return b.RunErr
	}
	return b.apply(cmd)
}

// Commands returns every command issued so far.
func (b *Backend) Commands() []platform.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.commands)
}

// Reset forgets the recorded commands.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = nil
}

// Count returns how many recorded commands start with prefix.
func (b *Backend) Count(prefix ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, cmd := range b.commands {
		if len(cmd) >= len(prefix) && slices.Equal([]string(cmd[:len(prefix)]), prefix) {
			n++
		}
	}
	return n
}

// SetWindows replaces the window list.
func (b *Backend) SetWindows(windows []platform.Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows = slices.Clone(windows)
	b.reindex()
}

func (b *Backend) apply(cmd platform.Command) error {
	switch {
	case len(cmd) == 4 && cmd[0] == "space" && cmd[2] == "--label":
		i, err := b.spaceAt(cmd[1])
		if err != nil {
			return err
		}
		b.spaces[i].Label = cmd[3]

	case len(cmd) == 3 && cmd[0] == "space" && cmd[2] == "--destroy":
		i, err := b.spaceAt(cmd[1])
		if err != nil {
			return err
		}
		display := b.spaces[i].Display
		if b.spacesOn(display) < 2 {
			return nil
		}
		doomed := b.spaces[i].Index
		b.spaces = slices.Delete(b.spaces, i, i+1)
		for _, s := range b.spaces {
			if s.Display != display {
				continue
			}
			for wi := range b.windows {
				if b.windows[wi].Space == doomed {
					b.windows[wi].Space = s.Index
				}
			}
			break
		}
		b.reindex()

	case len(cmd) >= 2 && cmd[0] == "space" && cmd[1] == "--create":
		display := b.focused
		if len(cmd) == 3 {
			d, err := strconv.Atoi(cmd[2])
			if err != nil {
				return err
			}
			display = d
		}
		b.nextID++
		b.spaces = append(b.spaces, Space(b.nextID, 0, display))
		b.reindex()

	case len(cmd) == 3 && cmd[0] == "display" && cmd[1] == "--focus":
		d, err := strconv.Atoi(cmd[2])
		if err != nil {
			return err
		}
		b.focused = d
		b.reindex()

	case len(cmd) == 4 && cmd[0] == "window" && cmd[2] == "--space":
		id, err := strconv.Atoi(cmd[1])
		if err != nil {
			return err
		}
		i, err := b.spaceAt(cmd[3])
		if err != nil {
			return err
		}
		for wi := range b.windows {
			if b.windows[wi].ID == id {
				b.windows[wi].Space = b.spaces[i].Index
				b.windows[wi].Display = b.spaces[i].Display
			}
		}
		b.reindex()
	}
	return nil
}

func (b *Backend) spaceAt(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, err
	}
	for i, s := range b.spaces {
		if s.Index == index {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no space with index %d", index)
}

func (b *Backend) spacesOn(display int) int {
	n := 0
	for _, s := range b.spaces {
		if s.Display == display {
			n++
		}
	}
	return n
}

// reindex renumbers spaces by display then position and rebuilds the
// derived membership lists. Windows follow their space by id.
func (b *Backend) reindex() {
	oldIndex := make(map[int]int, len(b.spaces))
	for _, s := range b.spaces {
		oldIndex[s.Index] = s.ID
	}

	slices.SortStableFunc(b.spaces, func(x, y platform.Space) int { return x.Display - y.Display })

	newIndex := make(map[int]int, len(b.spaces))
	focusSet := false
	for i := range b.spaces {
		b.spaces[i].Index = i + 1
		newIndex[b.spaces[i].ID] = i + 1
		b.spaces[i].HasFocus = !focusSet && b.spaces[i].Display == b.focused
		if b.spaces[i].HasFocus {
			focusSet = true
		}
		b.spaces[i].Windows = []int{}
	}

	for wi := range b.windows {
		if id, ok := oldIndex[b.windows[wi].Space]; ok {
			if idx, ok := newIndex[id]; ok {
				b.windows[wi].Space = idx
			}
		}
		for si := range b.spaces {
			if b.spaces[si].Index == b.windows[wi].Space {
				b.spaces[si].Windows = append(b.spaces[si].Windows, b.windows[wi].ID)
			}
		}
	}

	for di := range b.displays {
		b.displays[di].Spaces = []int{}
		for _, s := range b.spaces {
			if s.Display == b.displays[di].Index {
				b.displays[di].Spaces = append(b.displays[di].Spaces, s.Index)
			}
		}
	}
}

func cloneDisplays(in []platform.Display) []platform.Display {
	out := make([]platform.Display, len(in))
	for i, d := range in {
		d.Spaces = slices.Clone(d.Spaces)
		out[i] = d
	}
	return out
}
