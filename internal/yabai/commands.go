package yabai

import (
	"strconv"

	"github.com/1broseidon/yws/internal/platform"
)

// Direction selects the side a window's next insertion lands on.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

var (
	QueryDisplays = platform.Command{"query", "--displays"}
	QuerySpaces   = platform.Command{"query", "--spaces"}
	QueryWindows  = platform.Command{"query", "--windows"}
)

func itoa(i int) string { return strconv.Itoa(i) }

// SetSpaceLayout sets a space's arrangement mode.
func SetSpaceLayout(space int, mode platform.SpaceType) platform.Command {
	return platform.Command{"config", "--space", itoa(space), "layout", string(mode)}
}

// SetSpaceSplit sets a space's default split orientation.
func SetSpaceSplit(space int, split platform.SplitType) platform.Command {
	return platform.Command{"config", "--space", itoa(space), "split_type", string(split)}
}

// Balance equalizes region sizes on a space.
func Balance(space int) platform.Command {
	return platform.Command{"space", itoa(space), "--balance"}
}

// Insert sets where the next window placed relative to window lands.
func Insert(window int, dir Direction) platform.Command {
	return platform.Command{"window", itoa(window), "--insert", string(dir)}
}

// Warp moves window into the region of target.
func Warp(window, target int) platform.Command {
	return platform.Command{"window", itoa(window), "--warp", itoa(target)}
}

// Stack stacks target onto window.
func Stack(window, target int) platform.Command {
	return platform.Command{"window", itoa(window), "--stack", itoa(target)}
}

// SwapFirst swaps window with the first window of its stack.
func SwapFirst(window int) platform.Command {
	return platform.Command{"window", itoa(window), "--swap", "first"}
}

// MoveToSpace sends window to the space with the given index.
func MoveToSpace(window, space int) platform.Command {
	return platform.Command{"window", itoa(window), "--space", itoa(space)}
}

// LabelSpace sets (or with an empty label, clears) a space label.
func LabelSpace(space int, label string) platform.Command {
	return platform.Command{"space", itoa(space), "--label", label}
}

// DestroySpace destroys a space. The daemon refuses for the last space of a display.
func DestroySpace(space int) platform.Command {
	return platform.Command{"space", itoa(space), "--destroy"}
}

// CreateSpace creates a space on the display with the given index, or on the
// focused display when display is 0.
func CreateSpace(display int) platform.Command {
	if display <= 0 {
		return platform.Command{"space", "--create"}
	}
	return platform.Command{"space", "--create", itoa(display)}
}

// FocusDisplay focuses the display with the given index.
func FocusDisplay(display int) platform.Command {
	return platform.Command{"display", "--focus", itoa(display)}
}

// StackChain stacks each window onto its successor, building one stack from
// the whole list. Fewer than two windows produce no commands.
func StackChain(windows []int) []platform.Command {
	if len(windows) < 2 {
		return nil
	}
	cmds := make([]platform.Command, 0, len(windows)-1)
	for i := 0; i+1 < len(windows); i++ {
		cmds = append(cmds, Stack(windows[i], windows[i+1]))
	}
	return cmds
}
