package platform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode marks a query record that is missing a required field or carries
// a value outside its domain. Records are never defaulted.
var ErrDecode = errors.New("decode error")

// Frame describes a rectangular region in screen coordinates.
type Frame struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// SpaceType is the daemon's arrangement mode for a space.
type SpaceType string

const (
	SpaceBSP   SpaceType = "bsp"
	SpaceFloat SpaceType = "float"
	SpaceStack SpaceType = "stack"
)

// SplitType is a window's split orientation.
type SplitType string

const (
	SplitNone       SplitType = "none"
	SplitAuto       SplitType = "auto"
	SplitHorizontal SplitType = "horizontal"
	SplitVertical   SplitType = "vertical"
)

// Display describes a physical display and the spaces it hosts.
type Display struct {
	ID     int    `json:"id"`
	UUID   string `json:"uuid"`
	Index  int    `json:"index"`
	Frame  Frame  `json:"frame"`
	Spaces []int  `json:"spaces"`
}

// Space is a virtual desktop owned by exactly one display. Display holds the
// owning display's index.
type Space struct {
	ID                 int       `json:"id"`
	UUID               string    `json:"uuid"`
	Index              int       `json:"index"`
	Label              string    `json:"label"`
	Type               SpaceType `json:"type"`
	Display            int       `json:"display"`
	Windows            []int     `json:"windows"`
	FirstWindow        int       `json:"first-window"`
	LastWindow         int       `json:"last-window"`
	HasFocus           bool      `json:"has-focus"`
	IsVisible          bool      `json:"is-visible"`
	IsNativeFullscreen bool      `json:"is-native-fullscreen"`
}

// Window is a top-level window as reported by the daemon. Display and Space
// hold owning indices.
//
// HandlerData is only populated while saving a snapshot and is consumed on
// restore; live queries never carry it.
type Window struct {
	ID                 int            `json:"id"`
	PID                int            `json:"pid"`
	App                string         `json:"app"`
	Title              string         `json:"title"`
	Frame              Frame          `json:"frame"`
	Role               string         `json:"role"`
	Subrole            string         `json:"subrole"`
	Display            int            `json:"display"`
	Space              int            `json:"space"`
	Level              int            `json:"level"`
	Layer              string         `json:"layer,omitempty"`
	Opacity            float64        `json:"opacity"`
	SplitType          SplitType      `json:"split-type"`
	StackIndex         int            `json:"stack-index"`
	CanMove            bool           `json:"can-move"`
	CanResize          bool           `json:"can-resize"`
	HasFocus           bool           `json:"has-focus"`
	HasShadow          bool           `json:"has-shadow"`
	HasBorder          bool           `json:"has-border,omitempty"`
	HasParentZoom      bool           `json:"has-parent-zoom"`
	HasFullscreenZoom  bool           `json:"has-fullscreen-zoom"`
	IsNativeFullscreen bool           `json:"is-native-fullscreen"`
	IsVisible          bool           `json:"is-visible"`
	IsMinimized        bool           `json:"is-minimized"`
	IsHidden           bool           `json:"is-hidden"`
	IsFloating         bool           `json:"is-floating"`
	IsSticky           bool           `json:"is-sticky"`
	IsTopmost          bool           `json:"is-topmost,omitempty"`
	IsGrabbed          bool           `json:"is-grabbed"`
	HandlerData        map[string]any `json:"handler-data,omitempty"`
}

var (
	frameFields   = []string{"x", "y", "w", "h"}
	displayFields = []string{"id", "uuid", "index", "frame", "spaces"}
	spaceFields   = []string{
		"id", "uuid", "index", "label", "type", "display", "windows",
		"first-window", "last-window", "has-focus", "is-visible", "is-native-fullscreen",
	}
	// layer, has-border and is-topmost come and go between daemon releases.
	windowFields = []string{
		"id", "pid", "app", "title", "frame", "role", "subrole", "display", "space",
		"level", "opacity", "split-type", "stack-index", "can-move", "can-resize",
		"has-focus", "has-shadow", "has-parent-zoom", "has-fullscreen-zoom",
		"is-native-fullscreen", "is-visible", "is-minimized", "is-hidden",
		"is-floating", "is-sticky", "is-grabbed",
	}
)

func (f *Frame) UnmarshalJSON(data []byte) error {
	type wire Frame
	var w wire
	if err := decodeRequired("frame", data, &w, frameFields); err != nil {
		return err
	}
	*f = Frame(w)
	return nil
}

func (d *Display) UnmarshalJSON(data []byte) error {
	type wire Display
	var w wire
	if err := decodeRequired("display", data, &w, displayFields); err != nil {
		return err
	}
	*d = Display(w)
	return d.Validate()
}

func (s *Space) UnmarshalJSON(data []byte) error {
	type wire Space
	var w wire
	if err := decodeRequired("space", data, &w, spaceFields); err != nil {
		return err
	}
	*s = Space(w)
	return s.Validate()
}

func (w *Window) UnmarshalJSON(data []byte) error {
	type wire Window
	var ww wire
	if err := decodeRequired("window", data, &ww, windowFields); err != nil {
		return err
	}
	*w = Window(ww)
	return w.Validate()
}

// Validate checks domain constraints on a display.
func (d Display) Validate() error {
	if d.ID <= 0 {
		return invalid("display", "id", d.ID)
	}
	if d.Index <= 0 {
		return invalid("display", "index", d.Index)
	}
	for _, idx := range d.Spaces {
		if idx <= 0 {
			return invalid("display", "spaces", idx)
		}
	}
	return nil
}

// Validate checks domain constraints on a space.
func (s Space) Validate() error {
	switch {
	case s.ID <= 0:
		return invalid("space", "id", s.ID)
	case s.Index <= 0:
		return invalid("space", "index", s.Index)
	case s.Display <= 0:
		return invalid("space", "display", s.Display)
	case s.FirstWindow < 0:
		return invalid("space", "first-window", s.FirstWindow)
	case s.LastWindow < 0:
		return invalid("space", "last-window", s.LastWindow)
	}
	switch s.Type {
	case SpaceBSP, SpaceFloat, SpaceStack:
	default:
		return invalid("space", "type", s.Type)
	}
	for _, id := range s.Windows {
		if id <= 0 {
			return invalid("space", "windows", id)
		}
	}
	return nil
}

// Validate checks domain constraints on a window.
func (w Window) Validate() error {
	switch {
	case w.ID <= 0:
		return invalid("window", "id", w.ID)
	case w.PID <= 0:
		return invalid("window", "pid", w.PID)
	case w.Display <= 0:
		return invalid("window", "display", w.Display)
	case w.Space <= 0:
		return invalid("window", "space", w.Space)
	case w.Level < 0:
		return invalid("window", "level", w.Level)
	case w.StackIndex < 0:
		return invalid("window", "stack-index", w.StackIndex)
	case w.Opacity < 0 || w.Opacity > 1:
		return invalid("window", "opacity", w.Opacity)
	}
	switch w.SplitType {
	case SplitNone, SplitAuto, SplitHorizontal, SplitVertical:
	default:
		return invalid("window", "split-type", w.SplitType)
	}
	return nil
}

func decodeRequired(kind string, data []byte, v any, required []string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, kind, err)
	}
	for _, field := range required {
		val, ok := raw[field]
		if !ok || bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			return fmt.Errorf("%w: %s: missing field %q", ErrDecode, kind, field)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, kind, err)
	}
	return nil
}

func invalid(kind, field string, value any) error {
	return fmt.Errorf("%w: %s: field %q has invalid value %v", ErrDecode, kind, field, value)
}
