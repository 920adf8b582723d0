package workspace

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/1broseidon/yws/internal/platform"
)

// Meta names a saved workspace.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Workspace is the unit of snapshot persistence: everything the daemon
// reported at capture time plus handler data on the windows.
type Workspace struct {
	Meta     *Meta              `json:"meta,omitempty"`
	Displays []platform.Display `json:"displays"`
	Spaces   []platform.Space   `json:"spaces"`
	Windows  []platform.Window  `json:"windows"`
}

// Validate checks the meta block. Records were validated on decode.
func (w *Workspace) Validate() error {
	if w.Meta != nil && strings.TrimSpace(w.Meta.Name) == "" {
		return errors.New("workspace meta name must not be empty")
	}
	return nil
}

// Capture queries live state. The three queries are not atomic; a window
// may reference a space that disappeared in between.
func Capture(backend platform.Backend) (*Workspace, error) {
	displays, err := backend.Displays()
	if err != nil {
		return nil, fmt.Errorf("failed to query displays: %w", err)
	}
	spaces, err := backend.Spaces()
	if err != nil {
		return nil, fmt.Errorf("failed to query spaces: %w", err)
	}
	windows, err := backend.Windows()
	if err != nil {
		return nil, fmt.Errorf("failed to query windows: %w", err)
	}
	return &Workspace{Displays: displays, Spaces: spaces, Windows: windows}, nil
}

// normalize sorts records by index (windows by id) and replaces nil id
// lists with empty ones so that every required field is written.
func (w *Workspace) normalize() {
	if w.Displays == nil {
		w.Displays = []platform.Display{}
	}
	if w.Spaces == nil {
		w.Spaces = []platform.Space{}
	}
	if w.Windows == nil {
		w.Windows = []platform.Window{}
	}
	slices.SortStableFunc(w.Displays, func(a, b platform.Display) int { return cmp.Compare(a.Index, b.Index) })
	slices.SortStableFunc(w.Spaces, func(a, b platform.Space) int { return cmp.Compare(a.Index, b.Index) })
	slices.SortStableFunc(w.Windows, func(a, b platform.Window) int { return cmp.Compare(a.ID, b.ID) })
	for i := range w.Displays {
		if w.Displays[i].Spaces == nil {
			w.Displays[i].Spaces = []int{}
		}
	}
	for i := range w.Spaces {
		if w.Spaces[i].Windows == nil {
			w.Spaces[i].Windows = []int{}
		}
	}
}

// Encode renders ws as indented JSON with every object's keys sorted, so
// two saves of the same state diff cleanly.
func Encode(ws *Workspace) ([]byte, error) {
	if ws == nil {
		return nil, errors.New("workspace is nil")
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	cp := *ws
	cp.Displays = slices.Clone(ws.Displays)
	cp.Spaces = slices.Clone(ws.Spaces)
	cp.Windows = slices.Clone(ws.Windows)
	cp.normalize()

	raw, err := json.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workspace: %w", err)
	}

	// Struct fields marshal in declaration order; a generic round trip
	// turns every object into a map, which encoding/json writes sorted.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to encode workspace: %w", err)
	}

	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode workspace: %w", err)
	}
	return append(out, '\n'), nil
}

// Decode parses a snapshot document. Records are decoded strictly.
func Decode(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	ws.normalize()
	return &ws, nil
}
