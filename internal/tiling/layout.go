package tiling

import (
	"errors"
	"fmt"

	"github.com/1broseidon/yws/internal/platform"
)

// ErrInvalidLayout is returned for layout specs that cannot be applied.
var ErrInvalidLayout = errors.New("invalid layout")

// Type tags a layout variant in specs and config.
type Type string

const (
	TypeNone            Type = "none"
	TypeManaged         Type = "managed"
	TypeColumns         Type = "columns"
	TypeStackBesideRows Type = "stack_beside_rows"
)

// Layout is an arrangement directive for one space. The set of variants is
// closed: accept is unexported and dispatches to a method on planner, so a
// new variant does not compile until the engine handles it.
type Layout interface {
	Type() Type
	Validate() error
	accept(p planner, space platform.Space) ([]platform.Command, error)
}

type planner interface {
	planNone(NoLayout, platform.Space) ([]platform.Command, error)
	planManaged(ManagedLayout, platform.Space) ([]platform.Command, error)
	planColumns(ColumnsLayout, platform.Space) ([]platform.Command, error)
	planStackBesideRows(StackBesideRowsLayout, platform.Space) ([]platform.Command, error)
}

// NoLayout leaves the space untouched.
type NoLayout struct{}

// ManagedLayout hands the arrangement back to the daemon's own tiling.
type ManagedLayout struct{}

// ColumnsLayout arranges windows in a grid with ColCount columns, filled
// row by row in query order.
type ColumnsLayout struct {
	ColCount int `mapstructure:"col_count" json:"col_count"`
}

// StackBesideRowsLayout stacks windows of the prioritized apps on the left
// and puts everything else in SecondaryRowCount rows to the right.
type StackBesideRowsLayout struct {
	AppStackPriority  []string `mapstructure:"app_stack_priority" json:"app_stack_priority"`
	SecondaryRowCount int      `mapstructure:"secondary_row_count" json:"secondary_row_count"`
}

func (NoLayout) Type() Type              { return TypeNone }
func (ManagedLayout) Type() Type         { return TypeManaged }
func (ColumnsLayout) Type() Type         { return TypeColumns }
func (StackBesideRowsLayout) Type() Type { return TypeStackBesideRows }

func (NoLayout) Validate() error      { return nil }
func (ManagedLayout) Validate() error { return nil }

func (l ColumnsLayout) Validate() error {
	if l.ColCount < 1 {
		return fmt.Errorf("%w: columns: col_count must be >= 1, got %d", ErrInvalidLayout, l.ColCount)
	}
	return nil
}

func (l StackBesideRowsLayout) Validate() error {
	if len(l.AppStackPriority) == 0 {
		return fmt.Errorf("%w: stack_beside_rows: app_stack_priority must not be empty", ErrInvalidLayout)
	}
	if l.SecondaryRowCount < 1 {
		return fmt.Errorf("%w: stack_beside_rows: secondary_row_count must be >= 1, got %d", ErrInvalidLayout, l.SecondaryRowCount)
	}
	return nil
}

func (l NoLayout) accept(p planner, s platform.Space) ([]platform.Command, error) {
	return p.planNone(l, s)
}

func (l ManagedLayout) accept(p planner, s platform.Space) ([]platform.Command, error) {
	return p.planManaged(l, s)
}

func (l ColumnsLayout) accept(p planner, s platform.Space) ([]platform.Command, error) {
	return p.planColumns(l, s)
}

func (l StackBesideRowsLayout) accept(p planner, s platform.Space) ([]platform.Command, error) {
	return p.planStackBesideRows(l, s)
}
