package tiling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/jsonc"
)

// TypeKey is the discriminator field in a layout spec.
const TypeKey = "layout_type"

// ParseLayout decodes one tagged layout spec, e.g.
//
//	{"layout_type": "columns", "col_count": 3}
//
// Unknown keys, missing keys and out-of-range values are ErrInvalidLayout.
func ParseLayout(spec map[string]any) (Layout, error) {
	rawType, ok := spec[TypeKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidLayout, TypeKey)
	}
	name, ok := rawType.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a string", ErrInvalidLayout, TypeKey)
	}

	fields := maps.Clone(spec)
	delete(fields, TypeKey)

	var layout Layout
	switch Type(strings.ToLower(strings.TrimSpace(name))) {
	case TypeNone, "noop":
		var l NoLayout
		if err := decodeFields(fields, &l); err != nil {
			return nil, err
		}
		layout = l
	case TypeManaged:
		var l ManagedLayout
		if err := decodeFields(fields, &l); err != nil {
			return nil, err
		}
		layout = l
	case TypeColumns:
		var l ColumnsLayout
		if err := decodeFields(fields, &l); err != nil {
			return nil, err
		}
		layout = l
	case TypeStackBesideRows:
		var l StackBesideRowsLayout
		if err := decodeFields(fields, &l); err != nil {
			return nil, err
		}
		layout = l
	default:
		return nil, fmt.Errorf("%w: unknown %s %q", ErrInvalidLayout, TypeKey, name)
	}

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

func decodeFields(fields map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		ErrorUnset:  true,
		Result:      out,
	})
	if err != nil {
		return fmt.Errorf("failed to build layout decoder: %w", err)
	}
	if err := dec.Decode(fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	return nil
}

// ParseLayouts converts a space-index keyed set of specs.
func ParseLayouts(specs map[int]map[string]any) (map[int]Layout, error) {
	out := make(map[int]Layout, len(specs))
	for index, spec := range specs {
		if index <= 0 {
			return nil, fmt.Errorf("%w: space index must be positive, got %d", ErrInvalidLayout, index)
		}
		layout, err := ParseLayout(spec)
		if err != nil {
			return nil, fmt.Errorf("space %d: %w", index, err)
		}
		out[index] = layout
	}
	return out, nil
}

type mappingDoc struct {
	Spaces map[string]map[string]any `json:"spaces"`
}

// ParseMapping decodes a layout mapping document. Comments and trailing
// commas are accepted.
//
//	{"spaces": {"3": {"layout_type": "columns", "col_count": 3}}}
func ParseMapping(data []byte) (map[int]Layout, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var doc mappingDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: unparseable mapping: %v", ErrInvalidLayout, err)
	}
	if doc.Spaces == nil {
		return nil, fmt.Errorf("%w: mapping has no %q object", ErrInvalidLayout, "spaces")
	}

	specs := make(map[int]map[string]any, len(doc.Spaces))
	for key, spec := range doc.Spaces {
		index, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("%w: space key %q is not an index", ErrInvalidLayout, key)
		}
		specs[index] = spec
	}
	return ParseLayouts(specs)
}

// Spec renders a layout back into its tagged form.
func Spec(l Layout) map[string]any {
	out := map[string]any{TypeKey: string(l.Type())}
	switch v := l.(type) {
	case ColumnsLayout:
		out["col_count"] = v.ColCount
	case StackBesideRowsLayout:
		out["app_stack_priority"] = v.AppStackPriority
		out["secondary_row_count"] = v.SecondaryRowCount
	}
	return out
}
