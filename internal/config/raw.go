package config

import (
	"fmt"
	"maps"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "conf.d/*.yaml"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawLogConfig struct {
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawWatchConfig struct {
	Interval *time.Duration `yaml:"interval"`
}

// RawConfig mirrors the file format. Nil fields were not set by any file.
type RawConfig struct {
	Include        IncludeList            `yaml:"include"`
	Socket         *string                `yaml:"socket"`
	SocketGlob     *string                `yaml:"socket_glob"`
	ByteOrder      *string                `yaml:"byte_order"`
	MaxConnections *int                   `yaml:"max_connections"`
	StrictDecode   *bool                  `yaml:"strict_decode"`
	WorkspacesDir  *string                `yaml:"workspaces_dir"`
	Handlers       *[]string              `yaml:"handlers"`
	Log            *RawLogConfig          `yaml:"log"`
	Watch          *RawWatchConfig        `yaml:"watch"`
	Layouts        map[int]map[string]any `yaml:"layouts"`
}

// merge overlays the set fields of overlay onto r. Layouts merge per space
// index; a later file replaces a space's whole spec.
func (r RawConfig) merge(overlay RawConfig) RawConfig {
	out := r

	if overlay.Socket != nil {
		out.Socket = overlay.Socket
	}
	if overlay.SocketGlob != nil {
		out.SocketGlob = overlay.SocketGlob
	}
	if overlay.ByteOrder != nil {
		out.ByteOrder = overlay.ByteOrder
	}
	if overlay.MaxConnections != nil {
		out.MaxConnections = overlay.MaxConnections
	}
	if overlay.StrictDecode != nil {
		out.StrictDecode = overlay.StrictDecode
	}
	if overlay.WorkspacesDir != nil {
		out.WorkspacesDir = overlay.WorkspacesDir
	}
	if overlay.Handlers != nil {
		out.Handlers = overlay.Handlers
	}

	if overlay.Log != nil {
		if out.Log == nil {
			out.Log = &RawLogConfig{}
		} else {
			cp := *out.Log
			out.Log = &cp
		}
		if overlay.Log.Level != nil {
			out.Log.Level = overlay.Log.Level
		}
		if overlay.Log.File != nil {
			out.Log.File = overlay.Log.File
		}
		if overlay.Log.MaxSizeMB != nil {
			out.Log.MaxSizeMB = overlay.Log.MaxSizeMB
		}
		if overlay.Log.MaxFiles != nil {
			out.Log.MaxFiles = overlay.Log.MaxFiles
		}
	}

	if overlay.Watch != nil {
		if out.Watch == nil {
			out.Watch = &RawWatchConfig{}
		} else {
			cp := *out.Watch
			out.Watch = &cp
		}
		if overlay.Watch.Interval != nil {
			out.Watch.Interval = overlay.Watch.Interval
		}
	}

	if overlay.Layouts != nil {
		merged := make(map[int]map[string]any, len(out.Layouts)+len(overlay.Layouts))
		maps.Copy(merged, out.Layouts)
		maps.Copy(merged, overlay.Layouts)
		out.Layouts = merged
	}

	out.Include = nil
	return out
}
