package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/1broseidon/yws/internal/runtimepath"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Socket != nil {
		cfg.Socket = strings.TrimSpace(*raw.Socket)
	}
	if raw.SocketGlob != nil {
		cfg.SocketGlob = strings.TrimSpace(*raw.SocketGlob)
	}
	if raw.ByteOrder != nil {
		cfg.ByteOrder = strings.ToLower(strings.TrimSpace(*raw.ByteOrder))
	}
	if raw.MaxConnections != nil {
		cfg.MaxConnections = *raw.MaxConnections
	}
	if raw.StrictDecode != nil {
		cfg.StrictDecode = *raw.StrictDecode
	}
	if raw.WorkspacesDir != nil {
		dir, err := expandHome(strings.TrimSpace(*raw.WorkspacesDir))
		if err != nil {
			return nil, &ValidationError{Path: "workspaces_dir", Err: err}
		}
		cfg.WorkspacesDir = dir
	}
	if raw.Handlers != nil {
		cfg.Handlers = slices.Clone(*raw.Handlers)
	}

	if raw.Log != nil {
		if raw.Log.Level != nil {
			cfg.Log.Level = strings.ToLower(strings.TrimSpace(*raw.Log.Level))
		}
		if raw.Log.File != nil {
			file := strings.TrimSpace(*raw.Log.File)
			if file == "default" {
				path, err := runtimepath.LogPath()
				if err != nil {
					return nil, &ValidationError{Path: "log.file", Err: err}
				}
				file = path
			}
			expanded, err := expandHome(file)
			if err != nil {
				return nil, &ValidationError{Path: "log.file", Err: err}
			}
			cfg.Log.File = expanded
		}
		if raw.Log.MaxSizeMB != nil {
			cfg.Log.MaxSizeMB = *raw.Log.MaxSizeMB
		}
		if raw.Log.MaxFiles != nil {
			cfg.Log.MaxFiles = *raw.Log.MaxFiles
		}
	}

	if raw.Watch != nil && raw.Watch.Interval != nil {
		cfg.Watch.Interval = *raw.Watch.Interval
	}

	if len(raw.Layouts) > 0 {
		cfg.Layouts = make(map[int]map[string]any, len(raw.Layouts))
		for index, spec := range raw.Layouts {
			cfg.Layouts[index] = spec
		}
	}

	return cfg, nil
}
