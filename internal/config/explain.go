package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	socket
//	socket_glob
//	byte_order
//	max_connections
//	strict_decode
//	workspaces_dir
//	handlers
//	log.level
//	log.file
//	log.max_size_mb
//	log.max_files
//	watch.interval
//	layouts.<space index>
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch path {
	case "socket":
		return cfg.Socket, nil
	case "socket_glob":
		return cfg.SocketGlob, nil
	case "byte_order":
		return cfg.ByteOrder, nil
	case "max_connections":
		return cfg.MaxConnections, nil
	case "strict_decode":
		return cfg.StrictDecode, nil
	case "workspaces_dir":
		return cfg.WorkspacesDir, nil
	case "handlers":
		return cfg.Handlers, nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.file":
		return cfg.Log.File, nil
	case "log.max_size_mb":
		return cfg.Log.MaxSizeMB, nil
	case "log.max_files":
		return cfg.Log.MaxFiles, nil
	case "watch.interval":
		return cfg.Watch.Interval, nil
	}

	if rest, ok := strings.CutPrefix(path, "layouts."); ok {
		index, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid space index in %q", path)
		}
		spec, ok := cfg.Layouts[index]
		if !ok {
			return nil, fmt.Errorf("no layout configured for space %d", index)
		}
		return spec, nil
	}
	return nil, fmt.Errorf("unknown config path %q", path)
}
