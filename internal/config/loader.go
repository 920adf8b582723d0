package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source records where an effective value came from.
type Source struct {
	Kind   SourceKind
	Name   string // set for defaults
	File   string
	Line   int
	Column int
}

func (s Source) String() string {
	if s.Kind == SourceFile {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
	return s.Name
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // dotted key -> file position of the last write
	Files   []string          // every file read, includes first
}

// Load reads the configuration from the standard location. A missing file
// yields the defaults.
func Load() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration rooted at path, following includes.
// Included files apply first, in the order listed; the including file wins.
func LoadFromPath(path string) (*LoadResult, error) {
	top := layer{sources: map[string]Source{}}

	if _, err := os.Stat(path); err == nil {
		l := &loader{visited: map[string]bool{}}
		top, err = l.load(path)
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(top.raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, withSource(err, top.sources)
	}
	return &LoadResult{Config: cfg, Sources: top.sources, Files: top.files}, nil
}

// layer is the merged result of one file and everything it includes.
type layer struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
}

func (l *layer) overlay(other layer) {
	l.raw = l.raw.merge(other.raw)
	maps.Copy(l.sources, other.sources)
	l.files = append(l.files, other.files...)
}

// loader walks the include graph. A file reached twice through different
// branches is read once; a file that includes itself, directly or not, is
// an error.
type loader struct {
	visited map[string]bool
	chain   []string
}

func (l *loader) load(path string) (layer, error) {
	file := resolveFile(path)
	if slices.Contains(l.chain, file) {
		return layer{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(l.chain, " -> "), file)
	}
	if l.visited[file] {
		return layer{sources: map[string]Source{}}, nil
	}
	l.visited[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return layer{}, fmt.Errorf("%s: failed to read: %w", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return layer{}, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}
	var own RawConfig
	if err := decodeStrict(data, &own); err != nil {
		return layer{}, fmt.Errorf("%s: %w", file, err)
	}

	root := documentRoot(&doc)
	out := layer{sources: map[string]Source{}}

	l.chain = append(l.chain, file)
	for _, inc := range includeEntries(root, file) {
		targets, err := resolveInclude(file, inc.pattern)
		if err != nil {
			return layer{}, fmt.Errorf("%s: include %q: %w", inc.at, inc.pattern, err)
		}
		for _, target := range targets {
			sub, err := l.load(target)
			if err != nil {
				return layer{}, err
			}
			out.overlay(sub)
		}
	}
	l.chain = l.chain[:len(l.chain)-1]

	own.Include = nil
	out.overlay(layer{raw: own, sources: positions(root, file), files: []string{file}})
	return out, nil
}

func decodeStrict(data []byte, out *RawConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// resolveFile returns an absolute, symlink-free path when one can be
// determined, and the cleaned input otherwise.
func resolveFile(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// resolveInclude turns one include entry into files. An entry is a file, a
// directory (its .yaml/.yml files, sorted) or a doublestar pattern.
func resolveInclude(from, entry string) ([]string, error) {
	if strings.TrimSpace(entry) == "" {
		return nil, errors.New("path is empty")
	}
	target, err := expandHome(entry)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(from), target)
	}

	if strings.ContainsAny(entry, "*?[{") {
		matches, err := doublestar.FilepathGlob(target, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		slices.Sort(matches)
		return matches, nil
	}

	info, err := os.Stat(target)
	switch {
	case err != nil:
		return nil, err
	case !info.IsDir():
		return []string{target}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				files = append(files, filepath.Join(target, e.Name()))
			}
		}
	}
	slices.Sort(files)
	return files, nil
}

func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + rest, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func nodeSource(file string, n *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}
}

// positions maps every dotted key in the document to the position of its
// value. Sequences are recorded whole.
func positions(root *yaml.Node, file string) map[string]Source {
	out := map[string]Source{}
	var walk func(n *yaml.Node, prefix string)
	walk = func(n *yaml.Node, prefix string) {
		if n.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i].Value, n.Content[i+1]
			if prefix != "" {
				key = prefix + "." + key
			}
			out[key] = nodeSource(file, val)
			walk(val, key)
		}
	}
	walk(root, "")
	return out
}

type includeEntry struct {
	pattern string
	at      Source
}

func includeEntries(root *yaml.Node, file string) []includeEntry {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		items := []*yaml.Node{val}
		if val.Kind == yaml.SequenceNode {
			items = val.Content
		}
		var out []includeEntry
		for _, item := range items {
			if item.Kind == yaml.ScalarNode {
				out = append(out, includeEntry{pattern: item.Value, at: nodeSource(file, item)})
			}
		}
		return out
	}
	return nil
}

// withSource points a validation error at the file position that set the
// offending key.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Path != "" {
		if src, ok := sources[verr.Path]; ok {
			verr.Source = src
		}
	}
	return err
}
