package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidName is returned for workspace names that are empty or would
// escape the workspaces directory.
var ErrInvalidName = errors.New("invalid workspace name")

const fileExt = ".json"

func validateWorkspaceName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if strings.Contains(name, string(os.PathSeparator)) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ValidateName validates a workspace name.
func ValidateName(name string) error {
	return validateWorkspaceName(name)
}

// Store keeps named workspaces as JSON files in one directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a named workspace lives in.
func (s *Store) Path(name string) (string, error) {
	if err := validateWorkspaceName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, strings.TrimSpace(name)+fileExt), nil
}

// Write saves ws under name. A workspace without meta gets one naming it.
func (s *Store) Write(name string, ws *Workspace) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if ws != nil && ws.Meta == nil {
		ws.Meta = &Meta{Name: strings.TrimSpace(name)}
	}
	return WriteFile(path, ws)
}

// Read loads the named workspace.
func (s *Store) Read(name string) (*Workspace, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	ws, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if ws.Meta == nil {
		ws.Meta = &Meta{Name: strings.TrimSpace(name)}
	}
	return ws, nil
}

// Delete removes the named workspace.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete workspace %q: %w", name, err)
	}
	return nil
}

// List returns saved workspace names in sorted order. A missing directory
// lists as empty.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, fileExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(out)
	return out, nil
}

// WriteFile encodes ws to path, creating parent directories.
func WriteFile(path string, ws *Workspace) error {
	data, err := Encode(ws)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write workspace %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes the workspace at path.
func ReadFile(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace %s: %w", path, err)
	}
	ws, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ws, nil
}
