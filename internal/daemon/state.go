// Package daemon keeps a live view of the window manager's state and
// re-applies configured layouts when it drifts.
package daemon

import (
	"sync"
	"time"

	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/workspace"
)

// State is the most recent capture of live displays, spaces and windows.
// It is only updated by Refresh.
type State struct {
	backend platform.Backend
	now     func() time.Time

	mu          sync.RWMutex
	current     *workspace.Workspace
	refreshedAt time.Time
}

// NewState creates an empty state backed by backend.
func NewState(backend platform.Backend) *State {
	return &State{backend: backend, now: time.Now}
}

// Refresh re-queries the backend. On error the previous capture is kept.
func (s *State) Refresh() (*workspace.Workspace, error) {
	ws, err := workspace.Capture(s.backend)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = ws
	s.refreshedAt = s.now()
	s.mu.Unlock()
	return ws, nil
}

// Snapshot returns the last capture and when it was taken. The workspace
// is nil before the first successful Refresh. Callers must not modify it.
func (s *State) Snapshot() (*workspace.Workspace, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.refreshedAt
}

// Space looks up a space by index in the last capture.
func (s *State) Space(index int) (platform.Space, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return platform.Space{}, false
	}
	return platform.SpaceByIndex(s.current.Spaces, index)
}
