// Package workspace owns the "current workspace" slot: the root
// directory under analysis and the group plan persisted between the
// create-groups and analyze-groups phases. Setup is serialized; two
// concurrent (re)initializations cannot interleave.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"codescope/pkg/grouper"
	"codescope/pkg/logging"
)

// ErrNoWorkspace is returned when an operation needs a workspace and
// none has been set up.
var ErrNoWorkspace = errors.New("no workspace configured")

// ErrNoPlan is returned when the analyze phase runs before any plan
// was created.
var ErrNoPlan = errors.New("no group plan found; run the create-groups step first")

const (
	stateDir = ".codescope"
	planFile = "plan.json"
)

// Workspace is the explicitly owned context value passed into every
// operation. It never holds file content; content is re-read from
// disk per phase.
type Workspace struct {
	Root string
}

// Manager guards the single current-workspace slot.
type Manager struct {
	mu      sync.Mutex
	current *Workspace
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Setup installs root as the current workspace, tearing down any
// prior one first. Concurrent calls serialize on the manager lock.
func (m *Manager) Setup(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Root != abs {
		logging.Get().Info("replacing current workspace",
			zap.String("old", m.current.Root),
			zap.String("new", abs))
	}
	m.current = &Workspace{Root: abs}
	return m.current, nil
}

// Current returns the active workspace.
func (m *Manager) Current() (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoWorkspace
	}
	return m.current, nil
}

// Reset clears the current workspace slot.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// SavePlan persists the plan under the workspace state directory so a
// later invocation can pick it up.
func (w *Workspace) SavePlan(plan *grouper.GroupPlan) error {
	data, err := plan.Encode()
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	dir := filepath.Join(w.Root, stateDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	path := filepath.Join(dir, planFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	logging.Get().Info("group plan saved",
		zap.String("path", path),
		zap.String("plan_id", plan.ID),
		zap.Int("groups", len(plan.Groups)))
	return nil
}

// LoadPlan reads back the persisted plan. A missing file maps to
// ErrNoPlan; unparseable content surfaces grouper.ErrMalformedPlan.
func (w *Workspace) LoadPlan() (*grouper.GroupPlan, error) {
	data, err := os.ReadFile(filepath.Join(w.Root, stateDir, planFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoPlan
		}
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return grouper.DecodePlan(data)
}
