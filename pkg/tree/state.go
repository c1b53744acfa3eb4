package tree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// State is the persisted expand/collapse state of a tree.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "categories": true,   // explicitly expanded
//	    "help": false         // explicitly collapsed
//	  }
//	}
//
// Only deviations from the supplied item defaults are stored, so a
// changed nav document keeps its own defaults for nodes the user never
// touched. Unknown IDs are ignored on load.
type State struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// StateVersion is the current schema version.
const StateVersion = 1

const stateFileName = "tree-state.json"

// StatePath returns the state file location inside dir (default ".sitenav").
func StatePath(dir string) string {
	if dir == "" {
		dir = ".sitenav"
	}
	return filepath.Join(dir, stateFileName)
}

// Snapshot captures the explicit deviations from the item defaults.
func (t *Tree) Snapshot() *State {
	state := &State{Version: StateVersion, Expanded: make(map[string]bool)}
	t.walk(func(n *Node) bool {
		if n.HasChildren() && n.Expanded != n.defaultExpanded {
			state.Expanded[n.ID] = n.Expanded
		}
		return true
	})
	return state
}

// ApplyState restores collapse state. The active node's ancestors stay
// expanded whatever the state says.
func (t *Tree) ApplyState(state *State) {
	if state == nil || len(state.Expanded) == 0 {
		return
	}
	for id, expanded := range state.Expanded {
		t.SetExpanded(id, expanded)
	}
	if t.active != nil {
		t.expandAncestors(t.active)
	}
}

// SaveState writes the current deviations to path, creating the parent
// directory when needed.
func (t *Tree) SaveState(path string) error {
	data, err := json.MarshalIndent(t.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tree state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write tree state %s: %w", path, err)
	}
	return nil
}

// LoadState reads and applies the state file. A missing file is not an
// error; a corrupted one is reported and leaves the tree untouched.
func (t *Tree) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read tree state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("invalid tree state %s: %w", path, err)
	}
	if state.Version > StateVersion {
		return fmt.Errorf("tree state %s has unsupported version %d", path, state.Version)
	}
	t.ApplyState(&state)
	return nil
}
