package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store persists workflow state keyed by deployment name. Load returns
// (nil, nil) when no state exists for the name.
type Store interface {
	Save(state *State) error
	Load(deployment string) (*State, error)
	Remove(deployment string) error
	List() ([]string, error)
}

// DefaultStateDir returns the directory file-backed workflow state lives
// under, ~/.panshift/deployments.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("workflow: get home directory: %w", err)
	}
	return filepath.Join(home, ".panshift", "deployments"), nil
}

// FileStore keeps one state.json per deployment under a base directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) statePath(deployment string) string {
	return filepath.Join(f.dir, deployment, "state.json")
}

// Save writes the state as indented JSON, creating directories as needed.
func (f *FileStore) Save(state *State) error {
	if state == nil || state.Deployment == "" {
		return fmt.Errorf("workflow: save: state has no deployment name")
	}
	dir := filepath.Join(f.dir, state.Deployment)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("workflow: create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return fmt.Errorf("workflow: marshal state: %w", err)
	}

	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("workflow: write state file: %w", err)
	}
	return nil
}

// Load reads the state for a deployment. Missing state is not an error.
func (f *FileStore) Load(deployment string) (*State, error) {
	data, err := os.ReadFile(f.statePath(deployment))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("workflow: parse state file: %w", err)
	}
	return &state, nil
}

// Remove deletes all persisted state for a deployment.
func (f *FileStore) Remove(deployment string) error {
	if err := os.RemoveAll(filepath.Join(f.dir, deployment)); err != nil {
		return fmt.Errorf("workflow: remove state: %w", err)
	}
	return nil
}

// List returns the deployments with persisted state, sorted by name.
func (f *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: list state directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(f.statePath(entry.Name())); err == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
