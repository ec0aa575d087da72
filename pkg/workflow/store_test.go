package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// ============================================================================
// FileStore
// ============================================================================

func TestFileStoreSaveLoad(t *testing.T) {
	store := NewFileStore(t.TempDir())

	s := New("dc-east")
	if err := s.CompletePhase(PhaseConfigComplete, nil); err != nil {
		t.Fatalf("CompletePhase: %v", err)
	}
	if err := s.StartPhase(PhaseTerraformRunning); err != nil {
		t.Fatalf("StartPhase: %v", err)
	}

	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("dc-east")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for saved deployment")
	}
	if loaded.ID != s.ID {
		t.Errorf("ID = %q, want %q", loaded.ID, s.ID)
	}
	if loaded.CurrentPhase != PhaseTerraformRunning {
		t.Errorf("CurrentPhase = %q, want %q", loaded.CurrentPhase, PhaseTerraformRunning)
	}
	if got := loaded.PhaseStatus(PhaseConfigComplete); got != StatusComplete {
		t.Errorf("PhaseStatus(config_complete) = %q, want %q", got, StatusComplete)
	}
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	if err := store.Save(New("branch-west")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, "branch-west", "state.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state.json not created at %s: %v", path, err)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())

	loaded, err := store.Load("nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil state for unknown deployment")
	}
}

func TestFileStoreSaveRejectsNameless(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Save(&State{}); err == nil {
		t.Error("expected error saving state without deployment name")
	}
}

func TestFileStoreRemove(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if err := store.Save(New("removable")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Remove("removable"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	loaded, err := store.Load("removable")
	if err != nil {
		t.Fatalf("Load after remove: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil state after removal")
	}

	// Removing twice is fine.
	if err := store.Remove("removable"); err != nil {
		t.Errorf("Remove of absent deployment: %v", err)
	}
}

func TestFileStoreList(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected 0 deployments, got %d", len(names))
	}

	for _, name := range []string{"zeta", "alpha"} {
		if err := store.Save(New(name)); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
	}
	// Directories without a state.json are not deployments.
	if err := os.MkdirAll(filepath.Join(dir, "stray"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	names, err = store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 deployments, got %d: %v", len(names), names)
	}
	if names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("names = %v, want sorted [alpha zeta]", names)
	}
}

func TestFileStoreListMissingDir(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "never-created"))
	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected 0 deployments, got %d", len(names))
	}
}

func TestDefaultStateDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	dir, err := DefaultStateDir()
	if err != nil {
		t.Fatalf("DefaultStateDir: %v", err)
	}
	want := filepath.Join(tmpDir, ".panshift", "deployments")
	if dir != want {
		t.Errorf("dir = %q, want %q", dir, want)
	}
}

// ============================================================================
// Tracker
// ============================================================================

func TestTrackerPersistsEveryTransition(t *testing.T) {
	store := NewFileStore(t.TempDir())
	tr := NewTracker(New("dc-east"), store)

	if err := tr.StartPhase(PhaseConfigComplete); err != nil {
		t.Fatalf("StartPhase: %v", err)
	}
	loaded, err := store.Load("dc-east")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.PhaseStatus(PhaseConfigComplete); got != StatusInProgress {
		t.Errorf("persisted status = %q, want %q", got, StatusInProgress)
	}

	if err := tr.CompletePhase(PhaseConfigComplete, map[string]any{"spec": "ok"}); err != nil {
		t.Fatalf("CompletePhase: %v", err)
	}
	if err := tr.FailPhase(PhaseTerraformRunning, fmt.Errorf("apply exit 1")); err != nil {
		t.Fatalf("FailPhase: %v", err)
	}

	loaded, err = store.Load("dc-east")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.PhaseStatus(PhaseConfigComplete); got != StatusComplete {
		t.Errorf("persisted status = %q, want %q", got, StatusComplete)
	}
	if got := loaded.Phases[PhaseTerraformRunning].Error; got != "apply exit 1" {
		t.Errorf("persisted error = %q, want %q", got, "apply exit 1")
	}
}

func TestTrackerPauseAndSkipPersist(t *testing.T) {
	store := NewFileStore(t.TempDir())
	tr := NewTracker(New("dc-east"), store)

	if err := tr.PauseFor(PhaseLicensingPending, []string{"fw-1"}); err != nil {
		t.Fatalf("PauseFor: %v", err)
	}
	if err := tr.SkipPhase(PhaseSCMConfig, "pushed separately"); err != nil {
		t.Fatalf("SkipPhase: %v", err)
	}

	loaded, err := store.Load("dc-east")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Phases[PhaseLicensingPending].Awaiting; len(got) != 1 || got[0] != "fw-1" {
		t.Errorf("persisted awaiting = %v, want [fw-1]", got)
	}
	if got := loaded.Phases[PhaseSCMConfig].Reason; got != "pushed separately" {
		t.Errorf("persisted reason = %q, want %q", got, "pushed separately")
	}
}

func TestTrackerNilStore(t *testing.T) {
	tr := NewTracker(New("dry-run"), nil)
	if err := tr.StartPhase(PhaseConfigComplete); err != nil {
		t.Fatalf("StartPhase with nil store: %v", err)
	}
	if got := tr.State.PhaseStatus(PhaseConfigComplete); got != StatusInProgress {
		t.Errorf("status = %q, want %q", got, StatusInProgress)
	}
}

func TestTrackerRejectedTransitionNotPersisted(t *testing.T) {
	store := NewFileStore(t.TempDir())
	tr := NewTracker(New("dc-east"), store)

	if err := tr.StartPhase(Phase("bogus")); err == nil {
		t.Fatal("expected error for unknown phase")
	}

	loaded, err := store.Load("dc-east")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Error("rejected transition should not persist state")
	}
}
