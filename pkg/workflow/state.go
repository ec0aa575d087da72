// Package workflow tracks deployment progress across a fixed sequence of
// resumable phases. Transitions are pure state mutations; persistence goes
// through a Store so file-backed and redis-backed workflows behave the same.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/panshift/panshift/pkg/util"
)

// Phase names one checkpoint of a deployment workflow. The set and order
// are fixed; stores reject nothing, the transitions validate.
type Phase string

const (
	PhaseConfigComplete    Phase = "config_complete"
	PhaseTerraformRunning  Phase = "terraform_running"
	PhaseTerraformComplete Phase = "terraform_complete"
	PhaseLicensingPending  Phase = "licensing_pending"
	PhaseFirewallConfig    Phase = "firewall_config"
	PhasePanoramaConfig    Phase = "panorama_config"
	PhaseSCMConfig         Phase = "scm_config"
	PhaseComplete          Phase = "complete"
)

// Phases lists every phase in workflow order.
var Phases = []Phase{
	PhaseConfigComplete,
	PhaseTerraformRunning,
	PhaseTerraformComplete,
	PhaseLicensingPending,
	PhaseFirewallConfig,
	PhasePanoramaConfig,
	PhaseSCMConfig,
	PhaseComplete,
}

// Status is the lifecycle state of a single phase.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// PhaseState holds the progress of one phase.
type PhaseState struct {
	Status      Status         `json:"status"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	// Awaiting lists what a paused phase is waiting on, e.g. license
	// activation tickets. Non-empty awaiting on the current phase means
	// the workflow is paused.
	Awaiting []string `json:"awaiting,omitempty"`
}

// State is the persisted workflow of one deployment.
type State struct {
	Deployment   string                `json:"deployment"`
	ID           string                `json:"id"`
	CurrentPhase Phase                 `json:"current_phase,omitempty"`
	Phases       map[Phase]*PhaseState `json:"phases"`
	Created      time.Time             `json:"created"`
	Updated      time.Time             `json:"updated"`
}

// New seeds a workflow with every phase pending.
func New(deployment string) *State {
	now := time.Now()
	s := &State{
		Deployment: deployment,
		ID:         uuid.NewString(),
		Phases:     make(map[Phase]*PhaseState, len(Phases)),
		Created:    now,
		Updated:    now,
	}
	for _, p := range Phases {
		s.Phases[p] = &PhaseState{Status: StatusPending}
	}
	return s
}

func (s *State) phase(p Phase) (*PhaseState, error) {
	ps, ok := s.Phases[p]
	if !ok {
		return nil, fmt.Errorf("workflow: %q: %w", p, util.ErrUnknownPhase)
	}
	return ps, nil
}

// StartPhase marks p in progress and moves the cursor to it. Restarting a
// failed phase clears its previous error.
func (s *State) StartPhase(p Phase) error {
	ps, err := s.phase(p)
	if err != nil {
		return err
	}
	now := time.Now()
	ps.Status = StatusInProgress
	ps.StartedAt = &now
	ps.Error = ""
	ps.Awaiting = nil
	s.CurrentPhase = p
	s.Updated = now
	return nil
}

// CompletePhase marks p complete, merges outputs into the phase record, and
// moves the cursor to it.
func (s *State) CompletePhase(p Phase, outputs map[string]any) error {
	ps, err := s.phase(p)
	if err != nil {
		return err
	}
	now := time.Now()
	ps.Status = StatusComplete
	ps.CompletedAt = &now
	ps.Awaiting = nil
	if len(outputs) > 0 {
		if ps.Outputs == nil {
			ps.Outputs = make(map[string]any, len(outputs))
		}
		for k, v := range outputs {
			ps.Outputs[k] = v
		}
	}
	s.CurrentPhase = p
	s.Updated = now
	return nil
}

// FailPhase records a failure on p. The cursor stays where it is so a
// resume knows which phase to retry.
func (s *State) FailPhase(p Phase, cause error) error {
	ps, err := s.phase(p)
	if err != nil {
		return err
	}
	now := time.Now()
	ps.Status = StatusFailed
	ps.CompletedAt = &now
	if cause != nil {
		ps.Error = cause.Error()
	}
	s.Updated = now
	return nil
}

// PauseFor parks the workflow on p until the awaited items clear. The phase
// stays in progress; IsPaused reports true while awaiting is non-empty.
func (s *State) PauseFor(p Phase, awaiting []string) error {
	ps, err := s.phase(p)
	if err != nil {
		return err
	}
	now := time.Now()
	ps.Status = StatusInProgress
	if ps.StartedAt == nil {
		ps.StartedAt = &now
	}
	ps.Awaiting = append([]string(nil), awaiting...)
	s.CurrentPhase = p
	s.Updated = now
	return nil
}

// SkipPhase marks p skipped with a reason and moves the cursor past it.
func (s *State) SkipPhase(p Phase, reason string) error {
	ps, err := s.phase(p)
	if err != nil {
		return err
	}
	now := time.Now()
	ps.Status = StatusSkipped
	ps.Reason = reason
	ps.Awaiting = nil
	s.CurrentPhase = p
	s.Updated = now
	return nil
}

// IsPaused reports whether the current phase is parked on awaited items.
func (s *State) IsPaused() bool {
	if s.CurrentPhase == "" {
		return false
	}
	ps, ok := s.Phases[s.CurrentPhase]
	return ok && ps.Status == StatusInProgress && len(ps.Awaiting) > 0
}

// IsComplete reports whether the workflow reached its terminal phase.
func (s *State) IsComplete() bool {
	return s.CurrentPhase == PhaseComplete
}

// IsFailed reports whether any phase failed.
func (s *State) IsFailed() bool {
	for _, ps := range s.Phases {
		if ps.Status == StatusFailed {
			return true
		}
	}
	return false
}

// PhaseStatus returns the status of p, or StatusPending for unknown phases.
func (s *State) PhaseStatus(p Phase) Status {
	if ps, ok := s.Phases[p]; ok {
		return ps.Status
	}
	return StatusPending
}

// PhaseOutputs returns the outputs recorded on p, nil when none.
func (s *State) PhaseOutputs(p Phase) map[string]any {
	if ps, ok := s.Phases[p]; ok {
		return ps.Outputs
	}
	return nil
}

// PhaseLabel renders a phase name for display: "firewall_config" becomes
// "Firewall config".
func PhaseLabel(p Phase) string {
	return util.CapitalizeFirst(strings.ReplaceAll(string(p), "_", " "))
}

// ResumeSummary renders one line per phase in workflow order, with error,
// skip reason, or awaited items where present.
func (s *State) ResumeSummary() []string {
	lines := make([]string, 0, len(Phases))
	for _, p := range Phases {
		ps := s.Phases[p]
		if ps == nil {
			ps = &PhaseState{Status: StatusPending}
		}
		line := fmt.Sprintf("%s: %s", PhaseLabel(p), ps.Status)
		switch {
		case ps.Status == StatusFailed && ps.Error != "":
			line += " (" + ps.Error + ")"
		case ps.Status == StatusSkipped && ps.Reason != "":
			line += " (" + ps.Reason + ")"
		case len(ps.Awaiting) > 0:
			line += " (awaiting " + strings.Join(ps.Awaiting, ", ") + ")"
		}
		if p == s.CurrentPhase {
			line += "  <- current"
		}
		lines = append(lines, line)
	}
	return lines
}
