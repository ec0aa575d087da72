package deploy

import (
	"time"

	"github.com/panshift/panshift/pkg/device"
)

// Phase names a position in the deployment state machine. Transitions are
// strictly forward; a failure before the firewall fan-out jumps to
// PhaseFailed.
type Phase string

const (
	PhaseInitializing         Phase = "initializing"
	PhaseGeneratingTerraform  Phase = "generating_terraform"
	PhaseTerraformInit        Phase = "terraform_init"
	PhaseTerraformPlan        Phase = "terraform_plan"
	PhaseTerraformApply       Phase = "terraform_apply"
	PhaseWaitingForInfra      Phase = "waiting_for_infrastructure"
	PhaseConfiguringPanorama  Phase = "configuring_panorama"
	PhaseConfiguringFirewalls Phase = "configuring_firewalls"
	PhaseRegisteringFirewalls Phase = "registering_firewalls"
	PhaseVerifying            Phase = "verifying"
	PhaseComplete             Phase = "complete"
	PhaseFailed               Phase = "failed"
)

// Status is the overall outcome of a deployment run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	// StatusPartial means some firewalls configured and some failed.
	StatusPartial Status = "partial"
)

// Result aggregates one deployment run. Only the coordinating goroutine
// mutates it; workers report through channels.
type Result struct {
	Deployment      string   `json:"deployment"`
	Status          Status   `json:"status"`
	Phase           Phase    `json:"phase"`
	Message         string   `json:"message,omitempty"`
	PhasesCompleted []Phase  `json:"phases_completed,omitempty"`
	Errors          []string `json:"errors,omitempty"`

	TerraformOutput map[string]any    `json:"terraform_output,omitempty"`
	ManagementIPs   map[string]string `json:"management_ips,omitempty"`

	PanoramaResult  *device.Result            `json:"panorama,omitempty"`
	FirewallResults map[string]*device.Result `json:"firewalls,omitempty"`

	// Paused is set when the run stopped at a manual step; Awaiting lists
	// what the operator must finish before resuming.
	Paused   bool     `json:"paused,omitempty"`
	Awaiting []string `json:"awaiting,omitempty"`

	Verified  bool      `json:"verified"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

func newResult(deployment string) *Result {
	return &Result{
		Deployment:      deployment,
		Status:          StatusInProgress,
		Phase:           PhaseInitializing,
		ManagementIPs:   make(map[string]string),
		FirewallResults: make(map[string]*device.Result),
		StartedAt:       time.Now(),
	}
}

func (r *Result) enter(p Phase) {
	r.Phase = p
}

func (r *Result) completed(p Phase) {
	r.PhasesCompleted = append(r.PhasesCompleted, p)
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *Result) fail(p Phase, err error) {
	r.Status = StatusFailed
	r.Phase = PhaseFailed
	r.Message = string(p) + ": " + err.Error()
	r.addError(r.Message)
}

func (r *Result) finish() {
	r.EndedAt = time.Now()
}

// Failed reports whether the run ended in StatusFailed.
func (r *Result) Failed() bool {
	return r.Status == StatusFailed
}

// FailedFirewalls counts firewall entries that did not succeed.
func (r *Result) FailedFirewalls() int {
	n := 0
	for _, fr := range r.FirewallResults {
		if fr.Failed() {
			n++
		}
	}
	return n
}

// Duration returns the wall-clock run time.
func (r *Result) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Record flattens the result for history storage.
func (r *Result) Record() map[string]any {
	return map[string]any{
		"deployment": r.Deployment,
		"status":     string(r.Status),
		"phase":      string(r.Phase),
		"message":    r.Message,
		"firewalls":  len(r.FirewallResults),
		"failed":     r.FailedFirewalls(),
		"verified":   r.Verified,
		"errors":     len(r.Errors),
		"started":    r.StartedAt,
		"ended":      r.EndedAt,
	}
}
