package device

import "time"

// Phase names one step of a device push.
type Phase string

const (
	PhaseWaiting              Phase = "waiting"
	PhaseConnecting           Phase = "connecting"
	PhaseLicensing            Phase = "licensing"
	PhaseInstallingPlugins    Phase = "installing_plugins"
	PhaseConfiguringDevice    Phase = "configuring_device"
	PhaseConfiguringNetwork   Phase = "configuring_network"
	PhaseConfiguringZones     Phase = "configuring_zones"
	PhaseConfiguringPolicy    Phase = "configuring_policy"
	PhaseCreatingTemplates    Phase = "creating_templates"
	PhaseCreatingDeviceGroups Phase = "creating_device_groups"
	PhaseCommitting           Phase = "committing"
	PhaseVerifying            Phase = "verifying"
	PhaseComplete             Phase = "complete"
)

// Status is the terminal outcome of a device push.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result records one device push: the phase reached, identity learned, and
// where time went.
type Result struct {
	Target string `json:"target"`
	Status Status `json:"status"`
	// Phase is the last phase entered. On failure it names the phase that
	// failed; on success it is PhaseComplete.
	Phase    Phase  `json:"phase"`
	Serial   string `json:"serial,omitempty"`
	Model    string `json:"model,omitempty"`
	Version  string `json:"version,omitempty"`
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`

	StartedAt      time.Time               `json:"started_at"`
	EndedAt        time.Time               `json:"ended_at"`
	PhaseDurations map[Phase]time.Duration `json:"phase_durations,omitempty"`
}

func newResult(target string) *Result {
	return &Result{
		Target:         target,
		Status:         StatusSuccess,
		StartedAt:      time.Now(),
		PhaseDurations: make(map[Phase]time.Duration),
	}
}

func (r *Result) fail(p Phase, err error) {
	r.Status = StatusFailed
	r.Phase = p
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *Result) finish() {
	r.EndedAt = time.Now()
}

// Failed reports whether the push failed.
func (r *Result) Failed() bool {
	return r.Status == StatusFailed
}

// Duration is the wall time of the whole push.
func (r *Result) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
