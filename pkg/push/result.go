package push

import (
	"time"

	"github.com/panshift/panshift/pkg/scm"
)

// Action is the recorded outcome of one item.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
	ActionRenamed Action = "renamed"
	ActionFailed  Action = "failed"
)

// Result records the outcome of a single item.
type Result struct {
	Kind     scm.ItemKind `json:"kind"`
	Name     string       `json:"name"`
	NewName  string       `json:"new_name,omitempty"`
	Location string       `json:"location"`
	Action   Action       `json:"action"`
	Reason   string       `json:"reason,omitempty"`
}

// Summary is the outcome of a whole push run. The five action counters
// always sum to Total.
type Summary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Renamed int `json:"renamed"`
	Failed  int `json:"failed"`

	Results []Result `json:"results"`
	// Errors collects run-level problems: malformed selection entries,
	// snippet creation failures (once each), and per-item push failures.
	Errors []string `json:"errors,omitempty"`
	// RenamedNames maps original to suffixed names for objects pushed
	// under StrategyRename.
	RenamedNames map[string]string `json:"renamed_names,omitempty"`

	Strategy  Strategy  `json:"strategy"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Action {
	case ActionCreated:
		s.Created++
	case ActionUpdated:
		s.Updated++
	case ActionSkipped:
		s.Skipped++
	case ActionRenamed:
		s.Renamed++
	case ActionFailed:
		s.Failed++
	}
}

// Duration returns the wall-clock run time.
func (s *Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Record flattens the summary for history storage.
func (s *Summary) Record() map[string]any {
	return map[string]any{
		"total":    s.Total,
		"created":  s.Created,
		"updated":  s.Updated,
		"skipped":  s.Skipped,
		"renamed":  s.Renamed,
		"failed":   s.Failed,
		"errors":   len(s.Errors),
		"strategy": string(s.Strategy),
		"started":  s.StartedAt,
		"ended":    s.EndedAt,
	}
}
