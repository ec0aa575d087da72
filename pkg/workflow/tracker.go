package workflow

// Tracker pairs a State with a Store and persists after every transition,
// so a crash between phases loses at most the phase in flight. A nil store
// makes the tracker purely in-memory, which tests and dry runs use.
type Tracker struct {
	State *State
	store Store
}

// NewTracker wraps an existing state. Pass the state loaded from a store to
// resume, or workflow.New for a fresh deployment.
func NewTracker(state *State, store Store) *Tracker {
	return &Tracker{State: state, store: store}
}

func (t *Tracker) save() error {
	if t.store == nil {
		return nil
	}
	return t.store.Save(t.State)
}

// StartPhase transitions and persists.
func (t *Tracker) StartPhase(p Phase) error {
	if err := t.State.StartPhase(p); err != nil {
		return err
	}
	return t.save()
}

// CompletePhase transitions and persists.
func (t *Tracker) CompletePhase(p Phase, outputs map[string]any) error {
	if err := t.State.CompletePhase(p, outputs); err != nil {
		return err
	}
	return t.save()
}

// FailPhase transitions and persists.
func (t *Tracker) FailPhase(p Phase, cause error) error {
	if err := t.State.FailPhase(p, cause); err != nil {
		return err
	}
	return t.save()
}

// PauseFor transitions and persists.
func (t *Tracker) PauseFor(p Phase, awaiting []string) error {
	if err := t.State.PauseFor(p, awaiting); err != nil {
		return err
	}
	return t.save()
}

// SkipPhase transitions and persists.
func (t *Tracker) SkipPhase(p Phase, reason string) error {
	if err := t.State.SkipPhase(p, reason); err != nil {
		return err
	}
	return t.save()
}
