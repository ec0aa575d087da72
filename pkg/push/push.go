package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/panshift/panshift/pkg/scm"
	"github.com/panshift/panshift/pkg/util"
)

// RenameSuffix is appended to object names pushed under StrategyRename.
const RenameSuffix = "_renamed"

// maxErrorLen bounds the vendor error text recorded per item. Tenant APIs
// return whole response bodies on failure.
const maxErrorLen = 200

// ProgressFunc receives one event after every pushed item. current is
// 1-based; total is the number of valid items in the run.
type ProgressFunc func(message string, current, total int)

// Options configure a Pusher.
type Options struct {
	// DefaultStrategy applies when neither the selection nor the item
	// carries one. Empty means StrategySkip.
	DefaultStrategy Strategy
	// Logger receives engine logs. Nil falls back to the shared logger.
	Logger logrus.FieldLogger
	// Progress receives one event per item. Nil disables events.
	Progress ProgressFunc
	// Limiter throttles tenant API calls when set.
	Limiter *rate.Limiter
}

// Pusher pushes selections of configuration objects to a tenant.
type Pusher struct {
	client   scm.Client
	strategy Strategy
	log      logrus.FieldLogger
	progress ProgressFunc
	limiter  *rate.Limiter
}

// New creates a Pusher driving the given tenant client.
func New(client scm.Client, opts Options) *Pusher {
	log := opts.Logger
	if log == nil {
		log = util.Logger
	}
	strategy := opts.DefaultStrategy
	if strategy == "" {
		strategy = StrategySkip
	}
	return &Pusher{
		client:   client,
		strategy: strategy,
		log:      log,
		progress: opts.Progress,
		limiter:  opts.Limiter,
	}
}

// runState carries the per-run bookkeeping shared across items.
type runState struct {
	// renamed maps original names to their suffixed replacements so later
	// items of the same run can be repaired to reference the new names.
	renamed map[string]string
	// failedSnippets marks new snippet containers that could not be
	// created; items destined to them are skipped.
	failedSnippets map[string]bool
	// namesByLocation holds the original names of every valid item per
	// destination, for missing-dependency checks against new snippets.
	namesByLocation map[string]map[string]bool
}

// Push runs the full push of a selection. strategy overrides the engine
// default for this run when non-empty. Per-item failures never abort the
// run; the returned error is non-nil only for an unusable selection or a
// cancelled context.
func (p *Pusher) Push(ctx context.Context, sel *Selection, strategy Strategy) (*Summary, error) {
	if sel == nil {
		return nil, fmt.Errorf("push: nil selection")
	}
	if strategy == "" {
		strategy = p.strategy
	}

	summary := &Summary{
		Strategy:     strategy,
		StartedAt:    time.Now(),
		RenamedNames: map[string]string{},
	}

	items, flattenErrs := sel.Flatten(strategy)
	summary.Errors = append(summary.Errors, flattenErrs...)

	ordered, orderErrs := Order(items)
	summary.Errors = append(summary.Errors, orderErrs...)
	summary.Total = len(ordered)

	state := &runState{
		renamed:         summary.RenamedNames,
		failedSnippets:  map[string]bool{},
		namesByLocation: map[string]map[string]bool{},
	}
	for _, item := range ordered {
		key := item.Location.Key()
		if state.namesByLocation[key] == nil {
			state.namesByLocation[key] = map[string]bool{}
		}
		state.namesByLocation[key][item.Name] = true
	}

	p.log.WithFields(logrus.Fields{
		"items":    summary.Total,
		"strategy": strategy,
	}).Info("starting configuration push")

	p.createSnippets(ctx, ordered, state, summary)

	cancelled := false
	for i, item := range ordered {
		if !cancelled && ctx.Err() != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("push cancelled: %v", ctx.Err()))
			cancelled = true
		}

		var res Result
		if cancelled {
			res = Result{
				Kind: item.Kind, Name: item.Name, Location: item.Location.String(),
				Action: ActionSkipped, Reason: "push cancelled",
			}
		} else {
			res = p.pushItem(ctx, item, state, summary)
		}
		summary.add(res)

		p.emitProgress(fmt.Sprintf("%s %s: %s", item.Kind, item.Name, res.Action), i+1, summary.Total)
	}

	summary.EndedAt = time.Now()
	p.log.WithFields(logrus.Fields{
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
		"renamed": summary.Renamed,
		"failed":  summary.Failed,
		"errors":  len(summary.Errors),
	}).Info("configuration push finished")

	if cancelled {
		return summary, fmt.Errorf("push: cancelled: %w", ctx.Err())
	}
	return summary, nil
}

// createSnippets pre-creates every distinct new snippet container before any
// item pushes. A failed container records one error; the items destined to
// it are skipped later, without repeating the error per item.
func (p *Pusher) createSnippets(ctx context.Context, items []Item, state *runState, summary *Summary) {
	seen := map[string]bool{}
	for _, item := range items {
		if !item.Location.NewSnippet || seen[item.Location.Snippet] {
			continue
		}
		name := item.Location.Snippet
		seen[name] = true

		exists, err := p.client.SnippetExists(ctx, name)
		if err != nil {
			p.log.WithField("snippet", name).WithError(err).Warn("snippet existence check failed, assuming absent")
			exists = false
		}
		if exists {
			p.log.WithField("snippet", name).Debug("snippet already present")
			continue
		}

		if err := p.client.CreateSnippet(ctx, name); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			state.failedSnippets[name] = true
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("snippet %q: %s", name, util.Truncate(err.Error(), maxErrorLen)))
			p.log.WithField("snippet", name).WithError(err).Error("snippet creation failed")
			continue
		}
		p.log.WithField("snippet", name).Info("created snippet")
	}
}

// pushItem pushes one item and returns its result. Reference repair and
// dependency checks run before any API write.
func (p *Pusher) pushItem(ctx context.Context, item Item, state *runState, summary *Summary) Result {
	res := Result{Kind: item.Kind, Name: item.Name, Location: item.Location.String()}
	log := p.log.WithFields(logrus.Fields{"kind": item.Kind, "name": item.Name})

	if item.Location.NewSnippet && state.failedSnippets[item.Location.Snippet] {
		res.Action = ActionSkipped
		res.Reason = fmt.Sprintf("snippet %q was not created", item.Location.Snippet)
		return res
	}

	payload := item.Payload.Clone()
	if len(state.renamed) > 0 {
		if repairReferences(payload, item.Kind, state.renamed) {
			log.Debug("repaired references to renamed objects")
		}
	}

	if missing := p.missingDependencies(item, payload, state); len(missing) > 0 {
		res.Action = ActionSkipped
		res.Reason = util.NewDependencyError(fmt.Sprintf("%s %s", item.Kind, item.Name), missing...).Error()
		log.WithField("missing", missing).Warn("skipping item with unresolved members")
		return res
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			res.Action = ActionSkipped
			res.Reason = "push cancelled"
			return res
		}
	}

	exists, err := p.client.ObjectExists(ctx, item.Kind, item.Location, item.Name)
	if err != nil {
		// Best effort: an unreadable tenant answer must not block the
		// item, the create below settles it.
		log.WithError(err).Warn("existence check failed, assuming absent")
		exists = false
	}

	if exists {
		return p.pushConflicting(ctx, item, payload, state, summary, res, log)
	}

	if err := p.client.CreateObject(ctx, item.Kind, item.Location, payload); err != nil {
		if isAlreadyExists(err) {
			res.Action = ActionSkipped
			res.Reason = "already exists"
			return res
		}
		return p.failed(res, summary, "create failed", err)
	}
	res.Action = ActionCreated
	return res
}

// pushConflicting applies the item's conflict strategy after the destination
// reported the name as taken.
func (p *Pusher) pushConflicting(ctx context.Context, item Item, payload scm.Payload, state *runState, summary *Summary, res Result, log *logrus.Entry) Result {
	switch item.Strategy {
	case StrategyOverwrite:
		if err := p.client.DeleteObject(ctx, item.Kind, item.Location, item.Name); err != nil {
			return p.failed(res, summary, "overwrite delete failed", err)
		}
		if err := p.client.CreateObject(ctx, item.Kind, item.Location, payload); err != nil {
			if isAlreadyExists(err) {
				res.Action = ActionSkipped
				res.Reason = "already exists"
				return res
			}
			return p.failed(res, summary, "overwrite create failed", err)
		}
		log.Info("overwrote existing object")
		res.Action = ActionUpdated
		return res

	case StrategyRename:
		newName := item.Name + RenameSuffix
		renamed := payload.Clone()
		renamed.SetName(newName)
		if err := p.client.CreateObject(ctx, item.Kind, item.Location, renamed); err != nil {
			if isAlreadyExists(err) {
				res.Action = ActionSkipped
				res.Reason = fmt.Sprintf("rename target %q already exists", newName)
				return res
			}
			return p.failed(res, summary, "rename create failed", err)
		}
		state.renamed[item.Name] = newName
		log.WithField("new_name", newName).Info("pushed under new name")
		res.Action = ActionRenamed
		res.NewName = newName
		return res

	default: // StrategySkip
		res.Action = ActionSkipped
		res.Reason = fmt.Sprintf("already exists in %s", item.Location)
		return res
	}
}

// missingDependencies checks group members of items destined to a new
// snippet. A brand-new snippet starts empty, so every member must arrive in
// this run (under its original or renamed name); anything else cannot
// resolve and the item is skipped rather than pushed broken.
func (p *Pusher) missingDependencies(item Item, payload scm.Payload, state *runState) []string {
	if !item.Location.NewSnippet {
		return nil
	}
	field, ok := scm.MemberField(item.Kind)
	if !ok {
		return nil
	}
	members := payload.StringSlice(field)
	if len(members) == 0 {
		return nil
	}

	inRun := state.namesByLocation[item.Location.Key()]
	renamedTo := map[string]bool{}
	for _, newName := range state.renamed {
		renamedTo[newName] = true
	}

	var missing []string
	for _, m := range members {
		if m == item.Name || inRun[m] || renamedTo[m] {
			continue
		}
		missing = append(missing, m)
	}
	return missing
}

func (p *Pusher) failed(res Result, summary *Summary, what string, err error) Result {
	res.Action = ActionFailed
	res.Reason = fmt.Sprintf("%s: %s", what, util.Truncate(err.Error(), maxErrorLen))
	summary.Errors = append(summary.Errors, fmt.Sprintf("%s %s: %s", res.Kind, res.Name, res.Reason))
	p.log.WithFields(logrus.Fields{"kind": res.Kind, "name": res.Name}).WithError(err).Error("item push failed")
	return res
}

func (p *Pusher) emitProgress(message string, current, total int) {
	if p.progress != nil {
		p.progress(message, current, total)
	}
}

// repairReferences rewrites reference fields whose values were renamed
// earlier in the run. Handles scalar string fields and string lists.
func repairReferences(payload scm.Payload, kind scm.ItemKind, renamed map[string]string) bool {
	changed := false
	for _, field := range scm.ReferenceFields(kind) {
		switch v := payload[field].(type) {
		case string:
			if newName, ok := renamed[v]; ok {
				payload[field] = newName
				changed = true
			}
		case []string:
			for i, e := range v {
				if newName, ok := renamed[e]; ok {
					v[i] = newName
					changed = true
				}
			}
		case []any:
			for i, e := range v {
				s, ok := e.(string)
				if !ok {
					continue
				}
				if newName, ok := renamed[s]; ok {
					v[i] = newName
					changed = true
				}
			}
		}
	}
	return changed
}

// isAlreadyExists recognizes duplicate-name failures, both typed and from
// remote API message text.
func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, util.ErrAlreadyExists) {
		return true
	}
	msg := err.Error()
	return util.ContainsFold(msg, "already exists") || util.ContainsFold(msg, "duplicate")
}
