package device

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/panshift/panshift/pkg/spec"
	"github.com/panshift/panshift/pkg/util"
)

// DefaultCommitTimeout bounds a synchronous commit when Options leaves it
// zero.
const DefaultCommitTimeout = 10 * time.Minute

// ProgressFunc receives one event per phase entered.
type ProgressFunc func(target string, phase Phase)

// Options configure an Orchestrator. The zero value is usable: default
// timeouts, the process logger, no progress events.
type Options struct {
	Logger        logrus.FieldLogger
	Progress      ProgressFunc
	WaitTimeout   time.Duration
	CommitTimeout time.Duration
	RetryInterval time.Duration
	MaxRetries    int
}

// Orchestrator pushes configuration to firewalls and Panorama instances in
// a fixed phase order.
type Orchestrator struct {
	opts Options
	log  logrus.FieldLogger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = util.Logger
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = DefaultCommitTimeout
	}
	return &Orchestrator{opts: opts, log: opts.Logger}
}

// step is one configuration phase. Steps flagged commits leave candidate
// config behind, which decides whether a commit phase runs at all.
type step struct {
	phase   Phase
	run     func(context.Context) error
	commits bool
}

// ConfigureFirewall runs the firewall phase sequence: wait, connect,
// device settings, interfaces, zones, policy, commit, verify. Phases with
// nothing to push are skipped entirely.
func (o *Orchestrator) ConfigureFirewall(ctx context.Context, client FirewallClient, fw *spec.FirewallSpec) *Result {
	var steps []step
	if !fw.Device.IsZero() {
		steps = append(steps, step{PhaseConfiguringDevice, func(ctx context.Context) error {
			return client.ConfigureDevice(ctx, fw.Device)
		}, true})
	}
	if len(fw.Interfaces) > 0 {
		steps = append(steps, step{PhaseConfiguringNetwork, func(ctx context.Context) error {
			return client.ConfigureNetwork(ctx, fw.Interfaces)
		}, true})
	}
	if len(fw.Zones) > 0 {
		steps = append(steps, step{PhaseConfiguringZones, func(ctx context.Context) error {
			return client.ConfigureZones(ctx, fw.Zones)
		}, true})
	}
	if len(fw.Rules) > 0 {
		steps = append(steps, step{PhaseConfiguringPolicy, func(ctx context.Context) error {
			return client.ConfigurePolicy(ctx, fw.Rules)
		}, true})
	}
	return o.execute(ctx, fw.Name, client, steps)
}

// ConfigurePanorama runs the Panorama phase sequence: wait, connect,
// licensing, plugins, device settings, templates, device groups, commit,
// verify. Licensing and plugin installs are operational commands and do not
// by themselves force a commit.
func (o *Orchestrator) ConfigurePanorama(ctx context.Context, client PanoramaClient, pan *spec.PanoramaSpec) *Result {
	name := pan.Name
	if name == "" {
		name = "panorama"
	}

	var steps []step
	if len(pan.AuthCodes) > 0 {
		steps = append(steps, step{PhaseLicensing, func(ctx context.Context) error {
			return client.ActivateLicenses(ctx, pan.AuthCodes)
		}, false})
	}
	if len(pan.Plugins) > 0 {
		steps = append(steps, step{PhaseInstallingPlugins, func(ctx context.Context) error {
			return client.InstallPlugins(ctx, pan.Plugins)
		}, false})
	}
	if !pan.Device.IsZero() {
		steps = append(steps, step{PhaseConfiguringDevice, func(ctx context.Context) error {
			return client.ConfigureDevice(ctx, pan.Device)
		}, true})
	}
	if !pan.Templates.IsZero() {
		steps = append(steps, step{PhaseCreatingTemplates, func(ctx context.Context) error {
			return client.CreateTemplates(ctx, pan.Templates)
		}, true})
	}
	if len(pan.DeviceGroups) > 0 {
		steps = append(steps, step{PhaseCreatingDeviceGroups, func(ctx context.Context) error {
			return client.CreateDeviceGroups(ctx, pan.DeviceGroups)
		}, true})
	}
	return o.execute(ctx, name, client, steps)
}

func (o *Orchestrator) execute(ctx context.Context, target string, client Client, steps []step) *Result {
	res := newResult(target)
	defer res.finish()
	log := o.log.WithField("device", target)

	if err := o.phase(ctx, res, PhaseWaiting, func(ctx context.Context) error {
		return WaitReady(ctx, target, client, WaitOptions{
			Timeout:    o.opts.WaitTimeout,
			Interval:   o.opts.RetryInterval,
			MaxRetries: o.opts.MaxRetries,
		})
	}); err != nil {
		return res
	}

	if err := o.phase(ctx, res, PhaseConnecting, func(ctx context.Context) error {
		if err := client.Connect(ctx); err != nil {
			return err
		}
		id, err := client.Identity(ctx)
		if err != nil {
			client.Disconnect()
			return fmt.Errorf("device: identify %s: %w", target, err)
		}
		res.Serial = id.Serial
		res.Model = id.Model
		res.Version = id.Version
		log.WithField("serial", id.Serial).Info("Connected")
		return nil
	}); err != nil {
		return res
	}
	defer func() {
		if err := client.Disconnect(); err != nil {
			log.Warnf("Disconnect failed: %v", err)
		}
	}()

	needsCommit := false
	for _, s := range steps {
		if err := o.phase(ctx, res, s.phase, s.run); err != nil {
			return res
		}
		if s.commits {
			needsCommit = true
		}
	}

	if needsCommit {
		if err := o.phase(ctx, res, PhaseCommitting, func(ctx context.Context) error {
			cr, err := client.Commit(ctx, o.opts.CommitTimeout)
			if err != nil {
				return err
			}
			if !cr.Success {
				return &util.CommitError{Device: target, Detail: cr.Detail}
			}
			log.WithField("job", cr.JobID).Info("Commit complete")
			return nil
		}); err != nil {
			return res
		}
	}

	// Verification is advisory: a failed identity re-query logs a warning
	// and leaves Verified false without failing the push.
	o.progressEvent(target, PhaseVerifying)
	start := time.Now()
	id, err := client.Identity(ctx)
	res.PhaseDurations[PhaseVerifying] += time.Since(start)
	if err != nil {
		log.Warnf("Verification failed: %v", err)
	} else {
		res.Verified = true
		if res.Serial == "" {
			res.Serial = id.Serial
		}
	}

	res.Phase = PhaseComplete
	o.progressEvent(target, PhaseComplete)
	log.WithField("duration", res.Duration().Round(time.Second)).Info("Device push complete")
	return res
}

// phase runs one step, charging its wall time to the result and emitting a
// progress event on entry.
func (o *Orchestrator) phase(ctx context.Context, res *Result, p Phase, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		res.fail(p, err)
		return err
	}

	o.progressEvent(res.Target, p)
	start := time.Now()
	err := fn(ctx)
	res.PhaseDurations[p] += time.Since(start)
	if err != nil {
		res.fail(p, err)
		o.log.WithField("device", res.Target).WithField("phase", string(p)).Error(err.Error())
		return err
	}
	res.Phase = p
	return nil
}

func (o *Orchestrator) progressEvent(target string, p Phase) {
	if o.opts.Progress != nil {
		o.opts.Progress(target, p)
	}
}
