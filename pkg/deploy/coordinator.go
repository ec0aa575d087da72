// Package deploy coordinates full site bring-up: terraform provisioning,
// Panorama and firewall configuration fan-out, and firewall registration,
// checkpointing progress through pkg/workflow so interrupted runs resume.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/panshift/panshift/pkg/device"
	"github.com/panshift/panshift/pkg/device/panos"
	"github.com/panshift/panshift/pkg/spec"
	"github.com/panshift/panshift/pkg/util"
	"github.com/panshift/panshift/pkg/workflow"
)

// ProgressFunc receives one event per phase change and one per finished
// firewall. current and total are zero for phase events.
type ProgressFunc func(message string, current, total int)

// FirewallClientFunc builds the client for one firewall. Swapped for a fake
// in tests.
type FirewallClientFunc func(host string, creds device.Credentials) device.FirewallClient

// PanoramaClientFunc builds the client for a Panorama instance.
type PanoramaClientFunc func(host string, creds device.Credentials) device.PanoramaClient

// Options configure a Coordinator.
type Options struct {
	// Provisioner runs the terraform phases. Required unless SkipProvision
	// is set and recorded outputs exist.
	Provisioner Provisioner
	// Tracker checkpoints workflow state after every phase. Optional.
	Tracker *workflow.Tracker
	// SkipProvision reuses the outputs recorded in workflow state instead
	// of running terraform. This is the resume path.
	SkipProvision bool
	// Orchestrator pushes device configuration. Built from the deployment
	// timeouts when nil.
	Orchestrator *device.Orchestrator
	// FirewallClient and PanoramaClient default to PAN-OS SSH clients.
	FirewallClient FirewallClientFunc
	PanoramaClient PanoramaClientFunc

	Logger   logrus.FieldLogger
	Progress ProgressFunc
}

// Coordinator runs the deployment state machine for one deployment spec.
type Coordinator struct {
	spec *spec.DeploymentSpec
	opts Options
	orch *device.Orchestrator
	log  logrus.FieldLogger
}

// New builds a coordinator for dep.
func New(dep *spec.DeploymentSpec, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = util.Logger
	}
	log = log.WithField("deployment", dep.Name)

	orch := opts.Orchestrator
	if orch == nil {
		orch = device.New(device.Options{
			Logger:        log,
			WaitTimeout:   dep.Timeouts.Wait.Std(),
			CommitTimeout: dep.Timeouts.Commit.Std(),
			RetryInterval: dep.Timeouts.RetryInterval.Std(),
			MaxRetries:    dep.Timeouts.MaxRetries,
		})
	}
	if opts.FirewallClient == nil {
		opts.FirewallClient = func(host string, creds device.Credentials) device.FirewallClient {
			return panos.NewFirewall(host, creds, log)
		}
	}
	if opts.PanoramaClient == nil {
		opts.PanoramaClient = func(host string, creds device.Credentials) device.PanoramaClient {
			return panos.NewPanorama(host, creds, log)
		}
	}

	return &Coordinator{spec: dep, opts: opts, orch: orch, log: log}
}

// Deploy runs the full state machine and returns the aggregated result.
// Terraform failures stop the run; a Panorama failure is recorded and the
// firewalls proceed without it.
func (c *Coordinator) Deploy(ctx context.Context) *Result {
	res := newResult(c.spec.Name)
	defer res.finish()

	c.phaseEvent(res, PhaseInitializing)
	c.log.WithField("firewalls", len(c.spec.Firewalls)).Info("Starting deployment")
	c.trackComplete(workflow.PhaseConfigComplete, nil)
	res.completed(PhaseInitializing)

	outputs, ok := c.provision(ctx, res)
	if !ok {
		return res
	}
	res.TerraformOutput = outputs

	c.phaseEvent(res, PhaseWaitingForInfra)
	panoramaHost := c.resolvePanorama(outputs, res)
	targets := c.resolveFirewalls(outputs, res)
	res.completed(PhaseWaitingForInfra)

	if c.licensingGate(res) {
		return res
	}

	panoramaUp := c.configurePanorama(ctx, res, panoramaHost)

	if len(c.spec.Firewalls) > 0 {
		c.phaseEvent(res, PhaseConfiguringFirewalls)
		c.trackStart(workflow.PhaseFirewallConfig)
		c.runFirewallPool(ctx, targets, res)
		res.completed(PhaseConfiguringFirewalls)
	} else {
		c.trackSkip(workflow.PhaseFirewallConfig, "no firewalls in deployment")
	}

	if panoramaUp && panoramaHost != "" {
		c.phaseEvent(res, PhaseRegisteringFirewalls)
		c.registerFirewalls(ctx, panoramaHost, res)
		res.completed(PhaseRegisteringFirewalls)
	}

	c.phaseEvent(res, PhaseVerifying)
	c.settle(res, panoramaUp)
	res.completed(PhaseVerifying)

	if res.Status == StatusFailed {
		res.Phase = PhaseFailed
		return res
	}

	c.trackSkip(workflow.PhaseSCMConfig, "tenant configuration is pushed separately")
	c.trackComplete(workflow.PhaseComplete, nil)
	c.phaseEvent(res, PhaseComplete)
	res.completed(PhaseComplete)
	c.log.WithField("status", string(res.Status)).Info("Deployment finished")
	return res
}

// Destroy tears down the deployment's infrastructure. Unlike Deploy, any
// failure is fatal to the call.
func (c *Coordinator) Destroy(ctx context.Context) error {
	if c.opts.Provisioner == nil {
		return fmt.Errorf("deploy: %s: no provisioner configured", c.spec.Name)
	}
	c.log.Info("Destroying deployment")
	if err := c.opts.Provisioner.Destroy(ctx); err != nil {
		return fmt.Errorf("deploy: %s: %w", c.spec.Name, err)
	}
	return nil
}

// provision runs the terraform block, or reuses recorded outputs on the
// resume path. Returns false after recording the failure in res.
func (c *Coordinator) provision(ctx context.Context, res *Result) (map[string]any, bool) {
	if c.opts.SkipProvision {
		if outputs := c.recordedOutputs(); len(outputs) > 0 {
			c.log.Info("Reusing recorded terraform outputs")
			return outputs, true
		}
		if c.opts.Provisioner != nil {
			if outputs, err := c.opts.Provisioner.Outputs(ctx); err == nil {
				c.log.Info("Reading terraform outputs from existing state")
				return outputs, true
			}
		}
		res.fail(PhaseInitializing, errors.New("no recorded terraform outputs to resume from"))
		return nil, false
	}

	prov := c.opts.Provisioner
	if prov == nil {
		res.fail(PhaseInitializing, errors.New("no provisioner configured"))
		return nil, false
	}

	c.trackStart(workflow.PhaseTerraformRunning)

	if c.spec.Terraform.Generate {
		c.phaseEvent(res, PhaseGeneratingTerraform)
		if err := prov.Generate(ctx, c.spec); err != nil {
			return nil, c.provisionFailed(res, PhaseGeneratingTerraform, err)
		}
		res.completed(PhaseGeneratingTerraform)
	}

	c.phaseEvent(res, PhaseTerraformInit)
	if err := prov.Init(ctx); err != nil {
		return nil, c.provisionFailed(res, PhaseTerraformInit, err)
	}
	res.completed(PhaseTerraformInit)

	c.phaseEvent(res, PhaseTerraformPlan)
	changes, err := prov.Plan(ctx)
	if err != nil {
		return nil, c.provisionFailed(res, PhaseTerraformPlan, err)
	}
	if !changes {
		c.log.Info("No infrastructure changes to apply")
	}
	res.completed(PhaseTerraformPlan)

	c.phaseEvent(res, PhaseTerraformApply)
	if err := prov.Apply(ctx); err != nil {
		return nil, c.provisionFailed(res, PhaseTerraformApply, err)
	}
	res.completed(PhaseTerraformApply)
	c.trackComplete(workflow.PhaseTerraformRunning, nil)

	outputs, err := prov.Outputs(ctx)
	if err != nil {
		res.fail(PhaseTerraformApply, err)
		c.trackFail(workflow.PhaseTerraformComplete, err)
		return nil, false
	}
	c.trackComplete(workflow.PhaseTerraformComplete, outputs)
	return outputs, true
}

func (c *Coordinator) provisionFailed(res *Result, p Phase, err error) bool {
	res.fail(p, err)
	c.trackFail(workflow.PhaseTerraformRunning, err)
	c.log.WithField("phase", string(p)).Error(err.Error())
	return false
}

func (c *Coordinator) recordedOutputs() map[string]any {
	if c.opts.Tracker == nil || c.opts.Tracker.State == nil {
		return nil
	}
	return c.opts.Tracker.State.PhaseOutputs(workflow.PhaseTerraformComplete)
}

// resolvePanorama picks the Panorama management address: an explicit host
// in the spec wins, then the configured terraform output key.
func (c *Coordinator) resolvePanorama(outputs map[string]any, res *Result) string {
	pan := c.spec.Panorama
	if pan == nil {
		return ""
	}
	name := c.spec.PanoramaName()
	if pan.Host != "" {
		res.ManagementIPs[name] = pan.Host
		return pan.Host
	}

	key := pan.OutputKey
	if key == "" {
		key = "panorama_ip"
	}
	if v, ok := outputs[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			res.ManagementIPs[name] = s
			return s
		}
	}
	res.addError(fmt.Sprintf("%s: no usable %q output", name, key))
	return ""
}

// resolveFirewalls maps each firewall to a management address. A firewall
// with no address is recorded as failed and excluded from the pool.
func (c *Coordinator) resolveFirewalls(outputs map[string]any, res *Result) []firewallTarget {
	var targets []firewallTarget
	for _, fw := range c.spec.Firewalls {
		host := fw.Host
		if host == "" {
			ip, err := resolveManagementIP(outputs, fw.Name)
			if err != nil {
				msg := fmt.Sprintf("%s: %v", fw.Name, err)
				res.addError(msg)
				res.FirewallResults[fw.Name] = unresolvedResult(fw.Name, msg)
				c.log.WithField("firewall", fw.Name).Error(msg)
				continue
			}
			host = ip
		}
		res.ManagementIPs[fw.Name] = host
		targets = append(targets, firewallTarget{fw: fw, host: host})
	}
	return targets
}

// licensingGate pauses the run when the deployment requires manual license
// activation. Re-running the deployment acknowledges the licenses are in.
func (c *Coordinator) licensingGate(res *Result) bool {
	pan := c.spec.Panorama
	if pan == nil || !pan.ManualLicensing {
		c.trackSkip(workflow.PhaseLicensingPending, "manual licensing not requested")
		return false
	}

	tracker := c.opts.Tracker
	if tracker == nil {
		c.log.Warn("Manual licensing requested but no workflow state to pause into, continuing")
		return false
	}

	switch tracker.State.PhaseStatus(workflow.PhaseLicensingPending) {
	case workflow.StatusComplete, workflow.StatusSkipped:
		return false
	}

	if tracker.State.IsPaused() && tracker.State.CurrentPhase == workflow.PhaseLicensingPending {
		if err := tracker.CompletePhase(workflow.PhaseLicensingPending, nil); err != nil {
			c.log.Warnf("Workflow state: %v", err)
		}
		c.log.Info("Resuming after manual licensing")
		return false
	}

	awaiting := c.deviceNames()
	if err := tracker.PauseFor(workflow.PhaseLicensingPending, awaiting); err != nil {
		c.log.Warnf("Workflow state: %v", err)
	}
	res.Paused = true
	res.Awaiting = awaiting
	res.Message = "waiting for manual license activation"
	c.progressEvent("paused for manual licensing", 0, 0)
	c.log.WithField("awaiting", strings.Join(awaiting, ", ")).Info("Deployment paused for manual licensing")
	return true
}

func (c *Coordinator) deviceNames() []string {
	names := make([]string, 0, len(c.spec.Firewalls)+1)
	if c.spec.Panorama != nil {
		names = append(names, c.spec.PanoramaName())
	}
	names = append(names, c.spec.FirewallNames()...)
	return names
}

// configurePanorama pushes the Panorama configuration. Failure here is
// recorded but never stops the firewalls.
func (c *Coordinator) configurePanorama(ctx context.Context, res *Result, host string) bool {
	pan := c.spec.Panorama
	if pan == nil {
		c.trackSkip(workflow.PhasePanoramaConfig, "no panorama target")
		return false
	}

	c.phaseEvent(res, PhaseConfiguringPanorama)
	defer res.completed(PhaseConfiguringPanorama)
	c.trackStart(workflow.PhasePanoramaConfig)

	if host == "" {
		err := errors.New("management address not resolved")
		res.addError(fmt.Sprintf("%s: %v", c.spec.PanoramaName(), err))
		c.trackFail(workflow.PhasePanoramaConfig, err)
		return false
	}

	client := c.opts.PanoramaClient(host, device.Credentials{
		Username: pan.Username,
		Password: pan.Password,
	})
	pr := c.orch.ConfigurePanorama(ctx, client, pan)
	res.PanoramaResult = pr
	if pr.Failed() {
		res.addError(fmt.Sprintf("%s: %s", pr.Target, pr.Error))
		c.trackFail(workflow.PhasePanoramaConfig, errors.New(pr.Error))
		c.log.Warn("Panorama configuration failed, continuing with firewalls")
		return false
	}
	c.trackComplete(workflow.PhasePanoramaConfig, nil)
	return true
}

// registerFirewalls adds each successfully configured firewall's serial to
// Panorama's managed devices. Failures are recorded, not fatal.
func (c *Coordinator) registerFirewalls(ctx context.Context, host string, res *Result) {
	type entry struct{ name, serial string }
	var entries []entry
	for name, fr := range res.FirewallResults {
		if !fr.Failed() && fr.Serial != "" {
			entries = append(entries, entry{name, fr.Serial})
		}
	}
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	pan := c.spec.Panorama
	client := c.opts.PanoramaClient(host, device.Credentials{
		Username: pan.Username,
		Password: pan.Password,
	})
	if err := client.Connect(ctx); err != nil {
		res.addError(fmt.Sprintf("register firewalls: %v", err))
		return
	}
	defer client.Disconnect()

	for _, e := range entries {
		if err := client.RegisterFirewall(ctx, e.serial); err != nil {
			res.addError(fmt.Sprintf("register %s: %v", e.name, err))
			continue
		}
		c.log.WithField("firewall", e.name).WithField("serial", e.serial).Info("Registered with Panorama")
	}
}

// settle applies the partial policy, records the firewall workflow phase
// and computes the advisory verified flag.
func (c *Coordinator) settle(res *Result, panoramaUp bool) {
	n := len(c.spec.Firewalls)
	failed := res.FailedFirewalls()

	switch {
	case n == 0:
		// Panorama-only deployment.
		if c.spec.Panorama != nil && !panoramaUp {
			res.Status = StatusFailed
			res.Message = "panorama configuration failed"
		} else {
			res.Status = StatusSuccess
		}
	case failed == n:
		res.Status = StatusFailed
		res.Message = fmt.Sprintf("all %d firewalls failed", n)
		res.addError(res.Message)
		c.trackFail(workflow.PhaseFirewallConfig, errors.New(res.Message))
	case failed > 0:
		res.Status = StatusPartial
		res.Message = fmt.Sprintf("%d of %d firewalls failed", failed, n)
		res.addError(res.Message)
		c.trackComplete(workflow.PhaseFirewallConfig, c.firewallOutputs(res))
	default:
		res.Status = StatusSuccess
		if n > 0 {
			c.trackComplete(workflow.PhaseFirewallConfig, c.firewallOutputs(res))
		}
	}

	res.Verified = failed == 0 && (c.spec.Panorama == nil || panoramaUp)
}

// firewallOutputs records each configured firewall's serial in the
// workflow state for later runs.
func (c *Coordinator) firewallOutputs(res *Result) map[string]any {
	out := make(map[string]any)
	for name, fr := range res.FirewallResults {
		if !fr.Failed() && fr.Serial != "" {
			out[name+"_serial"] = fr.Serial
		}
	}
	return out
}

func (c *Coordinator) phaseEvent(res *Result, p Phase) {
	res.enter(p)
	c.progressEvent(string(p), 0, 0)
}

func (c *Coordinator) progressEvent(message string, current, total int) {
	if c.opts.Progress != nil {
		c.opts.Progress(message, current, total)
	}
}

// Workflow tracking helpers. All are safe without a tracker; store errors
// are logged, never fatal.

func (c *Coordinator) trackStart(p workflow.Phase) {
	if c.opts.Tracker == nil {
		return
	}
	if err := c.opts.Tracker.StartPhase(p); err != nil {
		c.log.Warnf("Workflow state: %v", err)
	}
}

func (c *Coordinator) trackComplete(p workflow.Phase, outputs map[string]any) {
	if c.opts.Tracker == nil {
		return
	}
	if err := c.opts.Tracker.CompletePhase(p, outputs); err != nil {
		c.log.Warnf("Workflow state: %v", err)
	}
}

func (c *Coordinator) trackFail(p workflow.Phase, cause error) {
	if c.opts.Tracker == nil {
		return
	}
	if err := c.opts.Tracker.FailPhase(p, cause); err != nil {
		c.log.Warnf("Workflow state: %v", err)
	}
}

func (c *Coordinator) trackSkip(p workflow.Phase, reason string) {
	if c.opts.Tracker == nil {
		return
	}
	if err := c.opts.Tracker.SkipPhase(p, reason); err != nil {
		c.log.Warnf("Workflow state: %v", err)
	}
}
