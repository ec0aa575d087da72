// Package terraform provisions deployment infrastructure by driving the
// terraform binary through hashicorp/terraform-exec.
package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/hashicorp/terraform-exec/tfexec"
	"github.com/sirupsen/logrus"

	"github.com/panshift/panshift/pkg/util"
)

// envTerraformPath overrides binary discovery.
const envTerraformPath = "PANSHIFT_TERRAFORM_PATH"

var commonPaths = []string{
	"/opt/homebrew/bin/terraform",
	"/usr/local/bin/terraform",
	"/usr/bin/terraform",
}

// Runner wraps a terraform working directory. Variables are passed on every
// plan, apply and destroy.
type Runner struct {
	tf      *tfexec.Terraform
	workdir string
	vars    map[string]string
	log     logrus.FieldLogger
}

// New locates the terraform binary and prepares a runner for workdir,
// creating the directory if needed.
func New(workdir string, vars map[string]string, log logrus.FieldLogger) (*Runner, error) {
	if log == nil {
		log = util.Logger
	}

	bin, err := findBinary()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("terraform: resolve workdir %s: %w", workdir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("terraform: create workdir %s: %w", abs, err)
	}

	tf, err := tfexec.NewTerraform(abs, bin)
	if err != nil {
		return nil, fmt.Errorf("terraform: %w", err)
	}
	return &Runner{tf: tf, workdir: abs, vars: vars, log: log}, nil
}

// findBinary resolves the terraform executable: explicit env override, then
// PATH, then common install locations.
func findBinary() (string, error) {
	if p := os.Getenv(envTerraformPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("terraform: %s: %w", envTerraformPath, err)
		}
		return p, nil
	}
	if p, err := exec.LookPath("terraform"); err == nil {
		return p, nil
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("terraform: binary not found: install terraform or set %s", envTerraformPath)
}

// Workdir returns the absolute working directory.
func (r *Runner) Workdir() string {
	return r.workdir
}

// Init runs terraform init without upgrading pinned providers.
func (r *Runner) Init(ctx context.Context) error {
	r.log.WithField("workdir", r.workdir).Info("Initializing terraform")
	if err := r.tf.Init(ctx, tfexec.Upgrade(false)); err != nil {
		return fmt.Errorf("terraform: init: %w", err)
	}
	return nil
}

// Plan reports whether applying would change anything.
func (r *Runner) Plan(ctx context.Context) (bool, error) {
	opts := []tfexec.PlanOption{tfexec.Lock(true)}
	for _, v := range r.varList() {
		opts = append(opts, tfexec.Var(v))
	}
	changes, err := r.tf.Plan(ctx, opts...)
	if err != nil {
		return false, fmt.Errorf("terraform: plan: %w", err)
	}
	return changes, nil
}

// Apply provisions the infrastructure.
func (r *Runner) Apply(ctx context.Context) error {
	r.log.WithField("workdir", r.workdir).Info("Applying terraform plan")
	opts := []tfexec.ApplyOption{tfexec.Lock(true)}
	for _, v := range r.varList() {
		opts = append(opts, tfexec.Var(v))
	}
	if err := r.tf.Apply(ctx, opts...); err != nil {
		return fmt.Errorf("terraform: apply: %w", err)
	}
	return nil
}

// Destroy tears the infrastructure down.
func (r *Runner) Destroy(ctx context.Context) error {
	r.log.WithField("workdir", r.workdir).Info("Destroying infrastructure")
	opts := []tfexec.DestroyOption{tfexec.Lock(true)}
	for _, v := range r.varList() {
		opts = append(opts, tfexec.Var(v))
	}
	if err := r.tf.Destroy(ctx, opts...); err != nil {
		return fmt.Errorf("terraform: destroy: %w", err)
	}
	return nil
}

// Outputs reads terraform outputs and flattens their JSON values. String
// outputs come back unquoted.
func (r *Runner) Outputs(ctx context.Context) (map[string]any, error) {
	metas, err := r.tf.Output(ctx)
	if err != nil {
		return nil, fmt.Errorf("terraform: output: %w", err)
	}
	return flattenOutputs(metas), nil
}

func flattenOutputs(metas map[string]tfexec.OutputMeta) map[string]any {
	out := make(map[string]any, len(metas))
	for name, meta := range metas {
		var v any
		if err := json.Unmarshal(meta.Value, &v); err != nil {
			out[name] = string(meta.Value)
			continue
		}
		out[name] = v
	}
	return out
}

// varList renders vars as k=v pairs in stable order.
func (r *Runner) varList() []string {
	keys := make([]string, 0, len(r.vars))
	for k := range r.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]string, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, fmt.Sprintf("%s=%s", k, r.vars[k]))
	}
	return vars
}
