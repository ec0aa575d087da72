package deploy

import (
	"context"

	"github.com/panshift/panshift/pkg/spec"
)

// Provisioner drives infrastructure-as-code for a deployment. pkg/terraform
// implements it over the terraform binary; tests script it.
type Provisioner interface {
	// Generate renders starter HCL into the working directory when the
	// deployment asks for it. Existing files are left alone.
	Generate(ctx context.Context, dep *spec.DeploymentSpec) error
	Init(ctx context.Context) error
	// Plan reports whether applying would change anything.
	Plan(ctx context.Context) (bool, error)
	Apply(ctx context.Context) error
	// Outputs returns the root module outputs with JSON values flattened.
	Outputs(ctx context.Context) (map[string]any, error)
	Destroy(ctx context.Context) error
}
