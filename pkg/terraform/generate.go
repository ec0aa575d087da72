package terraform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/panshift/panshift/pkg/spec"
)

// mainTemplate is the starter main.tf. It declares the outputs the deploy
// flow resolves management addresses from; the operator fills in the
// provider resources behind them.
const mainTemplate = `# Infrastructure for deployment "{{ .Name }}".
# Generated as a starting point. Replace the placeholder values below with
# the {{ if .Provider }}{{ .Provider }} {{ end }}resources for this site and keep the output names:
# the deploy flow resolves each device's management address from them.

terraform {
  required_version = ">= 1.0"
}
{{ if and .Panorama .Panorama.OutputKey }}
output "{{ .Panorama.OutputKey }}" {
  description = "Management address for {{ .PanoramaName }}"
  value       = "" # management IP of the Panorama instance
}
{{ end }}{{ range .Firewalls }}
output "{{ .Name }}_management_ip" {
  description = "Management address for {{ .Name }}"
  value       = "" # management IP of the {{ .Name }} instance
}
{{ end }}`

// variablesTemplate declares one string variable per spec entry. Values set
// in the spec double as defaults; plan and apply pass them again as -var.
const variablesTemplate = `{{ range $k, $v := .Terraform.Variables }}variable "{{ $k }}" {
  type    = string
  default = "{{ $v }}"
}

{{ end }}`

// Generate renders starter HCL for the deployment into the workdir. An
// existing main.tf is left untouched.
func (r *Runner) Generate(ctx context.Context, dep *spec.DeploymentSpec) error {
	mainPath := filepath.Join(r.workdir, "main.tf")
	if _, err := os.Stat(mainPath); err == nil {
		r.log.WithField("path", mainPath).Debug("main.tf present, skipping generation")
		return nil
	}

	content, err := renderTemplate("main.tf", mainTemplate, dep)
	if err != nil {
		return err
	}
	if err := os.WriteFile(mainPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("terraform: write %s: %w", mainPath, err)
	}

	if len(dep.Terraform.Variables) > 0 {
		varsPath := filepath.Join(r.workdir, "variables.tf")
		content, err := renderTemplate("variables.tf", variablesTemplate, dep)
		if err != nil {
			return err
		}
		if err := os.WriteFile(varsPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("terraform: write %s: %w", varsPath, err)
		}
	}

	r.log.WithField("workdir", r.workdir).Info("Generated terraform scaffold")
	return nil
}

func renderTemplate(name, text string, dep *spec.DeploymentSpec) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("terraform: parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, dep); err != nil {
		return "", fmt.Errorf("terraform: render %s: %w", name, err)
	}
	return buf.String(), nil
}
