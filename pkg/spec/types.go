// Package spec defines the YAML configuration model: deployment specs that
// describe infrastructure and the devices configured on top of it, selection
// specs that describe a tenant configuration push, and seed files for plan
// runs against an in-memory inventory.
package spec

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets specs write timeouts as "15m" or "90s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("spec: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DeploymentSpec is the top-level description of one deployment: the
// terraform that builds its infrastructure, an optional Panorama, and the
// firewalls configured on top.
type DeploymentSpec struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider,omitempty"`
	Region   string `yaml:"region,omitempty"`

	Terraform TerraformSpec  `yaml:"terraform"`
	Panorama  *PanoramaSpec  `yaml:"panorama,omitempty"`
	Firewalls []FirewallSpec `yaml:"firewalls"`

	Timeouts Timeouts `yaml:"timeouts,omitempty"`

	// Parallelism caps the firewall worker pool. Zero means the default cap.
	Parallelism int `yaml:"parallelism,omitempty"`
	// Sequential forces one firewall at a time regardless of parallelism.
	Sequential bool `yaml:"sequential,omitempty"`
}

// TerraformSpec locates the working directory and the variables fed into it.
type TerraformSpec struct {
	Workdir   string            `yaml:"workdir"`
	Variables map[string]string `yaml:"variables,omitempty"`
	// Generate renders main.tf and variables from the deployment spec
	// before init. When false the workdir is used as checked in.
	Generate bool `yaml:"generate,omitempty"`
}

// PanoramaSpec describes the management server. Host may be a static
// address; when empty the address is resolved from terraform outputs.
type PanoramaSpec struct {
	Name      string `yaml:"name,omitempty"`
	Host      string `yaml:"host,omitempty"`
	OutputKey string `yaml:"output_key,omitempty"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password,omitempty"`

	AuthCodes []string `yaml:"auth_codes,omitempty"`
	Plugins   []string `yaml:"plugins,omitempty"`

	Device       DeviceSettings `yaml:"device,omitempty"`
	Templates    TemplatesSpec  `yaml:"templates,omitempty"`
	DeviceGroups []string       `yaml:"device_groups,omitempty"`

	// ManualLicensing pauses the deployment before firewall configuration
	// until licenses are activated out of band.
	ManualLicensing bool `yaml:"manual_licensing,omitempty"`
}

// FirewallSpec describes one firewall target. Host may be static; when
// empty the management address comes from terraform outputs under the
// firewall's name.
type FirewallSpec struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host,omitempty"`
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`

	Device     DeviceSettings  `yaml:"device,omitempty"`
	Interfaces []InterfaceSpec `yaml:"interfaces,omitempty"`
	Zones      []ZoneSpec      `yaml:"zones,omitempty"`
	Rules      []RuleSpec      `yaml:"rules,omitempty"`
}

// DeviceSettings are the system-level settings pushed in the device
// configuration phase.
type DeviceSettings struct {
	Hostname    string   `yaml:"hostname,omitempty"`
	DNSServers  []string `yaml:"dns_servers,omitempty"`
	NTPServers  []string `yaml:"ntp_servers,omitempty"`
	Timezone    string   `yaml:"timezone,omitempty"`
	LoginBanner string   `yaml:"login_banner,omitempty"`
}

// IsZero reports whether no settings are present.
func (d DeviceSettings) IsZero() bool {
	return d.Hostname == "" && len(d.DNSServers) == 0 && len(d.NTPServers) == 0 &&
		d.Timezone == "" && d.LoginBanner == ""
}

// InterfaceSpec is a dataplane interface. IP is CIDR notation or "dhcp".
type InterfaceSpec struct {
	Name    string `yaml:"name"`
	IP      string `yaml:"ip,omitempty"`
	Zone    string `yaml:"zone,omitempty"`
	Comment string `yaml:"comment,omitempty"`
}

// ZoneSpec is a security zone and its member interfaces.
type ZoneSpec struct {
	Name       string   `yaml:"name"`
	Mode       string   `yaml:"mode,omitempty"`
	Interfaces []string `yaml:"interfaces,omitempty"`
}

// RuleSpec is one security policy rule.
type RuleSpec struct {
	Name         string   `yaml:"name"`
	From         []string `yaml:"from,omitempty"`
	To           []string `yaml:"to,omitempty"`
	Sources      []string `yaml:"sources,omitempty"`
	Destinations []string `yaml:"destinations,omitempty"`
	Applications []string `yaml:"applications,omitempty"`
	Services     []string `yaml:"services,omitempty"`
	Action       string   `yaml:"action,omitempty"`
}

// TemplatesSpec names the Panorama template and template stack to create.
type TemplatesSpec struct {
	Template string `yaml:"template,omitempty"`
	Stack    string `yaml:"stack,omitempty"`
}

// IsZero reports whether no templates are requested.
func (t TemplatesSpec) IsZero() bool {
	return t.Template == "" && t.Stack == ""
}

// Timeouts bound the device orchestration. Zero values take defaults from
// ApplyDefaults.
type Timeouts struct {
	// Wait bounds how long to poll a device for readiness.
	Wait Duration `yaml:"wait,omitempty"`
	// Commit bounds a single synchronous commit.
	Commit Duration `yaml:"commit,omitempty"`
	// RetryInterval spaces readiness probes.
	RetryInterval Duration `yaml:"retry_interval,omitempty"`
	// MaxRetries caps readiness probes. Zero means bounded by Wait only.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// FirewallNames returns the firewall names in spec order.
func (s *DeploymentSpec) FirewallNames() []string {
	names := make([]string, 0, len(s.Firewalls))
	for _, fw := range s.Firewalls {
		names = append(names, fw.Name)
	}
	return names
}

// PanoramaName returns the panorama's display name, defaulting to
// "panorama" when the spec leaves it blank.
func (s *DeploymentSpec) PanoramaName() string {
	if s.Panorama == nil {
		return ""
	}
	if s.Panorama.Name != "" {
		return s.Panorama.Name
	}
	return "panorama"
}
