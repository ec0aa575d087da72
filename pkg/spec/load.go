package spec

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/panshift/panshift/pkg/push"
	"github.com/panshift/panshift/pkg/scm"
	"github.com/panshift/panshift/pkg/util"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultWaitTimeout   = 15 * time.Minute
	DefaultCommitTimeout = 10 * time.Minute
	DefaultRetryInterval = 15 * time.Second
)

var ruleActions = map[string]bool{
	"allow": true,
	"deny":  true,
	"drop":  true,
}

// LoadDeployment reads, defaults, and validates a deployment spec.
func LoadDeployment(path string) (*DeploymentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spec: reading deployment spec: %w", err)
	}

	var s DeploymentSpec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("spec: parsing deployment spec: %w", err)
	}

	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("spec: %s: %w", path, err)
	}
	return &s, nil
}

// ApplyDefaults fills zero timeouts, zone modes, and rule fields.
func (s *DeploymentSpec) ApplyDefaults() {
	if s.Timeouts.Wait == 0 {
		s.Timeouts.Wait = Duration(DefaultWaitTimeout)
	}
	if s.Timeouts.Commit == 0 {
		s.Timeouts.Commit = Duration(DefaultCommitTimeout)
	}
	if s.Timeouts.RetryInterval == 0 {
		s.Timeouts.RetryInterval = Duration(DefaultRetryInterval)
	}

	for i := range s.Firewalls {
		fw := &s.Firewalls[i]
		for j := range fw.Zones {
			if fw.Zones[j].Mode == "" {
				fw.Zones[j].Mode = "layer3"
			}
		}
		for j := range fw.Rules {
			if fw.Rules[j].Action == "" {
				fw.Rules[j].Action = "allow"
			}
		}
	}
}

// Validate checks the spec for structural problems. Passwords may be empty;
// the CLIs prompt for them interactively.
func (s *DeploymentSpec) Validate() error {
	v := &util.ValidationBuilder{}

	v.Add(s.Name != "", "name is required")
	if s.Name != "" && util.SanitizeName(s.Name) != s.Name {
		v.AddErrorf("name %q contains characters unsafe for state paths", s.Name)
	}
	v.Add(s.Terraform.Workdir != "", "terraform.workdir is required")
	v.Add(s.Panorama != nil || len(s.Firewalls) > 0,
		"at least one firewall or a panorama is required")
	v.Add(s.Parallelism >= 0, "parallelism must not be negative")

	if s.Panorama != nil {
		v.Add(s.Panorama.Username != "", "panorama.username is required")
	}

	seen := make(map[string]bool, len(s.Firewalls))
	for i, fw := range s.Firewalls {
		if fw.Name == "" {
			v.AddErrorf("firewalls[%d]: name is required", i)
			continue
		}
		if seen[fw.Name] {
			v.AddErrorf("firewalls[%d]: duplicate name %q", i, fw.Name)
		}
		seen[fw.Name] = true
		if fw.Username == "" {
			v.AddErrorf("firewall %q: username is required", fw.Name)
		}
		s.validateFirewall(v, &fw)
	}

	return v.Build()
}

func (s *DeploymentSpec) validateFirewall(v *util.ValidationBuilder, fw *FirewallSpec) {
	zones := make(map[string]bool, len(fw.Zones))
	for _, z := range fw.Zones {
		if z.Name == "" {
			v.AddErrorf("firewall %q: zone with no name", fw.Name)
			continue
		}
		zones[z.Name] = true
	}

	intfs := make(map[string]bool, len(fw.Interfaces))
	for _, intf := range fw.Interfaces {
		if intf.Name == "" {
			v.AddErrorf("firewall %q: interface with no name", fw.Name)
			continue
		}
		intfs[intf.Name] = true
		if intf.IP != "" && intf.IP != "dhcp" && !util.IsValidIPv4CIDR(intf.IP) {
			v.AddErrorf("firewall %q interface %s: invalid ip %q", fw.Name, intf.Name, intf.IP)
		}
		if intf.Zone != "" && !zones[intf.Zone] {
			v.AddErrorf("firewall %q interface %s: unknown zone %q", fw.Name, intf.Name, intf.Zone)
		}
	}

	for _, z := range fw.Zones {
		for _, member := range z.Interfaces {
			if !intfs[member] {
				v.AddErrorf("firewall %q zone %s: unknown interface %q", fw.Name, z.Name, member)
			}
		}
	}

	ruleNames := make(map[string]bool, len(fw.Rules))
	for i, r := range fw.Rules {
		if r.Name == "" {
			v.AddErrorf("firewall %q: rules[%d] has no name", fw.Name, i)
			continue
		}
		if ruleNames[r.Name] {
			v.AddErrorf("firewall %q: duplicate rule %q", fw.Name, r.Name)
		}
		ruleNames[r.Name] = true
		if !ruleActions[r.Action] {
			v.AddErrorf("firewall %q rule %s: invalid action %q", fw.Name, r.Name, r.Action)
		}
		for _, zone := range r.From {
			if zone != "any" && !zones[zone] {
				v.AddErrorf("firewall %q rule %s: unknown from zone %q", fw.Name, r.Name, zone)
			}
		}
		for _, zone := range r.To {
			if zone != "any" && !zones[zone] {
				v.AddErrorf("firewall %q rule %s: unknown to zone %q", fw.Name, r.Name, zone)
			}
		}
	}
}

// LoadSelection reads and validates a selection spec for a configuration
// push. The YAML shape mirrors push.Selection directly.
func LoadSelection(path string) (*push.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spec: reading selection spec: %w", err)
	}

	var sel push.Selection
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("spec: parsing selection spec: %w", err)
	}

	if err := validateSelection(&sel); err != nil {
		return nil, fmt.Errorf("spec: %s: %w", path, err)
	}
	return &sel, nil
}

func validateSelection(sel *push.Selection) error {
	v := &util.ValidationBuilder{}

	if sel.Destination.IsZero() {
		v.AddError("destination is required")
	} else if err := sel.Destination.Valid(); err != nil {
		v.AddErrorf("destination: %v", err)
	}
	if _, err := push.ParseStrategy(string(sel.Strategy)); err != nil {
		v.AddError(err.Error())
	}
	v.Add(len(sel.Folders) > 0, "at least one source folder is required")

	for _, folder := range sel.Folders {
		if folder.Source == "" {
			v.AddError("folder with no source name")
			continue
		}
		for _, ks := range folder.Kinds {
			if _, err := scm.ParseItemKind(ks.Kind); err != nil {
				v.AddErrorf("folder %q: %v", folder.Source, err)
			}
			for _, item := range ks.Items {
				if item.Destination != nil {
					if err := item.Destination.Valid(); err != nil {
						v.AddErrorf("folder %q kind %s: %v", folder.Source, ks.Kind, err)
					}
				}
				if _, err := push.ParseStrategy(string(item.Strategy)); err != nil {
					v.AddErrorf("folder %q kind %s: %v", folder.Source, ks.Kind, err)
				}
			}
		}
	}

	return v.Build()
}

// SeedSpec pre-populates an in-memory inventory for plan runs: the objects
// and snippets assumed to already exist at the destination.
type SeedSpec struct {
	Snippets []string     `yaml:"snippets,omitempty"`
	Objects  []SeedObject `yaml:"objects,omitempty"`
}

// SeedObject lists existing object names for one kind at one location.
type SeedObject struct {
	Kind     string       `yaml:"kind"`
	Location scm.Location `yaml:"location"`
	Names    []string     `yaml:"names"`
}

// LoadSeed reads a seed spec.
func LoadSeed(path string) (*SeedSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spec: reading seed spec: %w", err)
	}

	var seed SeedSpec
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("spec: parsing seed spec: %w", err)
	}
	return &seed, nil
}

// Apply seeds an inventory with the listed snippets and objects.
func (s *SeedSpec) Apply(inv *scm.Inventory) error {
	for _, name := range s.Snippets {
		inv.SeedSnippet(name)
	}
	for _, obj := range s.Objects {
		kind, err := scm.ParseItemKind(obj.Kind)
		if err != nil {
			return fmt.Errorf("spec: seed: %w", err)
		}
		if err := obj.Location.Valid(); err != nil {
			return fmt.Errorf("spec: seed %s: %w", obj.Kind, err)
		}
		for _, name := range obj.Names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("spec: seed %s in %s: empty object name", obj.Kind, obj.Location)
			}
			inv.Seed(kind, obj.Location, name)
		}
	}
	return nil
}
