package panos

import (
	"fmt"
	"strings"

	"github.com/panshift/panshift/pkg/spec"
)

// quote wraps v in double quotes when it contains whitespace.
func quote(v string) string {
	if strings.ContainsAny(v, " \t") {
		return `"` + v + `"`
	}
	return v
}

// members renders a value list in CLI form: any when empty, the bare value
// for a single element, a bracketed list otherwise.
func members(values []string) string {
	switch len(values) {
	case 0:
		return "any"
	case 1:
		return quote(values[0])
	default:
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = quote(v)
		}
		return "[ " + strings.Join(quoted, " ") + " ]"
	}
}

// deviceCommands renders system settings. The same paths exist on firewalls
// and Panorama.
func deviceCommands(s spec.DeviceSettings) []string {
	var cmds []string
	if s.Hostname != "" {
		cmds = append(cmds, "set deviceconfig system hostname "+quote(s.Hostname))
	}
	if len(s.DNSServers) > 0 {
		cmds = append(cmds, "set deviceconfig system dns-setting servers primary "+s.DNSServers[0])
		if len(s.DNSServers) > 1 {
			cmds = append(cmds, "set deviceconfig system dns-setting servers secondary "+s.DNSServers[1])
		}
	}
	if len(s.NTPServers) > 0 {
		cmds = append(cmds, "set deviceconfig system ntp-servers primary-ntp-server ntp-server-address "+s.NTPServers[0])
		if len(s.NTPServers) > 1 {
			cmds = append(cmds, "set deviceconfig system ntp-servers secondary-ntp-server ntp-server-address "+s.NTPServers[1])
		}
	}
	if s.Timezone != "" {
		cmds = append(cmds, "set deviceconfig system timezone "+quote(s.Timezone))
	}
	if s.LoginBanner != "" {
		cmds = append(cmds, "set deviceconfig system login-banner "+quote(s.LoginBanner))
	}
	return cmds
}

// interfaceCommands renders layer3 ethernet interfaces. An IP of dhcp
// enables the DHCP client instead of a static address. Every interface is
// attached to the default virtual router so routes resolve.
func interfaceCommands(interfaces []spec.InterfaceSpec) []string {
	var cmds []string
	for _, iface := range interfaces {
		base := "set network interface ethernet " + iface.Name + " layer3"
		if strings.EqualFold(iface.IP, "dhcp") {
			cmds = append(cmds, base+" dhcp-client enable yes")
		} else {
			cmds = append(cmds, base+" ip "+iface.IP)
		}
		if iface.Comment != "" {
			cmds = append(cmds, "set network interface ethernet "+iface.Name+" comment "+quote(iface.Comment))
		}
		cmds = append(cmds, "set network virtual-router default interface "+iface.Name)
	}
	return cmds
}

// zoneCommands renders security zones with their member interfaces.
func zoneCommands(zones []spec.ZoneSpec) []string {
	var cmds []string
	for _, zone := range zones {
		cmd := "set zone " + quote(zone.Name) + " network " + zoneMode(zone.Mode)
		if len(zone.Interfaces) > 0 {
			cmd += " " + members(zone.Interfaces)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func zoneMode(mode string) string {
	switch strings.ToLower(mode) {
	case "", "layer3":
		return "layer3"
	case "layer2":
		return "layer2"
	case "vwire", "virtual-wire":
		return "virtual-wire"
	case "tap":
		return "tap"
	default:
		return mode
	}
}

// ruleCommands renders security policy rules. Empty match lists mean any;
// an empty service list means application-default.
func ruleCommands(rules []spec.RuleSpec) []string {
	var cmds []string
	for _, rule := range rules {
		service := "application-default"
		if len(rule.Services) > 0 {
			service = members(rule.Services)
		}
		cmds = append(cmds, fmt.Sprintf(
			"set rulebase security rules %s from %s to %s source %s destination %s application %s service %s action %s",
			quote(rule.Name),
			members(rule.From), members(rule.To),
			members(rule.Sources), members(rule.Destinations),
			members(rule.Applications), service,
			rule.Action,
		))
	}
	return cmds
}

// templateCommands creates a template and a stack referencing it.
func templateCommands(t spec.TemplatesSpec) []string {
	var cmds []string
	if t.Template != "" {
		cmds = append(cmds, "set template "+quote(t.Template)+" description "+quote("managed by panshift"))
	}
	if t.Stack != "" {
		cmds = append(cmds, "set template-stack "+quote(t.Stack)+" description "+quote("managed by panshift"))
		if t.Template != "" {
			cmds = append(cmds, "set template-stack "+quote(t.Stack)+" templates "+quote(t.Template))
		}
	}
	return cmds
}

// deviceGroupCommands creates device groups.
func deviceGroupCommands(groups []string) []string {
	cmds := make([]string, 0, len(groups))
	for _, g := range groups {
		cmds = append(cmds, "set device-group "+quote(g)+" description "+quote("managed by panshift"))
	}
	return cmds
}
