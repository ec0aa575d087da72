package panos

import (
	"reflect"
	"strings"
	"testing"

	"github.com/panshift/panshift/pkg/spec"
)

// ============================================================
// Command builders
// ============================================================

func TestDeviceCommands(t *testing.T) {
	cmds := deviceCommands(spec.DeviceSettings{
		Hostname:    "fw-branch-1",
		DNSServers:  []string{"8.8.8.8", "8.8.4.4"},
		NTPServers:  []string{"time.google.com"},
		Timezone:    "US/Pacific",
		LoginBanner: "Authorized access only",
	})

	want := []string{
		"set deviceconfig system hostname fw-branch-1",
		"set deviceconfig system dns-setting servers primary 8.8.8.8",
		"set deviceconfig system dns-setting servers secondary 8.8.4.4",
		"set deviceconfig system ntp-servers primary-ntp-server ntp-server-address time.google.com",
		"set deviceconfig system timezone US/Pacific",
		`set deviceconfig system login-banner "Authorized access only"`,
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("deviceCommands =\n%s\nwant\n%s", strings.Join(cmds, "\n"), strings.Join(want, "\n"))
	}
}

func TestDeviceCommandsEmpty(t *testing.T) {
	if cmds := deviceCommands(spec.DeviceSettings{}); len(cmds) != 0 {
		t.Errorf("empty settings produced %d commands: %v", len(cmds), cmds)
	}
}

func TestInterfaceCommands(t *testing.T) {
	cmds := interfaceCommands([]spec.InterfaceSpec{
		{Name: "ethernet1/1", IP: "10.1.1.1/24", Zone: "trust", Comment: "inside"},
		{Name: "ethernet1/2", IP: "dhcp", Zone: "untrust"},
	})

	want := []string{
		"set network interface ethernet ethernet1/1 layer3 ip 10.1.1.1/24",
		"set network interface ethernet ethernet1/1 comment inside",
		"set network virtual-router default interface ethernet1/1",
		"set network interface ethernet ethernet1/2 layer3 dhcp-client enable yes",
		"set network virtual-router default interface ethernet1/2",
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("interfaceCommands =\n%s\nwant\n%s", strings.Join(cmds, "\n"), strings.Join(want, "\n"))
	}
}

func TestZoneCommands(t *testing.T) {
	tests := []struct {
		name string
		zone spec.ZoneSpec
		want string
	}{
		{
			name: "single interface",
			zone: spec.ZoneSpec{Name: "trust", Mode: "layer3", Interfaces: []string{"ethernet1/1"}},
			want: "set zone trust network layer3 ethernet1/1",
		},
		{
			name: "multiple interfaces",
			zone: spec.ZoneSpec{Name: "dmz", Interfaces: []string{"ethernet1/3", "ethernet1/4"}},
			want: "set zone dmz network layer3 [ ethernet1/3 ethernet1/4 ]",
		},
		{
			name: "no interfaces",
			zone: spec.ZoneSpec{Name: "quarantine", Mode: "layer3"},
			want: "set zone quarantine network layer3",
		},
		{
			name: "vwire alias",
			zone: spec.ZoneSpec{Name: "wire", Mode: "vwire", Interfaces: []string{"ethernet1/5"}},
			want: "set zone wire network virtual-wire ethernet1/5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := zoneCommands([]spec.ZoneSpec{tt.zone})
			if len(cmds) != 1 || cmds[0] != tt.want {
				t.Errorf("zoneCommands = %v, want [%s]", cmds, tt.want)
			}
		})
	}
}

func TestRuleCommands(t *testing.T) {
	full := spec.RuleSpec{
		Name:         "allow-web",
		From:         []string{"trust"},
		To:           []string{"untrust"},
		Sources:      []string{"10.1.0.0/16"},
		Destinations: []string{"any"},
		Applications: []string{"web-browsing", "ssl"},
		Services:     []string{"service-https"},
		Action:       "allow",
	}
	minimal := spec.RuleSpec{Name: "deny-all", Action: "deny"}

	cmds := ruleCommands([]spec.RuleSpec{full, minimal})
	want := []string{
		"set rulebase security rules allow-web from trust to untrust source 10.1.0.0/16 destination any application [ web-browsing ssl ] service service-https action allow",
		"set rulebase security rules deny-all from any to any source any destination any application any service application-default action deny",
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("ruleCommands =\n%s\nwant\n%s", strings.Join(cmds, "\n"), strings.Join(want, "\n"))
	}
}

func TestTemplateCommands(t *testing.T) {
	cmds := templateCommands(spec.TemplatesSpec{Template: "branch-template", Stack: "branch-stack"})
	want := []string{
		`set template branch-template description "managed by panshift"`,
		`set template-stack branch-stack description "managed by panshift"`,
		"set template-stack branch-stack templates branch-template",
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("templateCommands =\n%s\nwant\n%s", strings.Join(cmds, "\n"), strings.Join(want, "\n"))
	}

	if cmds := templateCommands(spec.TemplatesSpec{}); len(cmds) != 0 {
		t.Errorf("empty templates produced %v", cmds)
	}
}

func TestDeviceGroupCommands(t *testing.T) {
	cmds := deviceGroupCommands([]string{"branch-firewalls", "dc firewalls"})
	want := []string{
		`set device-group branch-firewalls description "managed by panshift"`,
		`set device-group "dc firewalls" description "managed by panshift"`,
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("deviceGroupCommands = %v, want %v", cmds, want)
	}
}

func TestMembers(t *testing.T) {
	tests := []struct {
		values []string
		want   string
	}{
		{nil, "any"},
		{[]string{"trust"}, "trust"},
		{[]string{"zone a"}, `"zone a"`},
		{[]string{"trust", "dmz"}, "[ trust dmz ]"},
	}
	for _, tt := range tests {
		if got := members(tt.values); got != tt.want {
			t.Errorf("members(%v) = %q, want %q", tt.values, got, tt.want)
		}
	}
}

// ============================================================
// Output parsing
// ============================================================

func TestAtPrompt(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want bool
	}{
		{"operational prompt", "some output\nadmin@fw-1> ", true},
		{"configure prompt", "admin@fw-1# ", true},
		{"ha suffix", "admin@fw-1(active)> ", true},
		{"mid output", "counter: 42\nmore output\n", false},
		{"angle bracket without user", "threshold > 10\n", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := atPrompt(tt.out); got != tt.want {
				t.Errorf("atPrompt(%q) = %v, want %v", tt.out, got, tt.want)
			}
		})
	}
}

func TestStripEcho(t *testing.T) {
	raw := "show system info\r\nhostname: fw-1\r\nserial: 0001\r\n\r\nadmin@fw-1> "
	got := stripEcho(raw, "show system info")
	want := "hostname: fw-1\nserial: 0001"
	if got != want {
		t.Errorf("stripEcho = %q, want %q", got, want)
	}
}

func TestParseSystemInfo(t *testing.T) {
	out := `hostname: fw-branch-1
ip-address: 10.0.0.10
serial: 007200001234
model: PA-VM
sw-version: 10.2.3
time: Mon Aug 24 10:15:02 2026
uptime: 0 days, 1:02:11`

	id := parseSystemInfo(out)
	if id.Hostname != "fw-branch-1" {
		t.Errorf("hostname = %q, want fw-branch-1", id.Hostname)
	}
	if id.Serial != "007200001234" {
		t.Errorf("serial = %q, want 007200001234", id.Serial)
	}
	if id.Model != "PA-VM" {
		t.Errorf("model = %q, want PA-VM", id.Model)
	}
	if id.Version != "10.2.3" {
		t.Errorf("sw-version = %q, want 10.2.3", id.Version)
	}
}

func TestParseCommitResult(t *testing.T) {
	tests := []struct {
		name        string
		out         string
		wantSuccess bool
		wantJobID   string
		wantDetail  string
	}{
		{
			name:        "succeeded with job",
			out:         "Commit job 12 is in progress. Use Ctrl+C to return to command prompt\n.....55%.....99%.....100%\nConfiguration committed successfully\nCommit succeeded with jobid 12",
			wantSuccess: true,
			wantJobID:   "12",
		},
		{
			name:        "validation failure",
			out:         "Commit failed\nValidation Error: rulebase -> security -> rules -> allow-out  unexpected here",
			wantSuccess: false,
			wantDetail:  "Validation Error: rulebase -> security -> rules -> allow-out  unexpected here",
		},
		{
			name:        "no changes",
			out:         "There are no changes to commit.",
			wantSuccess: true,
			wantDetail:  "no changes to commit",
		},
		{
			name:        "unrecognized output",
			out:         "session torn down unexpectedly",
			wantSuccess: false,
			wantDetail:  "session torn down unexpectedly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parseCommitResult(tt.out)
			if res.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v", res.Success, tt.wantSuccess)
			}
			if res.JobID != tt.wantJobID {
				t.Errorf("jobID = %q, want %q", res.JobID, tt.wantJobID)
			}
			if tt.wantDetail != "" && res.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", res.Detail, tt.wantDetail)
			}
		})
	}
}

func TestResponseError(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"invalid syntax", "Invalid syntax.\n", "Invalid syntax."},
		{"server error", "Server error : client timed out", "Server error : client timed out"},
		{"failed to fetch", "Failed to fetch license from server", "Failed to fetch license from server"},
		{"clean", "hostname: fw-1\nuptime: 3 days", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := responseError(tt.out); got != tt.want {
				t.Errorf("responseError = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		host     string
		wantHost string
		wantPort int
	}{
		{"10.0.0.10", "10.0.0.10", 22},
		{"fw-1.example.net", "fw-1.example.net", 22},
		{"10.0.0.10:2222", "10.0.0.10", 2222},
		{"fw-1:0", "fw-1", 22},
	}
	for _, tt := range tests {
		h, p := splitHostPort(tt.host)
		if h != tt.wantHost || p != tt.wantPort {
			t.Errorf("splitHostPort(%q) = (%q, %d), want (%q, %d)", tt.host, h, p, tt.wantHost, tt.wantPort)
		}
	}
}
