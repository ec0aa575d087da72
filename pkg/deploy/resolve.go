package deploy

import (
	"fmt"
	"time"

	"github.com/panshift/panshift/pkg/device"
	"github.com/panshift/panshift/pkg/util"
)

// resolveManagementIP finds a device's management address in terraform
// outputs. An output named exactly after the device wins, then
// <name>_management_ip. Only IPv4 string values count.
func resolveManagementIP(outputs map[string]any, name string) (string, error) {
	for _, key := range []string{name, name + "_management_ip"} {
		v, ok := outputs[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("output %q is not a string", key)
		}
		if !util.IsValidIPv4(s) {
			return "", fmt.Errorf("output %q is not an IPv4 address: %q", key, s)
		}
		return s, nil
	}
	return "", fmt.Errorf("no %q or %q output", name, name+"_management_ip")
}

// unresolvedResult records a firewall that never entered the pool because
// its management address could not be determined.
func unresolvedResult(name, msg string) *device.Result {
	now := time.Now()
	return &device.Result{
		Target:    name,
		Status:    device.StatusFailed,
		Phase:     device.PhaseWaiting,
		Error:     msg,
		StartedAt: now,
		EndedAt:   now,
	}
}
