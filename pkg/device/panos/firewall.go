package panos

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/panshift/panshift/pkg/device"
	"github.com/panshift/panshift/pkg/spec"
)

// Firewall drives a PAN-OS firewall.
type Firewall struct {
	*Client
}

// NewFirewall returns a client for the firewall at host. host may carry an
// explicit :port, otherwise 22 is used.
func NewFirewall(host string, creds device.Credentials, log logrus.FieldLogger) *Firewall {
	return &Firewall{newClient(host, creds, log)}
}

// ConfigureNetwork creates layer3 interfaces and attaches them to the
// default virtual router.
func (f *Firewall) ConfigureNetwork(ctx context.Context, interfaces []spec.InterfaceSpec) error {
	return f.applyConfig(ctx, interfaceCommands(interfaces))
}

// ConfigureZones creates security zones and assigns their interfaces.
func (f *Firewall) ConfigureZones(ctx context.Context, zones []spec.ZoneSpec) error {
	return f.applyConfig(ctx, zoneCommands(zones))
}

// ConfigurePolicy creates security policy rules.
func (f *Firewall) ConfigurePolicy(ctx context.Context, rules []spec.RuleSpec) error {
	return f.applyConfig(ctx, ruleCommands(rules))
}
