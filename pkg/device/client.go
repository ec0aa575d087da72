// Package device drives configuration of individual firewalls and Panorama
// instances through a fixed phase sequence: wait for the management plane,
// connect, push configuration, commit synchronously, verify. Clients hide
// the transport; the orchestrator owns ordering, timing, and failure
// handling.
package device

import (
	"context"
	"time"

	"github.com/panshift/panshift/pkg/spec"
)

// Credentials authenticate a management session.
type Credentials struct {
	Username string
	Password string
}

// Identity reports what a device says about itself.
type Identity struct {
	Hostname string
	Serial   string
	Model    string
	Version  string
}

// CommitResult is the outcome of a synchronous commit. Success false with a
// nil error still fails the commit phase.
type CommitResult struct {
	Success bool
	JobID   string
	Detail  string
}

// Client is the transport-level contract shared by firewalls and Panorama.
type Client interface {
	// Connect establishes the management session. Safe to call as a
	// readiness probe; pair with Disconnect.
	Connect(ctx context.Context) error
	// Disconnect releases the session. Safe to call when not connected.
	Disconnect() error
	// Identity queries the device for hostname, serial, model, version.
	Identity(ctx context.Context) (*Identity, error)
	// Commit runs a synchronous commit bounded by timeout.
	Commit(ctx context.Context, timeout time.Duration) (*CommitResult, error)
	// ConfigureDevice pushes system settings.
	ConfigureDevice(ctx context.Context, settings spec.DeviceSettings) error
}

// FirewallClient extends Client with dataplane configuration.
type FirewallClient interface {
	Client
	ConfigureNetwork(ctx context.Context, interfaces []spec.InterfaceSpec) error
	ConfigureZones(ctx context.Context, zones []spec.ZoneSpec) error
	ConfigurePolicy(ctx context.Context, rules []spec.RuleSpec) error
}

// PanoramaClient extends Client with management-server configuration.
type PanoramaClient interface {
	Client
	ActivateLicenses(ctx context.Context, authCodes []string) error
	InstallPlugins(ctx context.Context, plugins []string) error
	CreateTemplates(ctx context.Context, templates spec.TemplatesSpec) error
	CreateDeviceGroups(ctx context.Context, groups []string) error
	RegisterFirewall(ctx context.Context, serial string) error
}
