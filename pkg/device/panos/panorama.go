package panos

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/panshift/panshift/pkg/device"
	"github.com/panshift/panshift/pkg/spec"
)

// Panorama drives a Panorama management appliance.
type Panorama struct {
	*Client
}

// NewPanorama returns a client for the Panorama at host. host may carry an
// explicit :port, otherwise 22 is used.
func NewPanorama(host string, creds device.Credentials, log logrus.FieldLogger) *Panorama {
	return &Panorama{newClient(host, creds, log)}
}

// ActivateLicenses fetches a license for each auth code. The device must be
// able to reach the Palo Alto licensing service.
func (p *Panorama) ActivateLicenses(ctx context.Context, authCodes []string) error {
	for _, code := range authCodes {
		p.log.WithField("auth_code", code).Info("Fetching license")
		if err := p.runChecked(ctx, "request license fetch auth-code "+code); err != nil {
			return err
		}
	}
	return nil
}

// InstallPlugins downloads and installs each named plugin in order.
func (p *Panorama) InstallPlugins(ctx context.Context, plugins []string) error {
	if len(plugins) == 0 {
		return nil
	}
	// Refresh the available plugin list before downloading.
	if err := p.runChecked(ctx, "request plugins check"); err != nil {
		return err
	}
	for _, name := range plugins {
		p.log.WithField("plugin", name).Info("Installing plugin")
		if err := p.runChecked(ctx, "request plugins download file "+name); err != nil {
			return err
		}
		if err := p.runChecked(ctx, "request plugins install "+name); err != nil {
			return err
		}
	}
	return nil
}

// CreateTemplates creates the template and template stack that managed
// firewalls inherit settings from.
func (p *Panorama) CreateTemplates(ctx context.Context, templates spec.TemplatesSpec) error {
	return p.applyConfig(ctx, templateCommands(templates))
}

// CreateDeviceGroups creates the device groups that managed firewalls are
// assigned to.
func (p *Panorama) CreateDeviceGroups(ctx context.Context, groups []string) error {
	return p.applyConfig(ctx, deviceGroupCommands(groups))
}

// RegisterFirewall records a managed firewall serial so the device can
// connect to Panorama.
func (p *Panorama) RegisterFirewall(ctx context.Context, serial string) error {
	if strings.TrimSpace(serial) == "" {
		return fmt.Errorf("panos: %s: register firewall: empty serial", p.host)
	}
	return p.applyConfig(ctx, []string{"set mgt-config devices " + serial})
}
