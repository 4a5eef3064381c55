// Package mailpit bundles a Mailpit SMTP catcher with a web UI.
package mailpit

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/berth/internal/domain/plugin"
	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/ports"
)

// ID is the factory identifier of the plugin.
const ID = "mailpit"

func init() {
	plugin.RegisterFactory(ID, New)
}

// Plugin provides the mailpit service.
type Plugin struct {
	plugin.Base
}

// New creates the plugin.
func New() (plugin.Plugin, error) {
	return &Plugin{Base: plugin.Base{
		Name:        "mailpit",
		Version:     "1.2.0",
		Description: "Catch outgoing mail and browse it in a web UI",
		Requires:    []string{"berth >=0.1.0"},
	}}, nil
}

// ConfigSchema declares the published ports.
func (p *Plugin) ConfigSchema() *plugin.Schema {
	return plugin.NewSchema().
		Integer("http_port", 8025, plugin.Min(1), plugin.Max(65535), plugin.Label("Web UI port")).
		Integer("smtp_port", 1025, plugin.Min(1), plugin.Max(65535), plugin.Label("SMTP port"))
}

// Services returns the mailpit container.
func (p *Plugin) Services(cfg plugin.Config) []service.Definition {
	return []service.Definition{{
		Name:          "mailpit",
		Template:      "mailpit.yaml.tmpl",
		DisplayName:   "Mailpit",
		Description:   "SMTP server that captures every message",
		Icon:          "✉",
		Ports:         []int{cfg.Int("http_port"), cfg.Int("smtp_port")},
		InternalPorts: []int{8025, 1025},
		Version:       "v1.21",
		Environment: map[string]string{
			"MP_SMTP_AUTH_ACCEPT_ANY":     "1",
			"MP_SMTP_AUTH_ALLOW_INSECURE": "1",
		},
		HealthCheck: &service.HealthCheck{
			Test:     []string{"CMD", "/mailpit", "readyz"},
			Interval: 5 * time.Second,
			Timeout:  3 * time.Second,
			Retries:  10,
			Probe:    "http",
			Path:     "/readyz",
		},
	}}
}

// Hooks prints where to find the web UI once the environment is up.
func (p *Plugin) Hooks(cfg plugin.Config) []plugin.Hook {
	url := fmt.Sprintf("http://localhost:%d", cfg.Int("http_port"))
	return []plugin.Hook{{
		Event: plugin.AfterStart,
		Handler: func(ctx context.Context, _ plugin.EventData) error {
			if logger := ports.LoggerFromContext(ctx); logger != nil {
				logger.Info(ctx, "mailpit is catching mail", ports.F("ui", url))
			}
			return nil
		},
	}}
}

// TemplateOverrides routes PHP's sendmail settings to mailpit.
func (p *Plugin) TemplateOverrides() []plugin.TemplateOverride {
	return []plugin.TemplateOverride{{
		Original: "php/sendmail.ini.tmpl",
		Override: plugin.BuiltinPrefix + "mailpit/templates/sendmail.ini.tmpl",
	}}
}
