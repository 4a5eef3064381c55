package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/adapters/compose"
	"github.com/felixgeelhaar/berth/internal/domain/config"
	"github.com/felixgeelhaar/berth/internal/domain/service"
)

var servicesCmd = &cobra.Command{
	Use:     "services",
	Aliases: []string{"svc"},
	Short:   "List the services plugins provide",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runServices(cmd.OutOrStdout(), a)
	},
}

var servicesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show container state and readiness of each service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runServicesStatus(cmd.Context(), cmd.OutOrStdout(), a)
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)
	servicesCmd.AddCommand(servicesStatusCmd)
}

// pluginOf returns the plugin that declared svc, when known.
func pluginOf(svc service.Service) string {
	if p, ok := svc.(interface{ Plugin() string }); ok {
		return p.Plugin()
	}
	return emptyCell
}

func runServices(out io.Writer, a *app) error {
	all := a.services.All()
	if len(all) == 0 {
		_, _ = fmt.Fprintln(out, "No services available.")
		return nil
	}

	rows := make([][]string, 0, len(all))
	for _, svc := range all {
		cfg := a.project.ServiceConfig(svc)
		_, isDB := svc.(service.DatabaseService)
		probe := emptyCell
		if hc := svc.HealthCheck(); hc != nil && hc.Probe != "" {
			probe = hc.Probe
		}
		rows = append(rows, []string{
			svc.Name(),
			pluginOf(svc),
			cfg.Version,
			intsToString(cfg.Ports()),
			fmt.Sprint(isDB),
			probe,
		})
	}
	return renderTable(out, []string{"SERVICE", "PLUGIN", "VERSION", "PORTS", "DATABASE", "PROBE"}, rows)
}

func runServicesStatus(ctx context.Context, out io.Writer, a *app) error {
	if err := a.requireConfig(); err != nil {
		return err
	}
	containers, err := a.compose.PS(ctx)
	if err != nil {
		return config.NewCommandFailedError(err)
	}
	byService := make(map[string]compose.Container, len(containers))
	for _, c := range containers {
		byService[c.Service] = c
	}

	all := a.services.All()
	rows := make([][]string, 0, len(all))
	for _, svc := range all {
		cfg := a.project.ServiceConfig(svc)
		state := "not created"
		if c, ok := byService[svc.Name()]; ok {
			state = c.State
		}
		if !cfg.Enabled {
			state = "disabled"
		}
		rows = append(rows, []string{
			svc.Name(),
			state,
			intsToString(cfg.Ports()),
			readiness(ctx, a, svc, cfg, byService),
		})
	}
	return renderTable(out, []string{"SERVICE", "STATE", "PORTS", "READY"}, rows)
}

// readiness probes a running service once.
func readiness(ctx context.Context, a *app, svc service.Service, cfg service.Config, containers map[string]compose.Container) string {
	c, ok := containers[svc.Name()]
	if !ok || !c.Running() || !cfg.Enabled {
		return emptyCell
	}
	hc := svc.HealthCheck()
	if hc == nil || !a.prober.Supports(hc.Probe) {
		if c.Health != "" {
			return c.Health
		}
		return emptyCell
	}
	if err := a.prober.Probe(ctx, svc, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return emptyCell
		}
		return status(false, "no")
	}
	return status(true, "yes")
}
