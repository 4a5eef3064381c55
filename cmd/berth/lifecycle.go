package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/domain/config"
	"github.com/felixgeelhaar/berth/internal/domain/plugin"
	"github.com/felixgeelhaar/berth/internal/ports"
)

var (
	initForce      bool
	startWait      bool
	destroyVolumes bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create berth.yaml for this project",
	Long: `Write a berth.yaml for the project directory. Plugins receive the
before:init and after:init events around the write.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runInit(cmd.Context(), a, cmd.OutOrStdout(), initForce)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runStart(cmd.Context(), a, cmd.OutOrStdout(), startWait)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the environment's containers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runStop(cmd.Context(), a, cmd.OutOrStdout())
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild images and recreate containers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runRebuild(cmd.Context(), a, cmd.OutOrStdout())
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Remove the environment's containers and networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runDestroy(cmd.Context(), a, cmd.OutOrStdout(), destroyVolumes)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing berth.yaml")
	startCmd.Flags().BoolVar(&startWait, "wait", false, "wait until services with a health check are ready")
	destroyCmd.Flags().BoolVar(&destroyVolumes, "volumes", false, "also remove named volumes")

	rootCmd.AddCommand(initCmd, startCmd, stopCmd, rebuildCmd, destroyCmd)
}

// lifecycle runs action between the before and after events. A failing
// handler aborts the command before action runs, or after it has run.
func lifecycle(ctx context.Context, a *app, before, after plugin.Event, action func(context.Context) error) error {
	data := plugin.EventData{ProjectRoot: a.root}
	if err := a.hooks.Dispatch(ctx, before, data); err != nil {
		return config.NewHookFailedError(err)
	}
	if err := action(ctx); err != nil {
		return err
	}
	if err := a.hooks.Dispatch(ctx, after, data); err != nil {
		return config.NewHookFailedError(err)
	}
	return nil
}

func runInit(ctx context.Context, a *app, out io.Writer, force bool) error {
	path := a.configPath()
	if _, err := os.Stat(path); err == nil && !force {
		return config.NewConfigExistsError(path)
	}

	return lifecycle(ctx, a, plugin.BeforeInit, plugin.AfterInit, func(context.Context) error {
		project := config.NewProject(a.project.Name)
		data, err := project.Marshal()
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", config.FileName, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		project.Root = a.root
		project.Path = path
		a.project = project
		a.hasConfig = true
		_, _ = fmt.Fprintf(out, "Created %s\n", path)
		return nil
	})
}

func runStart(ctx context.Context, a *app, out io.Writer, wait bool) error {
	if err := a.requireConfig(); err != nil {
		return err
	}
	return lifecycle(ctx, a, plugin.BeforeStart, plugin.AfterStart, func(ctx context.Context) error {
		if err := a.compose.Up(ctx); err != nil {
			return config.NewCommandFailedError(err)
		}
		if wait {
			if err := waitForServices(ctx, a, out); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintln(out, "Environment started")
		return nil
	})
}

// waitForServices blocks until every enabled service that declares a
// supported probe answers it.
func waitForServices(ctx context.Context, a *app, out io.Writer) error {
	for _, svc := range a.services.All() {
		hc := svc.HealthCheck()
		if hc == nil || !a.prober.Supports(hc.Probe) {
			continue
		}
		cfg := a.project.ServiceConfig(svc)
		if !cfg.Enabled {
			continue
		}
		a.logger.Debug(ctx, "waiting for service", ports.F("service", svc.Name()))
		if err := a.prober.Wait(ctx, svc, cfg); err != nil {
			return config.NewUserError(config.ErrCodeCommandFailed, fmt.Sprintf("service %q did not become ready", svc.Name())).
				WithSuggestion(fmt.Sprintf("Run 'docker compose logs %s' to see why.", svc.Name())).
				WithUnderlying(err)
		}
		_, _ = fmt.Fprintf(out, "%s is ready\n", svc.DisplayName())
	}
	return nil
}

func runStop(ctx context.Context, a *app, out io.Writer) error {
	if err := a.requireConfig(); err != nil {
		return err
	}
	return lifecycle(ctx, a, plugin.BeforeStop, plugin.AfterStop, func(ctx context.Context) error {
		if err := a.compose.Stop(ctx); err != nil {
			return config.NewCommandFailedError(err)
		}
		_, _ = fmt.Fprintln(out, "Environment stopped")
		return nil
	})
}

func runRebuild(ctx context.Context, a *app, out io.Writer) error {
	if err := a.requireConfig(); err != nil {
		return err
	}
	return lifecycle(ctx, a, plugin.BeforeRebuild, plugin.AfterRebuild, func(ctx context.Context) error {
		if err := a.compose.Build(ctx); err != nil {
			return config.NewCommandFailedError(err)
		}
		if err := a.compose.Up(ctx); err != nil {
			return config.NewCommandFailedError(err)
		}
		_, _ = fmt.Fprintln(out, "Environment rebuilt")
		return nil
	})
}

func runDestroy(ctx context.Context, a *app, out io.Writer, volumes bool) error {
	if err := a.requireConfig(); err != nil {
		return err
	}
	return lifecycle(ctx, a, plugin.BeforeDestroy, plugin.AfterDestroy, func(ctx context.Context) error {
		if err := a.compose.Down(ctx, volumes); err != nil {
			return config.NewCommandFailedError(err)
		}
		_, _ = fmt.Fprintln(out, "Environment destroyed")
		return nil
	})
}
