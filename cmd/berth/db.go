package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/domain/config"
	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/ports"
)

var (
	dbDumpOutput  string
	dbRestoreFrom string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Dump, restore and open database services",
}

var dbDumpCmd = &cobra.Command{
	Use:               "dump <service>",
	Short:             "Write a dump of a database service",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeDatabaseNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dbDumpOutput != "" && dbDumpOutput != "-" {
			f, err := os.Create(dbDumpOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", dbDumpOutput, err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		return runDBDump(cmd.Context(), a, args[0], ports.Streams{Stdout: out, Stderr: cmd.ErrOrStderr()})
	},
}

var dbRestoreCmd = &cobra.Command{
	Use:               "restore <service>",
	Short:             "Restore a database service from a dump",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeDatabaseNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		in := cmd.InOrStdin()
		if dbRestoreFrom != "" && dbRestoreFrom != "-" {
			f, err := os.Open(dbRestoreFrom)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", dbRestoreFrom, err)
			}
			defer func() { _ = f.Close() }()
			in = f
		}
		return runDBRestore(cmd.Context(), a, args[0], ports.Streams{Stdin: in, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()})
	},
}

var dbShellCmd = &cobra.Command{
	Use:               "shell <service>",
	Short:             "Open an interactive shell on a database service",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeDatabaseNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runDBShell(cmd.Context(), a, args[0], ports.Streams{Stdin: cmd.InOrStdin(), Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()})
	},
}

func init() {
	dbDumpCmd.Flags().StringVarP(&dbDumpOutput, "output", "o", "", "write the dump to a file instead of stdout")
	dbRestoreCmd.Flags().StringVarP(&dbRestoreFrom, "input", "i", "", "read the dump from a file instead of stdin")

	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbDumpCmd)
	dbCmd.AddCommand(dbRestoreCmd)
	dbCmd.AddCommand(dbShellCmd)
}

func completeDatabaseNames(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	a, err := currentApp()
	if err != nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return databaseNames(a), cobra.ShellCompDirectiveNoFileComp
}

func databaseNames(a *app) []string {
	var names []string
	for _, name := range a.services.Names() {
		if _, ok := a.services.Database(name); ok {
			names = append(names, name)
		}
	}
	return names
}

// databaseCommand resolves the argv of one database operation.
func databaseCommand(a *app, name, op string, build func(service.DatabaseService, service.Config) []string) ([]string, error) {
	if err := a.requireConfig(); err != nil {
		return nil, err
	}
	db, ok := a.services.Database(name)
	if !ok {
		return nil, config.NewServiceNotFoundError(name, databaseNames(a))
	}
	argv := build(db, a.project.ServiceConfig(db))
	if len(argv) == 0 {
		return nil, config.NewUserError(config.ErrCodeCommandFailed, fmt.Sprintf("service %q does not support %s", name, op))
	}
	return argv, nil
}

func runDBDump(ctx context.Context, a *app, name string, streams ports.Streams) error {
	argv, err := databaseCommand(a, name, "dump", service.DatabaseService.DumpCommand)
	if err != nil {
		return err
	}
	return execIn(ctx, a, name, streams, argv)
}

func runDBRestore(ctx context.Context, a *app, name string, streams ports.Streams) error {
	argv, err := databaseCommand(a, name, "restore", service.DatabaseService.RestoreCommand)
	if err != nil {
		return err
	}
	return execIn(ctx, a, name, streams, argv)
}

func runDBShell(ctx context.Context, a *app, name string, streams ports.Streams) error {
	argv, err := databaseCommand(a, name, "shell", service.DatabaseService.ShellCommand)
	if err != nil {
		return err
	}
	return execIn(ctx, a, name, streams, argv)
}

func execIn(ctx context.Context, a *app, name string, streams ports.Streams, argv []string) error {
	if err := a.compose.Exec(ctx, name, streams, argv...); err != nil {
		return config.NewCommandFailedError(err)
	}
	return nil
}
