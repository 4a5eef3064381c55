package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/berth/internal/domain/config"
	"github.com/felixgeelhaar/berth/internal/ports"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	projectDir string
)

var rootCmd = &cobra.Command{
	Use:   "berth",
	Short: "Container-based local development environments",
	Long: `Berth provisions and manages a local development environment on top of
docker compose: databases, caches, queues and mail catchers, extended by
plugins bundled with berth, installed as packages, or kept in the project.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute discovers plugins for the selected project, registers the
// commands they contribute, and runs the root command.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := parseGlobalOptions(os.Args[1:])
	a, err := newApp(ctx, appOptions{
		globalOptions: opts,
		Getenv:        os.Getenv,
	})
	setApp(a, err)
	if a != nil {
		registerPluginCommands(rootCmd, a)
		ctx = ports.ContextWithLogger(ctx, a.logger)
	}
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	bindGlobalFlags(rootCmd, &cfgFile, &projectDir, &verbose)

	// Register flag completions
	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// bindGlobalFlags declares the persistent flags shared by every command.
func bindGlobalFlags(cmd *cobra.Command, cfg, dir *string, verb *bool) {
	cmd.PersistentFlags().StringVar(cfg, "config", "", "config file (default: <project>/berth.yaml)")
	cmd.PersistentFlags().StringVar(dir, "project-dir", "", "project root (default: $BERTH_PROJECT_DIR or the current directory)")
	cmd.PersistentFlags().BoolVarP(verb, "verbose", "v", false, "verbose output")
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	// Complete --config with YAML files
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	// Complete --project-dir with directories
	_ = rootCmd.RegisterFlagCompletionFunc("project-dir", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})
}
