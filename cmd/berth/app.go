package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/adapters/command"
	"github.com/felixgeelhaar/berth/internal/adapters/compose"
	"github.com/felixgeelhaar/berth/internal/adapters/health"
	"github.com/felixgeelhaar/berth/internal/adapters/logging"
	"github.com/felixgeelhaar/berth/internal/domain/config"
	"github.com/felixgeelhaar/berth/internal/domain/plugin"
	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/plugins"
	"github.com/felixgeelhaar/berth/internal/ports"
)

// globalOptions are the root flags. They are read once before command
// dispatch so that plugins are discovered for the right project.
type globalOptions struct {
	ConfigFile string
	ProjectDir string
	Verbose    bool
}

// parseGlobalOptions extracts the global flags from args, ignoring every
// other flag.
func parseGlobalOptions(args []string) globalOptions {
	var opts globalOptions
	pre := &cobra.Command{
		Use:                "berth",
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	}
	bindGlobalFlags(pre, &opts.ConfigFile, &opts.ProjectDir, &opts.Verbose)
	_ = pre.ParseFlags(args)
	return opts
}

// orchestrator is the container backend used by the commands.
type orchestrator interface {
	ports.Orchestrator
	PS(ctx context.Context) ([]compose.Container, error)
}

// appOptions configures newApp. Zero values select production defaults.
type appOptions struct {
	globalOptions

	Getenv    func(string) string
	Runner    ports.CommandRunner
	LogOutput io.Writer
}

// app is everything a command needs once plugins are discovered.
type app struct {
	root    string
	project *config.Project
	// hasConfig is false when berth.yaml does not exist yet.
	hasConfig bool

	plugins   *plugin.Registry
	services  *service.Registry
	hooks     *plugin.Dispatcher
	templates *plugin.TemplateResolver

	runner  ports.CommandRunner
	compose orchestrator
	prober  *health.Prober
	logger  ports.Logger
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	var logOpts []logging.ConsoleLoggerOption
	if opts.LogOutput != nil {
		logOpts = append(logOpts, logging.WithOutput(opts.LogOutput))
	}
	logger := logging.FromEnv(getenv, opts.Verbose, logOpts...)

	root, err := projectRoot(opts.ProjectDir, getenv)
	if err != nil {
		return nil, err
	}

	project, hasConfig, err := loadProject(root, opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = command.NewRealRunner(root)
	}

	bundled := plugins.Bundled()
	reg, err := plugin.Discover(ctx, plugin.DiscoverOptions{
		ProjectRoot:  root,
		Bundled:      bundled,
		PluginConfig: project.Plugins,
		Runner:       runner,
		Logger:       logger,
		ToolVersion:  version,
	})
	if err != nil {
		if plugin.IsConfigError(err) {
			return nil, config.NewPluginConfigError(err)
		}
		return nil, err
	}

	a := &app{
		root:      root,
		project:   project,
		hasConfig: hasConfig,
		plugins:   reg,
		services:  plugin.CollectServices(reg),
		hooks:     plugin.NewDispatcher(reg, logger),
		templates: plugin.NewTemplateResolver(reg, bundled),
		runner:    runner,
		prober:    health.NewProber(health.WithLogger(logger)),
		logger:    logger,
	}
	a.compose = compose.New(runner,
		compose.WithProjectName(project.Name),
		compose.WithFiles(a.composeFile()),
		compose.WithLogger(logger))
	return a, nil
}

func projectRoot(flag string, getenv func(string) string) (string, error) {
	dir := flag
	if dir == "" {
		dir = getenv("BERTH_PROJECT_DIR")
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}
	return filepath.Abs(dir)
}

// loadProject reads the project configuration. A missing default file is
// not an error: the project starts out unconfigured until 'berth init'.
func loadProject(root, file string) (*config.Project, bool, error) {
	loader := config.NewLoader(nil)
	var (
		project *config.Project
		err     error
	)
	if file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(root, file)
		}
		project, err = loader.LoadFile(root, file)
	} else {
		project, err = loader.Load(root)
	}
	switch {
	case err == nil:
		return project, true, nil
	case file == "" && config.IsUserError(err, config.ErrCodeConfigNotFound):
		project = config.NewProject(filepath.Base(root))
		project.Root = root
		return project, false, nil
	default:
		return nil, false, err
	}
}

func (a *app) composeFile() string {
	file := a.project.ComposeFile
	if file == "" {
		file = config.DefaultComposeFile
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(a.root, filepath.FromSlash(file))
}

// configPath is where berth.yaml lives, or would be written.
func (a *app) configPath() string {
	if a.project.Path != "" {
		return a.project.Path
	}
	return filepath.Join(a.root, config.FileName)
}

// requireConfig fails commands that only make sense in an initialized
// project.
func (a *app) requireConfig() error {
	if !a.hasConfig {
		return config.NewConfigNotFoundError(a.configPath())
	}
	return nil
}

// lookupPlugin returns the named plugin as a user-facing error when missing.
func (a *app) lookupPlugin(name string) (*plugin.LoadedPlugin, error) {
	lp, err := a.plugins.Get(name)
	if err != nil {
		if plugin.IsNotFound(err) {
			return nil, config.NewPluginNotFoundError(name, a.plugins.Names())
		}
		return nil, err
	}
	return lp, nil
}

// registerPluginCommands adds every plugin-contributed command to root.
// A command whose name is already taken is skipped with a warning.
func registerPluginCommands(root *cobra.Command, a *app) {
	ctx := context.Background()
	for _, lp := range a.plugins.All() {
		provider, ok := lp.Plugin.(plugin.CommandProvider)
		if !ok {
			continue
		}
		env := plugin.CommandEnv{
			ProjectRoot: a.root,
			Config:      lp.Config,
			Runner:      a.runner,
			Logger:      a.logger.With(ports.F("plugin", lp.Name())),
		}
		for _, cmd := range provider.Commands(env) {
			if cmd == nil {
				continue
			}
			if existing, _, err := root.Find([]string{cmd.Name()}); err == nil && existing != root {
				a.logger.Warn(ctx, "plugin command conflicts with an existing command",
					ports.F("plugin", lp.Name()),
					ports.F("command", cmd.Name()))
				continue
			}
			root.AddCommand(cmd)
		}
	}
}

var current struct {
	mu  sync.Mutex
	app *app
	err error
}

func setApp(a *app, err error) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.app, current.err = a, err
}

// currentApp returns the application built by Execute, or the error that
// prevented building it.
func currentApp() (*app, error) {
	current.mu.Lock()
	defer current.mu.Unlock()
	if current.err != nil {
		return nil, current.err
	}
	if current.app == nil {
		return nil, fmt.Errorf("berth is not initialized")
	}
	return current.app, nil
}
