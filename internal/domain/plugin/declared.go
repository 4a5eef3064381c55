package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/ports"
)

// DeclaredPlugin is a plugin built entirely from a Declaration. Its hooks
// and commands run external programs through a command runner.
type DeclaredPlugin struct {
	decl   Declaration
	dir    string
	schema *Schema
	runner ports.CommandRunner
}

// NewDeclaredPlugin validates decl and builds the plugin. dir is the
// directory holding the declaration and anchors relative template paths.
func NewDeclaredPlugin(decl *Declaration, dir string, runner ports.CommandRunner) (*DeclaredPlugin, error) {
	if decl == nil {
		return nil, ErrNilPlugin
	}
	if err := decl.Validate(); err != nil {
		return nil, err
	}
	schema, err := decl.schema()
	if err != nil {
		return nil, err
	}
	return &DeclaredPlugin{decl: *decl, dir: dir, schema: schema, runner: runner}, nil
}

// Descriptor returns the declared identity.
func (p *DeclaredPlugin) Descriptor() Descriptor {
	return Descriptor{
		Name:        p.decl.Name,
		Version:     p.decl.Version,
		Description: p.decl.Description,
		Requires:    append([]string(nil), p.decl.Requires...),
	}
}

// ConfigSchema returns the declared config fields.
func (p *DeclaredPlugin) ConfigSchema() *Schema {
	return p.schema
}

// Services returns the declared services with cfg applied.
func (p *DeclaredPlugin) Services(cfg Config) []service.Definition {
	defs := make([]service.Definition, 0, len(p.decl.Services))
	for _, s := range p.decl.Services {
		defs = append(defs, s.definition(cfg))
	}
	return defs
}

// Hooks returns a hook per declared lifecycle command.
func (p *DeclaredPlugin) Hooks(cfg Config) []Hook {
	hooks := make([]Hook, 0, len(p.decl.Hooks))
	for _, h := range p.decl.Hooks {
		argv := append([]string(nil), h.Run...)
		hooks = append(hooks, Hook{
			Event:    Event(h.Event),
			Priority: h.Priority,
			Handler: func(ctx context.Context, data EventData) error {
				return p.run(ctx, expandHookArgs(argv, cfg, data))
			},
		})
	}
	return hooks
}

// Commands returns a cobra command per declared command.
func (p *DeclaredPlugin) Commands(env CommandEnv) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(p.decl.Commands))
	for _, c := range p.decl.Commands {
		argv := append([]string(nil), c.Run...)
		cmds = append(cmds, &cobra.Command{
			Use:   c.Name,
			Short: c.Short,
			Long:  c.Long,
			RunE: func(cmd *cobra.Command, args []string) error {
				data := EventData{ProjectRoot: env.ProjectRoot}
				full := append(expandHookArgs(argv, env.Config, data), args...)
				return runAttached(cmd, p.runnerFor(env), full)
			},
		})
	}
	return cmds
}

// TemplateOverrides returns the declared overrides resolved against the
// declaration directory.
func (p *DeclaredPlugin) TemplateOverrides() []TemplateOverride {
	return p.decl.TemplateOverrides(p.dir)
}

func (p *DeclaredPlugin) runnerFor(env CommandEnv) ports.CommandRunner {
	if env.Runner != nil {
		return env.Runner
	}
	return p.runner
}

func (p *DeclaredPlugin) run(ctx context.Context, argv []string) error {
	if p.runner == nil {
		return fmt.Errorf("no command runner available to run %q", strings.Join(argv, " "))
	}
	result, err := p.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return fmt.Errorf("failed to run %q: %w", argv[0], err)
	}
	if !result.Success() {
		return fmt.Errorf("%q exited with code %d: %s", argv[0], result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return nil
}

func runAttached(cmd *cobra.Command, runner ports.CommandRunner, argv []string) error {
	if runner == nil {
		return fmt.Errorf("no command runner available to run %q", argv[0])
	}
	if streamer, ok := runner.(ports.StreamRunner); ok {
		code, err := streamer.Stream(cmd.Context(), ports.Streams{
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		}, argv[0], argv[1:]...)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("%q exited with code %d", argv[0], code)
		}
		return nil
	}
	result, err := runner.Run(cmd.Context(), argv[0], argv[1:]...)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
	if !result.Success() {
		return fmt.Errorf("%q exited with code %d", argv[0], result.ExitCode)
	}
	return nil
}

// expandHookArgs substitutes ${project}, ${event}, ${service} and
// ${config.KEY} in argv. Other ${...} references expand to ""; a bare
// $NAME is left for the program to interpret.
func expandHookArgs(argv []string, cfg Config, data EventData) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = service.Expand(arg, func(key string) (string, bool) {
			switch key {
			case "project":
				return data.ProjectRoot, true
			case "event":
				return string(data.Event), true
			case "service":
				return data.Service, true
			}
			v, _ := configValue(cfg, key)
			return v, true
		})
	}
	return out
}
