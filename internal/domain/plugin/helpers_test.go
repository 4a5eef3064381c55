package plugin

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/adapters/logging"
	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/ports"
)

// stubPlugin exposes every capability from static fields.
type stubPlugin struct {
	Base
	schema    *Schema
	services  []service.Definition
	hooks     []Hook
	overrides []TemplateOverride
	commands  []string
}

func (p *stubPlugin) ConfigSchema() *Schema { return p.schema }

func (p *stubPlugin) Services(Config) []service.Definition { return p.services }

func (p *stubPlugin) Hooks(Config) []Hook { return p.hooks }

func (p *stubPlugin) TemplateOverrides() []TemplateOverride { return p.overrides }

func (p *stubPlugin) Commands(CommandEnv) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(p.commands))
	for _, name := range p.commands {
		cmds = append(cmds, &cobra.Command{Use: name})
	}
	return cmds
}

// barePlugin only satisfies Plugin.
type barePlugin struct {
	Base
}

func newStub(name string) *stubPlugin {
	return &stubPlugin{Base: Base{Name: name, Version: "1.0.0", Description: name + " plugin"}}
}

func newDebugLogger(t *testing.T) (ports.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return logging.NewConsoleLogger(
		logging.WithOutput(buf),
		logging.WithLevel(ports.LevelDebug),
		logging.WithTimestamp(false),
	), buf
}

func recordingHook(event Event, priority int, label string, calls *[]string) Hook {
	return Hook{
		Event:    event,
		Priority: priority,
		Handler: func(_ context.Context, _ EventData) error {
			*calls = append(*calls, label)
			return nil
		},
	}
}
