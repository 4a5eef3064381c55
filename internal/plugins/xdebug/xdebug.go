// Package xdebug bundles Xdebug settings for the PHP container.
package xdebug

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/berth/internal/domain/plugin"
	"github.com/felixgeelhaar/berth/internal/ports"
)

// ID is the factory identifier of the plugin.
const ID = "xdebug"

// IniPath is the project-relative file the PHP container loads.
const IniPath = ".berth/php/xdebug.ini"

// Modes lists the accepted xdebug.mode values.
var Modes = []string{"off", "debug", "coverage", "profile"}

func init() {
	plugin.RegisterFactory(ID, New)
}

// Plugin writes xdebug.ini from its configuration.
type Plugin struct {
	plugin.Base
}

// New creates the plugin.
func New() (plugin.Plugin, error) {
	return &Plugin{Base: plugin.Base{
		Name:        "xdebug",
		Version:     "1.1.0",
		Description: "Toggle Xdebug in the PHP container",
	}}, nil
}

// ConfigSchema declares the debugger settings.
func (p *Plugin) ConfigSchema() *plugin.Schema {
	return plugin.NewSchema().
		String("mode", "off", plugin.Enum(Modes...), plugin.Label("xdebug.mode")).
		Integer("client_port", 9003, plugin.Min(1), plugin.Max(65535)).
		String("client_host", "host.docker.internal")
}

// Settings are the values written to xdebug.ini.
type Settings struct {
	Mode       string
	ClientPort int
	ClientHost string
}

// SettingsFrom reads Settings from a validated config.
func SettingsFrom(cfg plugin.Config) Settings {
	return Settings{
		Mode:       cfg.String("mode"),
		ClientPort: cfg.Int("client_port"),
		ClientHost: cfg.String("client_host"),
	}
}

// WriteIni writes settings to <root>/.berth/php/xdebug.ini.
func WriteIni(root string, s Settings) (string, error) {
	path := filepath.Join(root, filepath.FromSlash(IniPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	file := ini.Empty()
	section := file.Section("xdebug")
	section.Key("xdebug.mode").SetValue(s.Mode)
	section.Key("xdebug.client_port").SetValue(strconv.Itoa(s.ClientPort))
	section.Key("xdebug.client_host").SetValue(s.ClientHost)
	section.Key("xdebug.start_with_request").SetValue(startWithRequest(s.Mode))

	if err := file.SaveTo(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ReadIni returns the settings currently written for the project.
func ReadIni(root string) (Settings, error) {
	file, err := ini.Load(filepath.Join(root, filepath.FromSlash(IniPath)))
	if err != nil {
		return Settings{}, err
	}
	section := file.Section("xdebug")
	port, _ := section.Key("xdebug.client_port").Int()
	return Settings{
		Mode:       section.Key("xdebug.mode").String(),
		ClientPort: port,
		ClientHost: section.Key("xdebug.client_host").String(),
	}, nil
}

func startWithRequest(mode string) string {
	if mode == "off" {
		return "default"
	}
	return "trigger"
}

// Hooks writes xdebug.ini before containers start.
func (p *Plugin) Hooks(cfg plugin.Config) []plugin.Hook {
	settings := SettingsFrom(cfg)
	return []plugin.Hook{{
		Event:    plugin.BeforeStart,
		Priority: 10,
		Handler: func(_ context.Context, data plugin.EventData) error {
			_, err := WriteIni(data.ProjectRoot, settings)
			return err
		},
	}}
}

// Commands returns `xdebug [mode]`.
func (p *Plugin) Commands(env plugin.CommandEnv) []*cobra.Command {
	return []*cobra.Command{{
		Use:       "xdebug [mode]",
		Short:     "Show or switch the Xdebug mode",
		ValidArgs: Modes,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := SettingsFrom(env.Config)
			if len(args) == 0 {
				if current, err := ReadIni(env.ProjectRoot); err == nil {
					settings = current
				}
				fmt.Fprintf(cmd.OutOrStdout(), "xdebug.mode = %s\n", settings.Mode)
				return nil
			}
			if !slices.Contains(Modes, args[0]) {
				return fmt.Errorf("unknown mode %q", args[0])
			}
			settings.Mode = args[0]
			path, err := WriteIni(env.ProjectRoot, settings)
			if err != nil {
				return err
			}
			if env.Logger != nil {
				env.Logger.Debug(cmd.Context(), "wrote xdebug settings", ports.F("path", path))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "xdebug.mode = %s (restart the php service to apply)\n", settings.Mode)
			return nil
		},
	}}
}
