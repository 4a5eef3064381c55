package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/domain/plugin"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Inspect berth plugins",
	Long: `Inspect the plugins discovered for this project: bundled plugins,
plugins installed as packages, and plugins kept under .berth/plugins.`,
}

var pluginListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List discovered plugins",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runPluginList(cmd.OutOrStdout(), a)
	},
}

var pluginInfoCmd = &cobra.Command{
	Use:               "info <name>",
	Short:             "Show plugin details",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePluginNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runPluginInfo(cmd.OutOrStdout(), a, args[0])
	},
}

var pluginConfigCmd = &cobra.Command{
	Use:   "config <name>",
	Short: "Show a plugin's settings",
	Long: `Show every setting a plugin accepts under plugins.<name> in berth.yaml,
with its default and the effective value. Secret values are masked.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePluginNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runPluginConfig(cmd.OutOrStdout(), a, args[0])
	},
}

var pluginTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Show template overrides and plugin template directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := currentApp()
		if err != nil {
			return err
		}
		return runPluginTemplates(cmd.OutOrStdout(), a)
	},
}

func init() {
	rootCmd.AddCommand(pluginCmd)
	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginInfoCmd)
	pluginCmd.AddCommand(pluginConfigCmd)
	pluginCmd.AddCommand(pluginTemplatesCmd)
}

func completePluginNames(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	a, err := currentApp()
	if err != nil || len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return a.plugins.Names(), cobra.ShellCompDirectiveNoFileComp
}

func runPluginList(out io.Writer, a *app) error {
	all := a.plugins.All()
	if len(all) == 0 {
		_, _ = fmt.Fprintln(out, "No plugins installed.")
		return nil
	}

	rows := make([][]string, 0, len(all))
	for _, lp := range all {
		desc := lp.Descriptor.Description
		if len(desc) > 50 {
			desc = desc[:47] + "..."
		}
		rows = append(rows, []string{
			lp.Name(),
			lp.Descriptor.Version,
			string(lp.Source),
			orEmpty(lp.Capabilities()),
			desc,
		})
	}
	return renderTable(out, []string{"NAME", "VERSION", "SOURCE", "CAPABILITIES", "DESCRIPTION"}, rows)
}

func runPluginInfo(out io.Writer, a *app, name string) error {
	lp, err := a.lookupPlugin(name)
	if err != nil {
		return err
	}

	printField(out, "Name", lp.Name())
	printField(out, "Version", lp.Descriptor.Version)
	printField(out, "Description", lp.Descriptor.Description)
	printField(out, "Source", string(lp.Source))
	printField(out, "Directory", lp.Dir)
	printField(out, "Requires", strings.Join(lp.Descriptor.Requires, ", "))
	printField(out, "Capabilities", strings.Join(lp.Capabilities(), ", "))

	if p, ok := lp.Plugin.(plugin.ServiceProvider); ok {
		var names []string
		for _, def := range p.Services(lp.Config) {
			names = append(names, def.Name)
		}
		printField(out, "Services", strings.Join(names, ", "))
	}
	if p, ok := lp.Plugin.(plugin.HookProvider); ok {
		var hooks []string
		for _, h := range p.Hooks(lp.Config) {
			hooks = append(hooks, fmt.Sprintf("%s (priority %d)", h.Event, h.Priority))
		}
		printField(out, "Hooks", strings.Join(hooks, ", "))
	}
	if p, ok := lp.Plugin.(plugin.CommandProvider); ok {
		var names []string
		for _, c := range p.Commands(plugin.CommandEnv{ProjectRoot: a.root, Config: lp.Config}) {
			if c != nil {
				names = append(names, c.Name())
			}
		}
		printField(out, "Commands", strings.Join(names, ", "))
	}
	if p, ok := lp.Plugin.(plugin.TemplateOverrider); ok {
		var overrides []string
		for _, o := range p.TemplateOverrides() {
			overrides = append(overrides, o.Original)
		}
		printField(out, "Overrides", strings.Join(overrides, ", "))
	}
	return nil
}

func runPluginConfig(out io.Writer, a *app, name string) error {
	lp, err := a.lookupPlugin(name)
	if err != nil {
		return err
	}
	schema := lp.Schema()
	if schema == nil || schema.Len() == 0 {
		_, _ = fmt.Fprintf(out, "Plugin %s has no settings.\n", lp.Name())
		return nil
	}

	fields := schema.Fields()
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		value, _ := lp.Config.Get(f.Name)
		rows = append(rows, []string{
			f.Name,
			string(f.Type),
			formatSetting(f.Default, f.Secret),
			formatSetting(value, f.Secret),
			constraints(f),
		})
	}
	return renderTable(out, []string{"SETTING", "TYPE", "DEFAULT", "VALUE", "CONSTRAINTS"}, rows)
}

func constraints(f plugin.Field) string {
	var parts []string
	if f.Min != nil {
		parts = append(parts, fmt.Sprintf("min %d", *f.Min))
	}
	if f.Max != nil {
		parts = append(parts, fmt.Sprintf("max %d", *f.Max))
	}
	if len(f.Enum) > 0 {
		parts = append(parts, "one of "+strings.Join(f.Enum, "|"))
	}
	if f.Nullable {
		parts = append(parts, "nullable")
	}
	if f.Secret {
		parts = append(parts, "secret")
	}
	return orEmpty(parts)
}

func runPluginTemplates(out io.Writer, a *app) error {
	overrides := a.templates.Overrides()
	if len(overrides) == 0 {
		_, _ = fmt.Fprintln(out, "No template overrides.")
	} else {
		originals := make([]string, 0, len(overrides))
		for original := range overrides {
			originals = append(originals, original)
		}
		sort.Strings(originals)
		rows := make([][]string, 0, len(originals))
		for _, original := range originals {
			rows = append(rows, []string{original, overrides[original]})
		}
		if err := renderTable(out, []string{"TEMPLATE", "OVERRIDE"}, rows); err != nil {
			return err
		}
	}

	dirs := a.templates.TemplateDirs()
	if len(dirs) == 0 {
		return nil
	}
	names := make([]string, 0, len(dirs))
	for name := range dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, dirs[name]})
	}
	return renderTable(out, []string{"PLUGIN", "TEMPLATE DIRECTORY"}, rows)
}
