package plugin

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/ports"
	"github.com/felixgeelhaar/berth/internal/testutil/mocks"
)

const yamlDeclaration = `kind: berth-plugin
name: meilisearch
version: 1.4.0
description: Meilisearch full-text search engine
requires:
  - berth >=0.1.0
config:
  - name: port
    type: integer
    default: 7700
    min: 1
    max: 65535
  - name: master_key
    type: string
    nullable: true
    secret: true
  - name: env
    type: string
    default: development
    enum: [development, production]
services:
  - name: meilisearch
    template: meilisearch.yaml.tmpl
    ports: [7700]
    internal_ports: [7700]
    version: v1.4
    environment:
      MEILI_ENV: development
    health_check:
      test: ["CMD", "curl", "-f", "http://localhost:7700/health"]
      interval: 5s
      timeout: 2s
      retries: 3
      probe: http
      path: /health
    dump: ["meilisearch", "--dump-dir", "/dumps", "--port", "${port}"]
hooks:
  - event: after:start
    priority: 5
    run: ["echo", "${event}", "${project}", "${config.port}"]
commands:
  - name: search-reindex
    short: Rebuild the search index
    run: ["curl", "-X", "POST", "http://localhost:${config.port}/indexes"]
templates:
  proxy.yaml.tmpl: templates/proxy.yaml.tmpl
`

const tomlDeclaration = `kind = "berth-plugin"
name = "meilisearch"
version = "1.4.0"
description = "Meilisearch full-text search engine"
requires = ["berth >=0.1.0"]

[[config]]
name = "port"
type = "integer"
default = 7700
min = 1
max = 65535

[[config]]
name = "master_key"
type = "string"
nullable = true
secret = true

[[config]]
name = "env"
type = "string"
default = "development"
enum = ["development", "production"]

[[services]]
name = "meilisearch"
template = "meilisearch.yaml.tmpl"
ports = [7700]
internal_ports = [7700]
version = "v1.4"
dump = ["meilisearch", "--dump-dir", "/dumps", "--port", "${port}"]

[services.environment]
MEILI_ENV = "development"

[services.health_check]
test = ["CMD", "curl", "-f", "http://localhost:7700/health"]
interval = "5s"
timeout = "2s"
retries = 3
probe = "http"
path = "/health"

[[hooks]]
event = "after:start"
priority = 5
run = ["echo", "${event}", "${project}", "${config.port}"]

[[commands]]
name = "search-reindex"
short = "Rebuild the search index"
run = ["curl", "-X", "POST", "http://localhost:${config.port}/indexes"]

[templates]
"proxy.yaml.tmpl" = "templates/proxy.yaml.tmpl"
`

func TestParseDeclaration_YAMLAndTOMLAgree(t *testing.T) {
	t.Parallel()

	fromYAML, err := ParseDeclaration("plugin.yaml", []byte(yamlDeclaration))
	require.NoError(t, err)
	fromTOML, err := ParseDeclaration("plugin.toml", []byte(tomlDeclaration))
	require.NoError(t, err)

	require.NoError(t, fromYAML.Validate())
	require.NoError(t, fromTOML.Validate())

	yamlPlugin, err := NewDeclaredPlugin(fromYAML, "/plugins/meili", nil)
	require.NoError(t, err)
	tomlPlugin, err := NewDeclaredPlugin(fromTOML, "/plugins/meili", nil)
	require.NoError(t, err)

	assert.Equal(t, yamlPlugin.Descriptor(), tomlPlugin.Descriptor())
	assert.Equal(t, yamlPlugin.TemplateOverrides(), tomlPlugin.TemplateOverrides())

	yamlCfg, err := yamlPlugin.ConfigSchema().Validate(nil)
	require.NoError(t, err)
	tomlCfg, err := tomlPlugin.ConfigSchema().Validate(nil)
	require.NoError(t, err)
	assert.Equal(t, yamlCfg.All(), tomlCfg.All())
	assert.Equal(t, 7700, yamlCfg.Int("port"))

	yamlSvc := yamlPlugin.Services(yamlCfg)
	tomlSvc := tomlPlugin.Services(tomlCfg)
	require.Len(t, yamlSvc, 1)
	require.Len(t, tomlSvc, 1)
	assert.Equal(t, yamlSvc[0].HealthCheck, tomlSvc[0].HealthCheck)
	assert.Equal(t, yamlSvc[0].Environment, tomlSvc[0].Environment)
}

func TestDeclaredPlugin_Services(t *testing.T) {
	t.Parallel()

	decl, err := ParseDeclaration("plugin.yaml", []byte(yamlDeclaration))
	require.NoError(t, err)
	p, err := NewDeclaredPlugin(decl, "/plugins/meili", nil)
	require.NoError(t, err)

	defs := p.Services(Config{})
	require.Len(t, defs, 1)
	def := defs[0]
	assert.Equal(t, "meilisearch.yaml.tmpl", def.Template)
	assert.Equal(t, &service.HealthCheck{
		Test:     []string{"CMD", "curl", "-f", "http://localhost:7700/health"},
		Interval: 5 * time.Second,
		Timeout:  2 * time.Second,
		Retries:  3,
		Probe:    "http",
		Path:     "/health",
	}, def.HealthCheck)
	require.True(t, def.IsDatabase())

	svc := service.Adapt(p.Descriptor().Name, def)
	db, ok := svc.(service.DatabaseService)
	require.True(t, ok)
	assert.Equal(t, []string{"meilisearch", "--dump-dir", "/dumps", "--port", "7700"}, db.DumpCommand(svc.DefaultConfig()))
	assert.Nil(t, db.ShellCommand(svc.DefaultConfig()))
}

func TestDeclaredPlugin_ServicesApplyConfig(t *testing.T) {
	t.Parallel()

	decl := &Declaration{
		Kind: Marker, Name: "search", Version: "1.0.0",
		Config: []FieldDeclaration{
			{Name: "port", Type: "integer", Default: 7700},
			{Name: "tag", Type: "string", Default: "v1.11"},
			{Name: "key", Type: "string", Nullable: true},
		},
		Services: []ServiceDeclaration{{
			Name:     "search",
			Template: "search.yaml.tmpl",
			Ports:    []any{"${config.port}", 9000},
			Version:  "${config.tag}",
			Environment: map[string]string{
				"SEARCH_KEY":  "${config.key}",
				"SEARCH_HOME": "$HOME/data",
			},
			Dump: []string{"sh", "-c", "export K=${config.key}; dump --port ${port} $HOME"},
		}},
	}
	p, err := NewDeclaredPlugin(decl, "", nil)
	require.NoError(t, err)

	reg := NewRegistry()
	lp, err := reg.Register(p, map[string]any{"port": 7801, "key": "abc"}, SourceLocal)
	require.NoError(t, err)
	assert.Equal(t, 7801, lp.Config.Int("port"))

	svc := service.Adapt("search", p.Services(lp.Config)[0])
	cfg := svc.DefaultConfig()
	assert.Equal(t, 7801, cfg.Port)
	assert.Equal(t, []int{9000}, cfg.AdditionalPorts)
	assert.Equal(t, "v1.11", cfg.Version)
	assert.Equal(t, map[string]string{"SEARCH_KEY": "abc", "SEARCH_HOME": "$HOME/data"}, cfg.Environment)

	db, ok := svc.(service.DatabaseService)
	require.True(t, ok)
	assert.Equal(t, []string{"sh", "-c", "export K=abc; dump --port 7801 $HOME"}, db.DumpCommand(cfg))

	defaults, err := p.ConfigSchema().Validate(nil)
	require.NoError(t, err)
	def := p.Services(defaults)[0]
	assert.Equal(t, []int{7700, 9000}, def.Ports)
	assert.NotContains(t, def.Environment, "SEARCH_KEY")
}

func TestDeclaration_ValidatePorts(t *testing.T) {
	t.Parallel()

	decl := Declaration{
		Kind: Marker, Name: "ports", Version: "1.0.0",
		Services: []ServiceDeclaration{{
			Name: "svc", Template: "svc.tmpl",
			Ports: []any{8080, "9090", "${config.port}", "http", 70000, true},
		}},
	}

	err := decl.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ports[3]")
	assert.Contains(t, err.Error(), "ports[4]")
	assert.Contains(t, err.Error(), "ports[5]")
	assert.NotContains(t, err.Error(), "ports[0]")
	assert.NotContains(t, err.Error(), "ports[1]")
	assert.NotContains(t, err.Error(), "ports[2]")
}

func TestDeclaredPlugin_TemplateOverridesResolveAgainstDir(t *testing.T) {
	t.Parallel()

	decl := &Declaration{
		Kind: Marker, Name: "tpl", Version: "1.0.0",
		Templates: map[string]string{
			"nginx.conf": "templates/nginx.conf",
			"b.yaml":     "/abs/b.yaml",
		},
	}

	local, err := NewDeclaredPlugin(decl, "/project/.berth/plugins/tpl", nil)
	require.NoError(t, err)
	assert.Equal(t, []TemplateOverride{
		{Original: "b.yaml", Override: "/abs/b.yaml"},
		{Original: "nginx.conf", Override: filepath.Join("/project/.berth/plugins/tpl", "templates/nginx.conf")},
	}, local.TemplateOverrides())

	bundled, err := NewDeclaredPlugin(decl, BuiltinPrefix+"tpl", nil)
	require.NoError(t, err)
	assert.Equal(t, BuiltinPrefix+"tpl/templates/nginx.conf", bundled.TemplateOverrides()[1].Override)
}

func TestDeclaredPlugin_HooksRunThroughRunner(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("echo", []string{"after:start", "/srv/app", "7701"}, ports.CommandResult{ExitCode: 0})

	decl, err := ParseDeclaration("plugin.yaml", []byte(yamlDeclaration))
	require.NoError(t, err)
	p, err := NewDeclaredPlugin(decl, "", runner)
	require.NoError(t, err)

	reg := NewRegistry()
	_, err = reg.Register(p, map[string]any{"port": 7701}, SourceLocal)
	require.NoError(t, err)

	d := NewDispatcher(reg, nil)
	require.NoError(t, d.Dispatch(context.Background(), AfterStart, EventData{ProjectRoot: "/srv/app"}))
	require.Len(t, runner.Calls(), 1)
	assert.Equal(t, "echo", runner.Calls()[0].Command)
}

func TestExpandHookArgs_KeepsShellVariables(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(map[string]any{"port": 7700})
	got := expandHookArgs(
		[]string{"sh", "-c", "cd ${project} && echo $HOME ${config.port} ${config.missing}${nope}"},
		cfg, EventData{ProjectRoot: "/srv/app"},
	)

	assert.Equal(t, []string{"sh", "-c", "cd /srv/app && echo $HOME 7700 "}, got)
}

func TestDeclaredPlugin_HookFailure(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("false", nil, ports.CommandResult{ExitCode: 1, Stderr: "nope\n"})

	decl := &Declaration{
		Kind: Marker, Name: "failing", Version: "1.0.0",
		Hooks: []HookDeclaration{{Event: "before:init", Run: []string{"false"}}},
	}
	p, err := NewDeclaredPlugin(decl, "", runner)
	require.NoError(t, err)

	reg := NewRegistry()
	_, err = reg.Register(p, nil, SourceLocal)
	require.NoError(t, err)

	err = NewDispatcher(reg, nil).Dispatch(context.Background(), BeforeInit, EventData{})
	require.Error(t, err)
	assert.True(t, IsHookError(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestDeclaredPlugin_Commands(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("curl", []string{"-X", "POST", "http://localhost:7700/indexes", "--verbose"},
		ports.CommandResult{Stdout: "ok\n"})

	decl, err := ParseDeclaration("plugin.yaml", []byte(yamlDeclaration))
	require.NoError(t, err)
	p, err := NewDeclaredPlugin(decl, "", nil)
	require.NoError(t, err)
	cfg, err := p.ConfigSchema().Validate(nil)
	require.NoError(t, err)

	cmds := p.Commands(CommandEnv{ProjectRoot: "/srv/app", Config: cfg, Runner: runner})
	require.Len(t, cmds, 1)
	cmd := cmds[0]
	assert.Equal(t, "search-reindex", cmd.Name())
	assert.Equal(t, "Rebuild the search index", cmd.Short)

	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--verbose"})
	cmd.DisableFlagParsing = true
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "ok\n", out.String())
}

func TestDeclaration_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		decl    Declaration
		wantErr []string
	}{
		{
			name:    "missing marker and identity",
			decl:    Declaration{},
			wantErr: []string{`kind must be "berth-plugin"`, "name is required", "version is required"},
		},
		{
			name:    "bad name",
			decl:    Declaration{Kind: Marker, Name: "9lives", Version: "1.0.0"},
			wantErr: []string{"must start with a letter"},
		},
		{
			name: "bad parts",
			decl: Declaration{
				Kind: Marker, Name: "bad", Version: "1.0.0",
				Config:   []FieldDeclaration{{Name: "port", Type: "integer", Default: "x"}},
				Services: []ServiceDeclaration{{Name: "svc", HealthCheck: &HealthCheckDeclaration{Interval: "soon"}}},
				Hooks:    []HookDeclaration{{Event: "during:start"}},
				Commands: []CommandDeclaration{{Run: []string{"true"}}},
			},
			wantErr: []string{
				`config field "port": invalid default`,
				"services[0]: template is required",
				"invalid health check interval",
				`hooks[0]: unknown event "during:start"`,
				"hooks[0]: run is required",
				"commands[0]: name is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.decl.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestParseDeclaration_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseDeclaration("plugin.json", []byte(`{}`))
	assert.Error(t, err)

	_, err = ParseDeclaration("plugin.yaml", []byte("kind: berth-plugin\nunexpected: true\n"))
	assert.Error(t, err)

	_, err = ParseDeclaration("plugin.toml", []byte("kind = "))
	assert.Error(t, err)

	_, err = NewDeclaredPlugin(nil, "", nil)
	assert.True(t, errors.Is(err, ErrNilPlugin))
}
