// Package compose drives a project's containers through the docker compose
// CLI.
package compose

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// CommandError reports a failed compose invocation.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("docker %s exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

// Container is one entry of `docker compose ps`.
type Container struct {
	Name    string
	Service string
	State   string
	Health  string
	Status  string
}

// Running reports whether the container is running.
func (c Container) Running() bool {
	return c.State == "running"
}

// Orchestrator implements ports.Orchestrator with `docker compose`.
type Orchestrator struct {
	runner  ports.CommandRunner
	binary  string
	project string
	files   []string
	logger  ports.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProjectName sets the compose project name (-p).
func WithProjectName(name string) Option {
	return func(o *Orchestrator) {
		o.project = name
	}
}

// WithFiles sets the compose files (-f), in order.
func WithFiles(files ...string) Option {
	return func(o *Orchestrator) {
		o.files = append([]string(nil), files...)
	}
}

// WithBinary overrides the docker executable.
func WithBinary(binary string) Option {
	return func(o *Orchestrator) {
		o.binary = binary
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New creates an orchestrator running commands through runner. Exec needs
// a runner that also implements ports.StreamRunner.
func New(runner ports.CommandRunner, opts ...Option) *Orchestrator {
	o := &Orchestrator{runner: runner, binary: "docker"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Up creates and starts the containers in the background.
func (o *Orchestrator) Up(ctx context.Context) error {
	_, err := o.run(ctx, "up", "--detach", "--remove-orphans")
	return err
}

// Stop stops the running containers.
func (o *Orchestrator) Stop(ctx context.Context) error {
	_, err := o.run(ctx, "stop")
	return err
}

// Build rebuilds service images, pulling newer base images.
func (o *Orchestrator) Build(ctx context.Context) error {
	_, err := o.run(ctx, "build", "--pull")
	return err
}

// Down removes containers and networks, and volumes when asked.
func (o *Orchestrator) Down(ctx context.Context, volumes bool) error {
	args := []string{"down", "--remove-orphans"}
	if volumes {
		args = append(args, "--volumes")
	}
	_, err := o.run(ctx, args...)
	return err
}

// Exec runs argv in the service container attached to streams. A pseudo
// terminal is allocated only when stdin is a terminal.
func (o *Orchestrator) Exec(ctx context.Context, service string, streams ports.Streams, argv ...string) error {
	streamer, ok := o.runner.(ports.StreamRunner)
	if !ok {
		return fmt.Errorf("command runner cannot attach streams")
	}

	args := []string{"exec"}
	if !isTerminal(streams.Stdin) {
		args = append(args, "-T")
	}
	args = append(args, service)
	args = append(args, argv...)
	full := o.args(args...)

	o.debug(ctx, full)
	code, err := streamer.Stream(ctx, streams, o.binary, full...)
	if err != nil {
		return err
	}
	if code != 0 {
		return &CommandError{Args: full, ExitCode: code}
	}
	return nil
}

// PS lists the project's containers.
func (o *Orchestrator) PS(ctx context.Context) ([]Container, error) {
	out, err := o.run(ctx, "ps", "--all", "--format", "json")
	if err != nil {
		return nil, err
	}
	return ParsePS(out), nil
}

// ParsePS decodes `docker compose ps --format json` output, which is a JSON
// array in older releases and one object per line in newer ones.
func ParsePS(out string) []Container {
	var containers []Container
	add := func(r gjson.Result) {
		containers = append(containers, Container{
			Name:    r.Get("Name").String(),
			Service: r.Get("Service").String(),
			State:   r.Get("State").String(),
			Health:  r.Get("Health").String(),
			Status:  r.Get("Status").String(),
		})
	}

	trimmed := strings.TrimSpace(out)
	if strings.HasPrefix(trimmed, "[") {
		gjson.Parse(trimmed).ForEach(func(_, r gjson.Result) bool {
			add(r)
			return true
		})
		return containers
	}
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !gjson.Valid(line) {
			continue
		}
		add(gjson.Parse(line))
	}
	return containers
}

func (o *Orchestrator) args(sub ...string) []string {
	args := []string{"compose"}
	if o.project != "" {
		args = append(args, "--project-name", o.project)
	}
	for _, f := range o.files {
		args = append(args, "--file", f)
	}
	return append(args, sub...)
}

func (o *Orchestrator) run(ctx context.Context, sub ...string) (string, error) {
	full := o.args(sub...)
	o.debug(ctx, full)

	result, err := o.runner.Run(ctx, o.binary, full...)
	if err != nil {
		return "", fmt.Errorf("failed to run docker compose: %w", err)
	}
	if !result.Success() {
		return "", &CommandError{Args: full, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return result.Stdout, nil
}

func (o *Orchestrator) debug(ctx context.Context, args []string) {
	if o.logger != nil {
		o.logger.Debug(ctx, "running docker", ports.F("args", strings.Join(args, " ")))
	}
}

func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

var _ ports.Orchestrator = (*Orchestrator)(nil)
