// Package service defines the core service abstraction used by compose
// generation, and the adapters that let plugin-declared service definitions
// satisfy it.
package service

import (
	"maps"
	"slices"
	"time"
)

// Config is the effective configuration of one service in a project.
type Config struct {
	Name            string
	Enabled         bool
	Type            string
	Version         string
	Port            int
	AdditionalPorts []int
	Environment     map[string]string
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	clone := c
	clone.AdditionalPorts = slices.Clone(c.AdditionalPorts)
	if c.Environment != nil {
		clone.Environment = maps.Clone(c.Environment)
	}
	return clone
}

// Ports returns the primary port followed by the additional ports, skipping
// a zero primary port.
func (c Config) Ports() []int {
	ports := make([]int, 0, 1+len(c.AdditionalPorts))
	if c.Port != 0 {
		ports = append(ports, c.Port)
	}
	return append(ports, c.AdditionalPorts...)
}

// HealthCheck describes how to tell that a service is ready. Test, Interval,
// Timeout and Retries map onto a compose healthcheck; Probe names the
// host-side readiness probe (tcp, http, mysql, postgres, redis, amqp, nats).
type HealthCheck struct {
	Test     []string
	Interval time.Duration
	Timeout  time.Duration
	Retries  int
	Probe    string
	// Path is the request path for http probes.
	Path string
}

// ComposeFragment references the template that renders a service's compose
// definition. Rendering belongs to the template engine.
type ComposeFragment struct {
	Plugin   string
	Service  string
	Template string
	Config   Config
}

// Service is the contract every service available to compose generation
// satisfies.
type Service interface {
	Name() string
	DisplayName() string
	Description() string
	// DefaultConfig returns the configuration used when the project does not
	// override it.
	DefaultConfig() Config
	// InternalPorts returns the container-side ports, index-aligned with
	// the configured external ports.
	InternalPorts() []int
	GenerateComposeConfig(cfg Config) ComposeFragment
	// HealthCheck returns nil when the service declares no health check.
	HealthCheck() *HealthCheck
}

// DatabaseService is a Service that can be dumped, restored and opened in an
// interactive shell. Each method returns the argv to run inside the
// service's container, or nil when the operation is unsupported.
type DatabaseService interface {
	Service
	DumpCommand(cfg Config) []string
	RestoreCommand(cfg Config) []string
	ShellCommand(cfg Config) []string
}
