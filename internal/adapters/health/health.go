// Package health probes running services from the host to tell whether they
// accept connections.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/ports"
)

// Probe kinds.
const (
	KindTCP      = "tcp"
	KindHTTP     = "http"
	KindMySQL    = "mysql"
	KindPostgres = "postgres"
	KindRedis    = "redis"
	KindAMQP     = "amqp"
	KindNATS     = "nats"
)

var (
	// ErrNoHealthCheck indicates the service declares no probe.
	ErrNoHealthCheck = errors.New("service declares no health check")
	// ErrUnsupportedProbe indicates an unknown probe kind.
	ErrUnsupportedProbe = errors.New("unsupported probe kind")
	// ErrNoPort indicates the service config has no host port to probe.
	ErrNoPort = errors.New("service has no host port")
)

// ProbeError reports a failed probe.
type ProbeError struct {
	Service string
	Kind    string
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe for %s failed: %v", e.Kind, e.Service, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Target is the resolved address and credentials of a probe.
type Target struct {
	Host     string
	Port     int
	Path     string
	User     string
	Password string
	Database string
}

// Addr returns host:port.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

type probeFunc func(ctx context.Context, t Target) error

// Prober runs host-side readiness probes.
type Prober struct {
	host    string
	timeout time.Duration
	client  *http.Client
	logger  ports.Logger
	probes  map[string]probeFunc
}

// Option configures a Prober.
type Option func(*Prober)

// WithHost sets the host services are published on.
func WithHost(host string) Option {
	return func(p *Prober) {
		p.host = host
	}
}

// WithTimeout bounds each probe attempt.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.timeout = d
	}
}

// WithHTTPClient sets the client used for http probes.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		p.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(p *Prober) {
		p.logger = l
	}
}

// NewProber creates a prober for services published on 127.0.0.1.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		host:    "127.0.0.1",
		timeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: p.timeout}
	}
	p.probes = map[string]probeFunc{
		KindTCP:      p.probeTCP,
		KindHTTP:     p.probeHTTP,
		KindMySQL:    p.probeMySQL,
		KindPostgres: p.probePostgres,
		KindRedis:    p.probeRedis,
		KindAMQP:     p.probeAMQP,
		KindNATS:     p.probeNATS,
	}
	return p
}

// Supports reports whether kind is a supported probe.
func (p *Prober) Supports(kind string) bool {
	_, ok := p.probes[kind]
	return ok
}

// Probe runs the service's declared probe once against cfg.
func (p *Prober) Probe(ctx context.Context, svc service.Service, cfg service.Config) error {
	hc := svc.HealthCheck()
	if hc == nil || hc.Probe == "" {
		return ErrNoHealthCheck
	}
	probe, ok := p.probes[hc.Probe]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedProbe, hc.Probe)
	}
	if cfg.Port == 0 {
		return &ProbeError{Service: svc.Name(), Kind: hc.Probe, Err: ErrNoPort}
	}

	target := p.target(hc, cfg)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.logger != nil {
		p.logger.Debug(ctx, "probing service",
			ports.F("service", svc.Name()),
			ports.F("kind", hc.Probe),
			ports.F("addr", target.Addr()))
	}
	if err := probe(ctx, target); err != nil {
		return &ProbeError{Service: svc.Name(), Kind: hc.Probe, Err: err}
	}
	return nil
}

// Wait probes until the service is ready, honoring the health check's
// retries and interval.
func (p *Prober) Wait(ctx context.Context, svc service.Service, cfg service.Config) error {
	hc := svc.HealthCheck()
	if hc == nil {
		return ErrNoHealthCheck
	}
	attempts := max(hc.Retries, 1)
	interval := hc.Interval
	if interval <= 0 {
		interval = time.Second
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = p.Probe(ctx, svc, cfg); err == nil {
			return nil
		}
		if errors.Is(err, ErrUnsupportedProbe) || errors.Is(err, ErrNoHealthCheck) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return err
}

func (p *Prober) target(hc *service.HealthCheck, cfg service.Config) Target {
	user, password, database := Credentials(cfg.Environment)
	return Target{
		Host:     p.host,
		Port:     cfg.Port,
		Path:     hc.Path,
		User:     user,
		Password: password,
		Database: database,
	}
}

func (p *Prober) probeTCP(ctx context.Context, t Target) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p *Prober) probeHTTP(ctx context.Context, t Target) error {
	path := t.Path
	if path == "" {
		path = "/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+t.Addr()+path, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
