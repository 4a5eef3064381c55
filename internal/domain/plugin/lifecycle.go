package plugin

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// Event names a point in command execution where plugins may run handlers.
type Event string

// Lifecycle events.
const (
	BeforeInit    Event = "before:init"
	AfterInit     Event = "after:init"
	BeforeStart   Event = "before:start"
	AfterStart    Event = "after:start"
	BeforeStop    Event = "before:stop"
	AfterStop     Event = "after:stop"
	BeforeRebuild Event = "before:rebuild"
	AfterRebuild  Event = "after:rebuild"
	BeforeDestroy Event = "before:destroy"
	AfterDestroy  Event = "after:destroy"
)

// Events lists every defined lifecycle event.
func Events() []Event {
	return []Event{
		BeforeInit, AfterInit,
		BeforeStart, AfterStart,
		BeforeStop, AfterStop,
		BeforeRebuild, AfterRebuild,
		BeforeDestroy, AfterDestroy,
	}
}

// Valid reports whether e is a defined lifecycle event.
func (e Event) Valid() bool {
	for _, known := range Events() {
		if e == known {
			return true
		}
	}
	return false
}

func (e Event) String() string {
	return string(e)
}

// EventData is passed unchanged to every handler of a dispatch.
type EventData struct {
	Event       Event
	ProjectRoot string
	// Service is set when the event concerns a single service.
	Service string
	// ID correlates log lines of one dispatch.
	ID string
}

// HookFunc handles a lifecycle event.
type HookFunc func(ctx context.Context, data EventData) error

// Hook binds a handler to an event. Higher priorities run first.
type Hook struct {
	Event    Event
	Priority int
	Handler  HookFunc
}

type boundHook struct {
	plugin string
	hook   Hook
}

// Dispatcher broadcasts lifecycle events to the hooks of registered plugins.
type Dispatcher struct {
	registry *Registry
	logger   ports.Logger
}

// NewDispatcher creates a dispatcher over the registry.
func NewDispatcher(registry *Registry, logger ports.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch runs every hook declared for event, highest priority first,
// preserving plugin order among equal priorities. The first handler error
// stops the dispatch and is returned as a *HookError.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, data EventData) error {
	data.Event = event
	if data.ID == "" {
		data.ID = uuid.NewString()
	}

	hooks := d.hooksFor(event)
	d.debug(ctx, "dispatching lifecycle event",
		ports.F("event", event),
		ports.F("dispatch_id", data.ID),
		ports.F("handlers", len(hooks)))

	for _, bh := range hooks {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.debug(ctx, "running lifecycle handler",
			ports.F("plugin", bh.plugin),
			ports.F("priority", bh.hook.Priority),
			ports.F("dispatch_id", data.ID))
		if err := bh.hook.Handler(ctx, data); err != nil {
			return &HookError{Plugin: bh.plugin, Event: event, Err: err}
		}
	}
	return nil
}

// Handlers returns the hooks that a dispatch of event would run, in order.
func (d *Dispatcher) Handlers(event Event) []Hook {
	bound := d.hooksFor(event)
	out := make([]Hook, len(bound))
	for i, bh := range bound {
		out[i] = bh.hook
	}
	return out
}

func (d *Dispatcher) hooksFor(event Event) []boundHook {
	var hooks []boundHook
	for _, lp := range d.registry.All() {
		provider, ok := lp.Plugin.(HookProvider)
		if !ok {
			continue
		}
		for _, h := range provider.Hooks(lp.Config) {
			if h.Event != event || h.Handler == nil {
				continue
			}
			hooks = append(hooks, boundHook{plugin: lp.Name(), hook: h})
		}
	}
	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].hook.Priority > hooks[j].hook.Priority
	})
	return hooks
}

func (d *Dispatcher) debug(ctx context.Context, msg string, fields ...ports.Field) {
	if d.logger != nil {
		d.logger.Debug(ctx, msg, fields...)
	}
}
