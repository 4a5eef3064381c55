package plugin

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// Candidate is one unit a loader asks the Extractor to turn into a plugin:
// either a declaration file (Path and Data) or a bare factory identifier
// (ID).
type Candidate struct {
	// ID names a factory directly, as package manifests do.
	ID string
	// Path is the declaration file name, used for format detection and logs.
	Path string
	// Data is the declaration content.
	Data []byte
	// Dir anchors paths relative to the declaration.
	Dir string
}

func (c Candidate) String() string {
	if c.Path != "" {
		return c.Path
	}
	return c.ID
}

// Extractor turns candidates into plugin instances. Every failure is
// reported as "no plugin" and logged at debug level; it never aborts the
// caller.
type Extractor struct {
	Factories *FactoryTable
	Runner    ports.CommandRunner
	Logger    ports.Logger
}

// Extract resolves, checks and instantiates the candidate.
func (e *Extractor) Extract(ctx context.Context, c Candidate) (Plugin, bool) {
	p, err := e.extract(c)
	if err != nil {
		e.skip(ctx, c, err)
		return nil, false
	}
	return p, true
}

func (e *Extractor) extract(c Candidate) (Plugin, error) {
	if c.ID != "" && c.Path == "" {
		return e.fromFactory(c.ID)
	}

	decl, err := ParseDeclaration(c.Path, c.Data)
	if err != nil {
		return nil, err
	}
	if decl.Kind != Marker {
		return nil, ErrMissingMarker
	}
	if decl.Factory != "" {
		return e.fromFactory(decl.Factory)
	}
	declared, err := NewDeclaredPlugin(decl, c.Dir, e.Runner)
	if err != nil {
		return nil, err
	}
	return declared, nil
}

func (e *Extractor) fromFactory(id string) (Plugin, error) {
	factory, ok := e.Factories.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFactory, id)
	}
	if factory == nil {
		return nil, fmt.Errorf("identifier %q is not instantiable", id)
	}
	p, err := instantiate(factory)
	if err != nil {
		return nil, fmt.Errorf("constructing %q: %w", id, err)
	}
	if p == nil {
		return nil, ErrNilPlugin
	}
	if p.Descriptor().Name == "" {
		return nil, ErrEmptyPluginName
	}
	return p, nil
}

// instantiate calls f, converting a panic into an error.
func instantiate(f Factory) (p Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return f()
}

func (e *Extractor) skip(ctx context.Context, c Candidate, err error) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debug(ctx, "skipping plugin candidate",
		ports.F("candidate", c.String()),
		ports.F("reason", err.Error()))
}
