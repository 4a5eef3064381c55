package plugin

import (
	"context"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// Discovered is a plugin instance found by a loader, with its provenance.
type Discovered struct {
	Plugin Plugin
	Source Source
	Dir    string
}

// Loader finds plugins in one source. Loaders never fail: unreadable or
// unrelated candidates are skipped.
type Loader interface {
	Load(ctx context.Context, x *Extractor) []Discovered
}

func (e *Extractor) debug(ctx context.Context, msg string, fields ...ports.Field) {
	if e == nil || e.Logger == nil {
		return
	}
	e.Logger.Debug(ctx, msg, fields...)
}
