package ports

import "context"

// Orchestrator drives the container environment of a project. The compose
// adapter implements it by shelling out to `docker compose`.
type Orchestrator interface {
	// Up creates and starts the environment's containers.
	Up(ctx context.Context) error

	// Stop stops running containers without removing them.
	Stop(ctx context.Context) error

	// Build rebuilds service images.
	Build(ctx context.Context) error

	// Down removes containers, networks and, when volumes is set, volumes.
	Down(ctx context.Context, volumes bool) error

	// Exec runs argv inside the named service's container.
	Exec(ctx context.Context, service string, streams Streams, argv ...string) error
}
