package http

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/lokalconnect/internal/core/usecases"
)

// Pinger is a backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Items *usecases.ItemService
	NATS  *nats.Conn

	// Readiness checks; nil entries are reported as "not configured".
	Content Pinger
	DB      Pinger
	Cache   Pinger

	// ClusterResolution is the H3 resolution used when a cluster request
	// does not name one.
	ClusterResolution int

	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}
