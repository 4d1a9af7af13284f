package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/lokalconnect/internal/pkg/metrics"
	"github.com/samirrijal/lokalconnect/internal/pkg/telemetry"
)

const requestTimeout = 15 * time.Second

// LegacyBoundsSunset is when /v1/items/in-bounds stops being served.
var LegacyBoundsSunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Tracing
	app.Use(telemetry.Middleware())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/v1/items/in-bounds", SunsetDate: LegacyBoundsSunset, Alternative: "/v1/items/bounds"},
	}))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	// Items. Static segments are registered before /:id.
	v1.Get("/items", withTimeout(ListItemsHandler(deps)))
	v1.Get("/items/nearby", withTimeout(NearbyItemsHandler(deps)))
	v1.Get("/items/bounds", withTimeout(ItemsInBoundsHandler(deps)))
	v1.Get("/items/in-bounds", withTimeout(LegacyItemsInBoundsHandler(deps)))
	v1.Get("/items/clusters", withTimeout(ItemClustersHandler(deps)))
	v1.Get("/items/:id", withTimeout(GetItemHandler(deps)))
	v1.Get("/items/:id/center", withTimeout(ItemCenterHandler(deps)))
	v1.Post("/items", withTimeout(CreateItemHandler(deps)))
	v1.Patch("/items/:id", withTimeout(UpdateItemHandler(deps)))
	v1.Delete("/items/:id", withTimeout(DeleteItemHandler(deps)))

	// Geo utilities
	v1.Get("/geo/distance", DistanceHandler())
	v1.Post("/geo/center", CenterHandler())
	v1.Get("/geo/bbox", BoundingBoxHandler())
	v1.Get("/geo/validate", ValidateHandler())

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	docsPath := deps.DocsPath
	if docsPath == "" {
		docsPath = "api/openapi.yaml"
	}
	SetupDocs(app, docsPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
