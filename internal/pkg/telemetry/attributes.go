package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used across the item services.
const (
	AttrItemID       = attribute.Key("lokal.item.id")
	AttrItemTypes    = attribute.Key("lokal.item.types")
	AttrRadiusKm     = attribute.Key("lokal.search.radius_km")
	AttrResultCount  = attribute.Key("lokal.search.results")
	AttrBoundingBox  = attribute.Key("lokal.search.bbox")
	AttrContentOp    = attribute.Key("lokal.content.operation")
	AttrSyncFetched  = attribute.Key("lokal.sync.fetched")
	AttrSyncRejected = attribute.Key("lokal.sync.rejected")
)
