// Package queue carries catalog change events over RabbitMQ: a publisher
// used by the catalog and package services and an audit consumer that
// appends every event to a log file.
package queue

import "time"

// Event types. The routing key of an event is "catalog." + Type, so a
// binding on "catalog.product.*" receives only product changes.
const (
	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
	ProductDeleted = "product.deleted"
	PackageCreated = "package.created"
	PackageUpdated = "package.updated"
	PackageDeleted = "package.deleted"
)

// CatalogEvent is published after an administrator changes the catalog.
// It carries enough for downstream consumers to log or invalidate caches
// without querying the primary database.
type CatalogEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	Name       string    `json:"name,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Price      string    `json:"price,omitempty"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e CatalogEvent) RoutingKey() string {
	return "catalog." + e.Type
}
