package storage

import "context"

// Distance names the similarity metric of a collection.
type Distance string

// DistanceCosine scores points by cosine similarity in [-1, 1].
const DistanceCosine Distance = "cosine"

// CollectionConfig describes the vectors a collection accepts.
type CollectionConfig struct {
	Dimension int      `json:"dimension"`
	Distance  Distance `json:"distance"`
}

// CollectionInfo reports a collection's settings and size.
type CollectionInfo struct {
	Name   string
	Config CollectionConfig
	Points int
}

// Point is a single entry in a collection.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	*Point
	Score float32
}

// VectorCollection manages named collections of embedded points.
// Implementations must be thread-safe and support concurrent access.
type VectorCollection interface {
	// CreateCollectionIfAbsent creates the named collection unless it already exists.
	// created reports whether this call created it. An existing collection with a
	// different config yields ErrCollectionConfigMismatch. Losing a concurrent
	// create race is not an error.
	CreateCollectionIfAbsent(ctx context.Context, name string, config CollectionConfig) (created bool, err error)

	// CollectionInfo returns the collection settings and point count.
	// Returns ErrCollectionNotFound if the collection doesn't exist.
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// Upsert inserts or replaces points by ID.
	// Every vector must match the collection dimension.
	Upsert(ctx context.Context, name string, points ...*Point) error

	// Search returns up to limit points whose score is >= threshold,
	// ordered by score (highest first).
	Search(ctx context.Context, name string, vector []float32, limit int, threshold float32) ([]*ScoredPoint, error)

	// SetPayload merges the given keys into the payload of an existing point.
	// Keys not named are left untouched. Returns ErrNotFound if the point doesn't exist.
	SetPayload(ctx context.Context, name, id string, payload map[string]any) error

	// Scroll calls fn for every point in the collection in ID order.
	// Iteration stops at the first error fn returns.
	Scroll(ctx context.Context, name string, fn func(*Point) error) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, name string) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
