package cache

import "errors"

var (
	// ErrCollectionsRequired is returned when a vector collection service is not provided.
	ErrCollectionsRequired = errors.New("vector collections required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidThreshold is returned for a similarity threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be in (0, 1]")

	// ErrInvalidDimension is returned for a non-positive vector dimension.
	ErrInvalidDimension = errors.New("dimension must be positive")
)
