package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/storage"
)

// VectorCollections implements storage.VectorCollection for BadgerDB.
// Search is an exhaustive cosine scan, which suits the cache and corpus sizes
// recall serves from a single node.
type VectorCollections struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorCollection = (*VectorCollections)(nil)

// NewVectorCollections creates a collection service over an open backend.
// Closing the returned service closes the backend.
func NewVectorCollections(backend *Backend) (storage.VectorCollection, error) {
	return newVectorCollections(backend), nil
}

func newVectorCollections(backend *Backend) *VectorCollections {
	return &VectorCollections{
		backend: backend,
		logger:  slog.Default().With("component", "badger-collections"),
	}
}

// Close closes the underlying backend.
func (c *VectorCollections) Close() error {
	if c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}

// CreateCollectionIfAbsent creates the named collection unless it already exists.
func (c *VectorCollections) CreateCollectionIfAbsent(ctx context.Context, name string, config storage.CollectionConfig) (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	if err := validateCollectionName(name); err != nil {
		return false, err
	}
	if config.Dimension <= 0 {
		return false, fmt.Errorf("%w: dimension must be positive", storage.ErrInvalidQuery)
	}
	if config.Distance == "" {
		config.Distance = storage.DistanceCosine
	}
	if config.Distance != storage.DistanceCosine {
		return false, fmt.Errorf("%w: unsupported distance %q", storage.ErrInvalidQuery, config.Distance)
	}

	created := false
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readCollectionConfig(tx, name)
		if err == nil {
			return compareConfig(name, existing, config)
		}
		if !errors.Is(err, storage.ErrCollectionNotFound) {
			return err
		}

		value, err := storage.MarshalCollectionConfig(config)
		if err != nil {
			return err
		}
		if err := tx.Set(makeCollectionKey(name), value); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		created = true
		return nil
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		// Another writer created it first; make sure the settings agree.
		c.logger.Debug("lost collection create race", "collection", name)
		info, infoErr := c.CollectionInfo(ctx, name)
		if infoErr != nil {
			return false, infoErr
		}
		return false, compareConfig(name, info.Config, config)
	}
	if err != nil {
		return false, err
	}

	if created {
		c.logger.Info("created collection", "collection", name, "dimension", config.Dimension, "distance", config.Distance)
	}
	return created, nil
}

// CollectionInfo returns the collection settings and point count.
func (c *VectorCollections) CollectionInfo(ctx context.Context, name string) (*storage.CollectionInfo, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateCollectionName(name); err != nil {
		return nil, err
	}

	var info *storage.CollectionInfo
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		config, err := readCollectionConfig(tx, name)
		if err != nil {
			return err
		}
		count, err := countPoints(ctx, tx, name)
		if err != nil {
			return err
		}
		info = &storage.CollectionInfo{Name: name, Config: config, Points: count}
		return nil
	}, false)
	return info, err
}

// Upsert inserts or replaces points by ID.
// Vectors are stored normalized so search reduces to a dot product.
func (c *VectorCollections) Upsert(ctx context.Context, name string, points ...*storage.Point) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := validateCollectionName(name); err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		config, err := readCollectionConfig(tx, name)
		if err != nil {
			return err
		}

		for _, point := range points {
			if err := ctx.Err(); err != nil {
				return err
			}
			if point == nil || point.ID == "" {
				return fmt.Errorf("%w: point ID is required", storage.ErrInvalidQuery)
			}
			if len(point.Vector) != config.Dimension {
				return fmt.Errorf("%w: point %s has %d dimensions, collection %s expects %d",
					storage.ErrDimensionMismatch, point.ID, len(point.Vector), name, config.Dimension)
			}

			stored := &storage.Point{
				ID:      point.ID,
				Vector:  normalizeVector(point.Vector),
				Payload: point.Payload,
			}
			value, err := storage.MarshalPoint(stored)
			if err != nil {
				return err
			}
			if err := tx.Set(makePointKey(name, point.ID), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Search returns up to limit points whose cosine similarity is >= threshold.
func (c *VectorCollections) Search(ctx context.Context, name string, vector []float32, limit int, threshold float32) ([]*storage.ScoredPoint, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateCollectionName(name); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []*storage.ScoredPoint
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		config, err := readCollectionConfig(tx, name)
		if err != nil {
			return err
		}
		if len(vector) != config.Dimension {
			return fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
				storage.ErrDimensionMismatch, len(vector), name, config.Dimension)
		}
		query := normalizeVector(vector)

		return scanPoints(ctx, tx, name, func(point *storage.Point) error {
			similarity := dotProduct(query, point.Vector)
			if similarity >= threshold {
				results = append(results, &storage.ScoredPoint{Point: point, Score: similarity})
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, keeping scan order for ties
	slices.SortStableFunc(results, func(a, b *storage.ScoredPoint) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SetPayload merges the given keys into an existing point's payload.
func (c *VectorCollections) SetPayload(ctx context.Context, name, id string, payload map[string]any) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := validateCollectionName(name); err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readCollectionConfig(tx, name); err != nil {
			return err
		}

		key := makePointKey(name, id)
		point, err := readPoint(tx, key)
		if err != nil {
			return err
		}
		if point == nil {
			return fmt.Errorf("%w: %s/%s", storage.ErrNotFound, name, id)
		}

		if point.Payload == nil {
			point.Payload = make(map[string]any, len(payload))
		}
		maps.Copy(point.Payload, payload)

		value, err := storage.MarshalPoint(point)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Scroll calls fn for every point in the collection in ID order.
func (c *VectorCollections) Scroll(ctx context.Context, name string, fn func(*storage.Point) error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := validateCollectionName(name); err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readCollectionConfig(tx, name); err != nil {
			return err
		}
		return scanPoints(ctx, tx, name, fn)
	}, false)
}

// Count returns the number of points in the collection.
func (c *VectorCollections) Count(ctx context.Context, name string) (int, error) {
	info, err := c.CollectionInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	return info.Points, nil
}

func (c *VectorCollections) checkOpen() error {
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

func compareConfig(name string, existing, requested storage.CollectionConfig) error {
	if existing != requested {
		return fmt.Errorf("%w: collection %s has dimension=%d distance=%s, requested dimension=%d distance=%s",
			storage.ErrCollectionConfigMismatch, name,
			existing.Dimension, existing.Distance, requested.Dimension, requested.Distance)
	}
	return nil
}

func readCollectionConfig(tx *badger.Txn, name string) (storage.CollectionConfig, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return storage.CollectionConfig{}, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
		}
		return storage.CollectionConfig{}, err
	}

	var config storage.CollectionConfig
	err = item.Value(func(val []byte) error {
		var err error
		config, err = storage.UnmarshalCollectionConfig(val)
		return err
	})
	return config, err
}

// readPoint returns nil without error when the key doesn't exist.
func readPoint(tx *badger.Txn, key []byte) (*storage.Point, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var point *storage.Point
	err = item.Value(func(val []byte) error {
		var err error
		point, err = storage.UnmarshalPoint(val)
		return err
	})
	return point, err
}

func scanPoints(ctx context.Context, tx *badger.Txn, name string, fn func(*storage.Point) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePointPrefix(name)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var point *storage.Point
		err := iter.Item().Value(func(val []byte) error {
			var err error
			point, err = storage.UnmarshalPoint(val)
			return err
		})
		if err != nil {
			return err
		}
		if err := fn(point); err != nil {
			return err
		}
	}
	return nil
}

func countPoints(ctx context.Context, tx *badger.Txn, name string) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePointPrefix(name)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
