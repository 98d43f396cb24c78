package badger

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/storage"
)

// Key prefixes for different data types
const (
	collectionPrefix = "col"
	pointPrefix      = "pt"
)

// validateCollectionName rejects names that would break key prefix scans.
func validateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", storage.ErrInvalidQuery)
	}
	if strings.Contains(name, ":") {
		return fmt.Errorf("%w: collection name %q must not contain ':'", storage.ErrInvalidQuery, name)
	}
	return nil
}

// makeCollectionKey generates the metadata key for a collection.
// Format: col:name
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + ":" + name)
}

// makePointPrefix generates the scan prefix for all points of a collection.
// Format: pt:name:
func makePointPrefix(name string) []byte {
	return []byte(pointPrefix + ":" + name + ":")
}

// makePointKey generates a key for a point by collection and ID.
// Format: pt:name:id
func makePointKey(name, id string) []byte {
	prefix := makePointPrefix(name)
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id)
	return buf
}
