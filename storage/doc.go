// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the vector collection abstraction used by recall.
//
// A collection is a named set of points. Each point carries an identifier, a
// fixed-length embedding and a free-form JSON payload. Both the semantic
// answer cache and the document corpus live in collections, so the cache and
// retrieval packages depend only on the VectorCollection interface defined
// here and never on a concrete backend.
//
// # Constructor Return Type Pattern
//
// Public constructors return the interface type:
//
//	collections, err := badger.NewVectorCollections(backend)  // returns storage.VectorCollection
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	collections, err := badger.NewVectorCollections(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer collections.Close()
//
//	created, err := collections.CreateCollectionIfAbsent(ctx, "semantic_cache",
//	    storage.CollectionConfig{Dimension: 1536, Distance: storage.DistanceCosine})
//
// Use in tests with in-memory storage:
//
//	collections, err := badger.NewMemoryCollections()
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation. Pass
// context.Background() for operations without specific timeout requirements.
package storage
