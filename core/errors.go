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


package core

import "errors"

// Error taxonomy shared by every layer of the answering pipeline.
var (
	// ErrConfiguration indicates missing credentials, model names or other
	// startup settings. It is fatal and only returned from constructors.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptyIndex indicates the document collection holds zero documents
	// when a retriever is constructed.
	ErrEmptyIndex = errors.New("document index is empty")

	// ErrCacheUnavailable indicates the embedder or vector collection failed
	// during a cache lookup, refresh or store.
	ErrCacheUnavailable = errors.New("semantic cache unavailable")

	// ErrGenerationFailure indicates the language model call failed or
	// returned a malformed stream.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrRetrievalFailure indicates the hybrid retriever could not produce context.
	ErrRetrievalFailure = errors.New("retrieval failed")

	// ErrEmptyQuestion indicates a blank question was submitted.
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// Domain validation errors
var (
	// ErrInvalidCacheRecord indicates a CacheRecord failed validation.
	ErrInvalidCacheRecord = errors.New("invalid cache record")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyVector indicates a record has no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidTimestamp indicates a timestamp is zero.
	ErrInvalidTimestamp = errors.New("timestamp must be set")
)
