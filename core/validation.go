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

import (
	"fmt"
	"strings"
)

// ValidateCacheRecord validates a CacheRecord before it is written.
//
// Validation rules:
//   - Question and Answer must not be blank
//   - Vector must not be empty
//   - Timestamp must be set
//
// NOT validated:
//   - ID (assigned by the cache at write time)
//   - Vector dimension (checked by the collection against its configuration)
func ValidateCacheRecord(record *CacheRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidCacheRecord)
	}

	if strings.TrimSpace(record.Question) == "" {
		return fmt.Errorf("%w: question: %w", ErrInvalidCacheRecord, ErrEmptyContent)
	}

	if strings.TrimSpace(record.Answer) == "" {
		return fmt.Errorf("%w: answer: %w", ErrInvalidCacheRecord, ErrEmptyContent)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCacheRecord, ErrEmptyVector)
	}

	if record.Timestamp.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidCacheRecord, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateDocument validates a Document before ingestion.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	return nil
}
