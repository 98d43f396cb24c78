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


package storage

import (
	"encoding/json"
	"fmt"
)

// MarshalPoint serializes a Point to bytes.
func MarshalPoint(point *Point) ([]byte, error) {
	data, err := json.Marshal(point)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalPoint deserializes a Point from bytes.
func UnmarshalPoint(data []byte) (*Point, error) {
	var point Point
	if err := json.Unmarshal(data, &point); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &point, nil
}

// MarshalCollectionConfig serializes a CollectionConfig to bytes.
func MarshalCollectionConfig(config CollectionConfig) ([]byte, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalCollectionConfig deserializes a CollectionConfig from bytes.
func UnmarshalCollectionConfig(data []byte) (CollectionConfig, error) {
	var config CollectionConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return CollectionConfig{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return config, nil
}
