package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// NewRecordID returns a new globally unique identifier for a cache record.
func NewRecordID() string {
	return uuid.NewString()
}

// DocumentIDFromContent generates a deterministic document ID from its content
// using BLAKE2b hashing, so reloading the same text never duplicates it.
func DocumentIDFromContent(text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// CacheRecord is one remembered question/answer pair.
// Only Timestamp changes after creation; it records the last access.
type CacheRecord struct {
	ID        string
	Vector    []float32 // Embedding of Question
	Question  string
	Answer    string
	Timestamp time.Time
}

// Document is a unit of indexed content owned by the document collection.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// ScoredDocument pairs a document with its fused retrieval score.
type ScoredDocument struct {
	Document *Document
	Score    float64
}

// Documents unwraps the scored results, preserving order.
func Documents(scored []*ScoredDocument) []*Document {
	docs := make([]*Document, 0, len(scored))
	for _, s := range scored {
		docs = append(docs, s.Document)
	}
	return docs
}
