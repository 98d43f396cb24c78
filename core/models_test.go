package core

import (
	"testing"

	"github.com/google/uuid"
)

func TestDocumentIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := DocumentIDFromContent(tt.content)
			id2 := DocumentIDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("DocumentIDFromContent() produced different IDs for same content: %s vs %s", id1, id2)
			}
			if len(id1) != 32 {
				t.Errorf("DocumentIDFromContent() length = %d, want 32", len(id1))
			}
		})
	}
}

func TestDocumentIDFromContent_Different(t *testing.T) {
	id1 := DocumentIDFromContent("content1")
	id2 := DocumentIDFromContent("content2")

	if id1 == id2 {
		t.Errorf("DocumentIDFromContent() produced same ID for different content")
	}
}

func TestNewRecordID(t *testing.T) {
	id1 := NewRecordID()
	id2 := NewRecordID()

	if id1 == id2 {
		t.Errorf("NewRecordID() returned duplicate IDs")
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Errorf("NewRecordID() = %q, not a UUID: %v", id1, err)
	}
}

func TestDocuments(t *testing.T) {
	a := &Document{ID: "a"}
	b := &Document{ID: "b"}

	docs := Documents([]*ScoredDocument{{Document: b, Score: 0.9}, {Document: a, Score: 0.1}})

	if len(docs) != 2 || docs[0] != b || docs[1] != a {
		t.Errorf("Documents() did not preserve order: %v", docs)
	}
	if got := Documents(nil); len(got) != 0 {
		t.Errorf("Documents(nil) = %v, want empty", got)
	}
}
