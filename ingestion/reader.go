package ingestion

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/recall/core"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 * 1024 * 1024

type jsonDocument struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// ReadJSONL reads one JSON document per line:
//
//	{"id": "optional", "content": "text", "metadata": {"source": "faq.md"}}
//
// Blank lines are skipped. A missing id is derived from the content, so
// re-ingesting the same text replaces rather than duplicates it.
func ReadJSONL(r io.Reader) ([]*core.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var docs []*core.Document
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var raw jsonDocument
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", core.ErrInvalidDocument, line, err)
		}

		doc := &core.Document{
			ID:       raw.ID,
			Content:  raw.Content,
			Metadata: raw.Metadata,
		}
		if err := core.ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if doc.ID == "" {
			doc.ID = core.DocumentIDFromContent(doc.Content)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	return docs, nil
}
