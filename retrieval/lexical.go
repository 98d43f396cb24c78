package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/poiesic/recall/core"
)

const (
	analyzerName = "recall_text"
	contentField = "content"
)

// lexicalDocument is the shape indexed by bleve.
type lexicalDocument struct {
	Content string `json:"content"`
}

// lexicalIndex is a term-matching index over the corpus, scored by bleve.
// It is built once and only read afterwards.
type lexicalIndex struct {
	index bleve.Index
	docs  map[string]*core.Document
}

func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			stopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = analyzerName
	return indexMapping, nil
}

// newLexicalIndex indexes every document in memory.
func newLexicalIndex(docs []*core.Document) (*lexicalIndex, error) {
	indexMapping, err := newIndexMapping()
	if err != nil {
		return nil, err
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create lexical index: %w", err)
	}

	byID := make(map[string]*core.Document, len(docs))
	batch := idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, lexicalDocument{Content: doc.Content}); err != nil {
			idx.Close()
			return nil, fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
		byID[doc.ID] = doc
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &lexicalIndex{index: idx, docs: byID}, nil
}

// search returns up to limit documents ranked by relevance to query.
func (l *lexicalIndex) search(ctx context.Context, query string, limit int) ([]*core.ScoredDocument, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []*core.ScoredDocument{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField(contentField)

	request := bleve.NewSearchRequest(matchQuery)
	request.Size = limit

	result, err := l.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}

	results := make([]*core.ScoredDocument, 0, len(result.Hits))
	for _, hit := range result.Hits {
		doc, ok := l.docs[hit.ID]
		if !ok {
			continue
		}
		results = append(results, &core.ScoredDocument{Document: doc, Score: hit.Score})
	}
	return results, nil
}

func (l *lexicalIndex) close() error {
	return l.index.Close()
}
