package retrieval

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const stopFilterName = "recall_stop_words"

// Stop words removed from both documents and queries before lexical matching
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "how": true, "i": true, "my": true,
}

func init() {
	_ = registry.RegisterTokenFilter(stopFilterName, stopFilterConstructor)
}

func stopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &stopFilter{}, nil
}

// stopFilter drops stop words. It runs after lowercasing.
type stopFilter struct{}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if !stopWords[string(token.Term)] {
			result = append(result, token)
		}
	}
	return result
}
