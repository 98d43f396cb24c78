package retrieval

import (
	"slices"

	"github.com/poiesic/recall/core"
)

// DefaultRRFConstant is the standard reciprocal rank fusion smoothing constant.
const DefaultRRFConstant = 60

// RankedList is one retriever's output with its fusion weight.
type RankedList struct {
	Weight    float64
	Documents []*core.ScoredDocument
}

// Fuse merges ranked lists with weighted reciprocal rank fusion:
//
//	score(d) = Σ weight_i / (c + rank_i(d))
//
// Ranks are 1-based. A document missing from a list gets nothing from it.
// Documents are identified by ID; the first occurrence supplies the Document.
// Equal scores keep first-seen order, walking the lists in argument order.
// A non-positive c uses DefaultRRFConstant.
func Fuse(c int, lists ...RankedList) []*core.ScoredDocument {
	if c <= 0 {
		c = DefaultRRFConstant
	}

	total := 0
	for _, list := range lists {
		total += len(list.Documents)
	}

	fused := make([]*core.ScoredDocument, 0, total)
	byID := make(map[string]*core.ScoredDocument, total)

	for _, list := range lists {
		for i, sd := range list.Documents {
			if sd == nil || sd.Document == nil {
				continue
			}
			contribution := list.Weight / float64(c+i+1)

			entry, ok := byID[sd.Document.ID]
			if !ok {
				entry = &core.ScoredDocument{Document: sd.Document}
				byID[sd.Document.ID] = entry
				fused = append(fused, entry)
			}
			entry.Score += contribution
		}
	}

	slices.SortStableFunc(fused, func(a, b *core.ScoredDocument) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	return fused
}
