// Package cache implements the semantic answer cache.
//
// Answers are stored as points in a vector collection, keyed by the embedding
// of the question that produced them. A lookup embeds the incoming question
// and returns the single nearest stored answer when its cosine similarity
// reaches the configured threshold (0.8 by default, inclusive).
//
// Records are never deleted here. A hit refreshes the record's timestamp so
// that an external retention job can expire answers nobody asks for.
//
//	c, err := cache.NewSemanticCache(collections, embedder,
//	    cache.WithCollection("semantic_cache"),
//	    cache.WithDimension(1536),
//	)
//	res := c.Lookup(ctx, "What is the refund window?")
//	if res.Status == cache.LookupHit {
//	    fmt.Println(res.Answer)
//	}
//
// Every storage or embedding failure is reported as wrapping
// core.ErrCacheUnavailable so callers can fall back to generating an answer.
package cache
