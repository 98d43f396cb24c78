// Package docindex holds the document corpus in memory for retrieval.
//
// An Index is loaded once from a vector collection at process start and is
// read-only afterwards. It exposes the full document list (the lexical index
// is built from it) and an approximate nearest-neighbour search over the
// document embeddings backed by an HNSW graph.
//
//	index, err := docindex.Open(ctx, collections, "documents")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hits, err := index.Search(ctx, queryVector, 3)
package docindex
