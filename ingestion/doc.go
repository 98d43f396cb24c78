// Package ingestion loads documents into the document collection.
//
// The Pipeline embeds documents in batches on a worker pool and upserts
// them, with their embeddings, into a storage.VectorCollection. Documents
// are stored as given; splitting long texts is left to the caller.
//
// ReadJSONL parses the line-delimited input format used by `recall ingest`.
package ingestion
