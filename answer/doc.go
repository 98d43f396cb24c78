// Package answer orchestrates answering a single question.
//
// A question first goes to the semantic cache. On a hit the stored answer is
// returned as one fragment and the record's timestamp refreshed. On a miss,
// or when the cache cannot be reached, documents are retrieved and an answer
// is generated and streamed to the caller fragment by fragment. Once the
// stream has been fully consumed, a genuine answer is stored back into the
// cache so the next similar question is a hit.
//
// Nothing is stored when generation fails, when the model reports that the
// context did not contain the answer, when the caller stops early or when the
// context is cancelled.
package answer
