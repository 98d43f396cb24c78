// Package generate turns a question and retrieved documents into a streamed answer.
//
// The Generator renders a fixed instruction template with the document
// context and the question, then streams the chat model's output fragment by
// fragment as an iter.Seq2. The model is told to answer only from the
// context and to reply with NotFoundSentinel when the context does not help.
// Classify inspects a finished answer so callers can tell a real answer from
// the not-found and error sentinels.
package generate
