// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package retrieval finds the documents most relevant to a question.
//
// HybridRetriever runs two retrievers concurrently over the same corpus:
//
//   - dense: embeds the question and asks the document index for its nearest
//     neighbours by cosine similarity
//   - lexical: a bleve match query against an in-memory index built from
//     the corpus once at construction
//
// Their ranked lists are merged with weighted reciprocal rank fusion
// (see Fuse). The default weights favour the dense list 0.7 to 0.3 and each
// retriever contributes its top 3 documents.
//
// A retriever over an empty corpus cannot be built; NewHybridRetriever
// returns core.ErrEmptyIndex instead.
package retrieval
