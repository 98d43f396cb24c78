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


// Package ai provides abstractions for the AI services used by recall.
//
// This package defines interfaces for text embeddings and streaming answer
// generation. Business logic (cache, retrieval, generation) depends on these
// abstractions rather than on a concrete model vendor.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - ChatModel: Streams a completion for a rendered prompt
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder,
// openai.NewChatModel) return INTERFACE types so callers cannot couple to a
// vendor implementation.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockChatModel)
// return CONCRETE types so tests can inject behavior and assert on call counts.
//
//	mockChat := mock.NewMockChatModel("The ", "answer ", "is 42.")
//	count := mockChat.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	    ai.WithChatModel("gpt-4o-mini"),
//	)
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "What is the refund policy?")
//	err = provider.ChatModel().StreamCompletion(ctx, prompt, func(ctx context.Context, chunk string) error {
//	    fmt.Print(chunk)
//	    return nil
//	})
package ai
