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


// Package recall wires the semantic cache, hybrid retriever and answer
// generator into a single question-answering Service.
package recall

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/answer"
	"github.com/poiesic/recall/cache"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/docindex"
	"github.com/poiesic/recall/generate"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/retrieval"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

// Service holds the long-lived handles shared by every request.
// It is built once at startup and is safe for concurrent use.
type Service struct {
	collections  storage.VectorCollection
	provider     ai.AIProvider
	cache        *cache.SemanticCache
	retriever    *retrieval.HybridRetriever
	orchestrator *answer.Orchestrator
	ownsStorage  bool
	ownsProvider bool
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	provider    ai.AIProvider
	collections storage.VectorCollection
	logger      *slog.Logger
}

// WithProvider supplies the AI provider instead of building an OpenAI one
// from the configuration. The caller keeps ownership.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithCollections supplies the vector collection service instead of opening
// the badger database at the configured path. The caller keeps ownership.
func WithCollections(collections storage.VectorCollection) Option {
	return func(o *serviceOptions) {
		o.collections = collections
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// OpenCollections opens the badger-backed collection service at path.
func OpenCollections(path string) (storage.VectorCollection, error) {
	backend, err := badger.OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return badger.NewVectorCollections(backend)
}

// NewService builds a Service from cfg.
// The document collection must already hold documents: an empty corpus
// fails with core.ErrEmptyIndex rather than serving answers from nothing.
func NewService(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		collections: options.collections,
		provider:    options.provider,
		logger:      options.logger.With("component", "recall"),
	}

	if s.collections == nil {
		collections, err := OpenCollections(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		s.collections = collections
		s.ownsStorage = true
	}

	if s.provider == nil {
		provider, err := openai.NewProvider(cfg.AIConfig())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.provider = provider
		s.ownsProvider = true
	}

	if err := s.build(ctx, cfg, options.logger); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	embedder := s.provider.Embedder()
	if cfg.OpenAI.EmbeddingCacheSize > 0 {
		embedder = ai.NewCachedEmbedder(embedder, cfg.OpenAI.EmbeddingCacheSize)
	}

	semanticCache, err := cache.NewSemanticCache(s.collections, embedder,
		cache.WithCollection(cfg.Cache.Collection),
		cache.WithSimilarityThreshold(cfg.Cache.SimilarityThreshold),
		cache.WithDimension(cfg.OpenAI.EmbeddingDimensions),
		cache.WithLogger(logger.With("component", "semantic-cache")),
	)
	if err != nil {
		return err
	}
	s.cache = semanticCache

	index, err := docindex.Open(ctx, s.collections, cfg.Retrieval.Collection)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	retrieverOpts := []retrieval.Option{
		retrieval.WithDenseK(cfg.Retrieval.DenseK),
		retrieval.WithSparseK(cfg.Retrieval.SparseK),
		retrieval.WithWeights(cfg.Retrieval.DenseWeight, cfg.Retrieval.SparseWeight),
		retrieval.WithLogger(logger.With("component", "hybrid-retriever")),
	}
	if cfg.Retrieval.MaxResults > 0 {
		retrieverOpts = append(retrieverOpts, retrieval.WithMaxResults(cfg.Retrieval.MaxResults))
	}
	retriever, err := retrieval.NewHybridRetriever(index, embedder, retrieverOpts...)
	if err != nil {
		return err
	}
	s.retriever = retriever

	policy, err := generate.ParsePolicy(cfg.Generation.FollowUpPolicy)
	if err != nil {
		return err
	}
	generator, err := generate.NewGenerator(s.provider.ChatModel(),
		generate.WithPolicy(policy),
		generate.WithEnquiryFormURL(cfg.Generation.EnquiryFormURL),
		generate.WithLogger(logger.With("component", "generator")),
	)
	if err != nil {
		return err
	}

	orchestrator, err := answer.NewOrchestrator(semanticCache, retriever, generator,
		answer.WithLogger(logger.With("component", "orchestrator")),
	)
	if err != nil {
		return err
	}
	s.orchestrator = orchestrator

	s.logger.Info("service ready", "documents", index.Len(), "threshold", semanticCache.Threshold())
	return nil
}

// AnswerQuestion streams the answer to question as text fragments.
// Failures surface as a single "Error: ..." fragment.
func (s *Service) AnswerQuestion(ctx context.Context, question string) iter.Seq[string] {
	return s.orchestrator.AnswerQuestion(ctx, question)
}

// Answer streams the answer to question, reporting failures as errors.
func (s *Service) Answer(ctx context.Context, question string) iter.Seq2[string, error] {
	return s.orchestrator.Answer(ctx, question)
}

// Cache returns the semantic cache, for listing records.
func (s *Service) Cache() *cache.SemanticCache {
	return s.cache
}

// Close releases the retriever and whatever the service opened itself.
func (s *Service) Close() error {
	var errs []error
	if s.retriever != nil {
		if err := s.retriever.Close(); err != nil {
			s.logger.Error("error closing retriever", "err", err)
			errs = append(errs, err)
		}
	}
	if s.ownsProvider && s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.ownsStorage && s.collections != nil {
		if err := s.collections.Close(); err != nil {
			s.logger.Error("error closing storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewIngestionPipeline creates a pipeline writing to the configured
// document collection with the configured embedding dimension.
func NewIngestionPipeline(cfg *config.Config, collections storage.VectorCollection, embedder ai.Embedder, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithCollection(cfg.Retrieval.Collection),
		ingestion.WithDimension(cfg.OpenAI.EmbeddingDimensions),
	}
	return ingestion.NewPipeline(collections, embedder, append(base, opts...)...)
}
