// Package retriever wraps a kb.KnowledgeBase with an LRU cache of query
// embeddings, so repeated questions within a session (the QNA phase
// re-sends the profile's HMO/tier as retrieval hints on every turn, which
// tends to repeat prior query text) skip a redundant embeddings
// round-trip. The cache key is the exact query string; a query that
// differs in any character is embedded again.
package retriever

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	hmoerrors "hmo-benefits-core/internal/errors"
	"hmo-benefits-core/internal/kb"
	"hmo-benefits-core/internal/llmclient"
	"hmo-benefits-core/internal/profile"
)

// Retriever answers QNA-phase searches against a knowledge base, biasing
// results toward the asking user's HMO and membership tier.
type Retriever struct {
	kb       kb.KnowledgeBase
	embedder llmclient.EmbeddingsClient
	cache    *lru.Cache
	logger   *zap.Logger
}

// New builds a Retriever. cacheSize <= 0 disables the embedding cache.
func New(knowledgeBase kb.KnowledgeBase, embedder llmclient.EmbeddingsClient, cacheSize int, logger *zap.Logger) (*Retriever, error) {
	r := &Retriever{kb: knowledgeBase, embedder: embedder, logger: logger}
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = c
	}
	return r, nil
}

// Search embeds query (using the cache when available) and returns up to
// topK KB items ranked and biased by hmo/tier.
func (r *Retriever) Search(ctx context.Context, query string, hmo profile.HMO, tier profile.Tier, topK int) ([]kb.KBItem, error) {
	qv, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.kb.SearchWithVector(qv, hmo, tier, topK), nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(query); ok {
			if vec, ok := cached.([]float32); ok {
				return vec, nil
			}
		}
	}

	vectors, err := r.embedder.EmbedTexts(ctx, []string{query}, 1)
	if err != nil {
		return nil, hmoerrors.WrapErrorf(hmoerrors.ErrUpstream, "embedding retrieval query: %v", err)
	}
	qv := vectors[0]

	if r.cache != nil {
		r.cache.Add(query, qv)
	}
	return qv, nil
}

// Fingerprint forwards the underlying index's build fingerprint.
func (r *Retriever) Fingerprint() string { return r.kb.Fingerprint() }

// Size forwards the underlying index's chunk count.
func (r *Retriever) Size() int { return r.kb.Size() }
