package kb

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	hmoerrors "hmo-benefits-core/internal/errors"
	"hmo-benefits-core/internal/kb/pgcache"
	"hmo-benefits-core/internal/llmclient"
	"hmo-benefits-core/internal/profile"
)

// PostgresMirror is the subset of pgcache.Store that HtmlKB needs to keep
// an optional Postgres replica of the index in sync. Kept as an interface
// so tests can substitute a fake instead of a live database.
type PostgresMirror interface {
	EnsureSchema(ctx context.Context, embeddingDims int) error
	Replace(ctx context.Context, fingerprint string, chunks []pgcache.Chunk) error
}

// KnowledgeBase is the minimal interface a searchable KB implementation
// exposes to internal/retriever. Implementations must be safe for
// concurrent Search calls once constructed.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, hmo profile.HMO, tier profile.Tier, topK int) ([]KBItem, error)
	SearchWithVector(qv []float32, hmo profile.HMO, tier profile.Tier, topK int) []KBItem
	Fingerprint() string
	Size() int
}

// HtmlKB extracts chunks from HTML benefit tables/lists/paragraphs,
// embeds them once, and answers similarity searches biased by HMO/tier.
type HtmlKB struct {
	kbDir                string
	cacheDir             string
	embeddingsDeployment string
	cacheSchemaVersion   string
	embeddingBatchSize   int
	blurbSplitCharMin    int
	hmoMismatchBias      float64
	tierMatchBias        float64

	embedder llmclient.EmbeddingsClient
	splitter BlurbSplitter
	pgMirror PostgresMirror
	logger   *zap.Logger

	fingerprint string
	chunks      []KBChunk
	vectors     [][]float32
}

// Options configures HtmlKB construction; all fields are required except
// Splitter (nil disables sentence-level blurb splitting), PGMirror and
// Logger.
type Options struct {
	KBDir                string
	CacheDir             string
	EmbeddingsDeployment string
	CacheSchemaVersion   string
	EmbeddingBatchSize   int
	BlurbSplitCharMin    int
	HMOMismatchBias      float64
	TierMatchBias        float64
	Splitter             BlurbSplitter
	// PGMirror, if set, receives a replica of the built index (chunks +
	// vectors) in Postgres whenever the index is loaded or rebuilt. Nil
	// disables the secondary persistence layer entirely.
	PGMirror PostgresMirror
	Logger   *zap.Logger
}

// New builds (or loads from cache) the knowledge base rooted at opts.KBDir.
func New(ctx context.Context, embedder llmclient.EmbeddingsClient, opts Options) (*HtmlKB, error) {
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating kb cache dir: %w", err)
	}

	kb := &HtmlKB{
		kbDir:                opts.KBDir,
		cacheDir:             opts.CacheDir,
		embeddingsDeployment: opts.EmbeddingsDeployment,
		cacheSchemaVersion:   opts.CacheSchemaVersion,
		embeddingBatchSize:   opts.EmbeddingBatchSize,
		blurbSplitCharMin:    opts.BlurbSplitCharMin,
		hmoMismatchBias:      opts.HMOMismatchBias,
		tierMatchBias:        opts.TierMatchBias,
		embedder:             embedder,
		splitter:             opts.Splitter,
		pgMirror:             opts.PGMirror,
		logger:               opts.Logger,
	}

	manifest, err := buildManifest(opts.KBDir)
	if err != nil {
		return nil, fmt.Errorf("scanning kb dir: %w", err)
	}
	kb.fingerprint = fingerprintManifest(kb.cacheSchemaVersion, kb.embeddingsDeployment, manifest)
	path := cachePath(kb.cacheDir, kb.fingerprint)

	if payload, err := loadCache(path, kb.cacheSchemaVersion, kb.embeddingsDeployment); err == nil {
		kb.chunks = payload.Chunks
		kb.vectors = payload.Vectors
		if kb.logger != nil {
			kb.logger.Info("loaded kb cache", zap.String("fingerprint", kb.fingerprint), zap.Int("chunks", len(kb.chunks)))
		}
		kb.mirrorToPostgres(ctx)
		return kb, nil
	} else if kb.logger != nil && !hmoerrors.IsCacheMismatch(err) && !os.IsNotExist(err) {
		kb.logger.Warn("kb cache load failed, rebuilding", zap.Error(err))
	}

	if err := kb.buildAndCache(ctx, path, manifest); err != nil {
		return nil, err
	}
	kb.mirrorToPostgres(ctx)
	return kb, nil
}

// mirrorToPostgres replicates the currently-loaded chunks/vectors into the
// optional Postgres secondary cache. Failures here are logged and
// swallowed rather than propagated: the on-disk cache is the source of
// truth and the service must still start without Postgres available.
func (kb *HtmlKB) mirrorToPostgres(ctx context.Context) {
	if kb.pgMirror == nil || len(kb.chunks) == 0 {
		return
	}

	dims := len(kb.vectors[0])
	if err := kb.pgMirror.EnsureSchema(ctx, dims); err != nil {
		if kb.logger != nil {
			kb.logger.Warn("kb postgres mirror: ensure schema failed", zap.Error(err))
		}
		return
	}

	rows := make([]pgcache.Chunk, len(kb.chunks))
	for i, c := range kb.chunks {
		rows[i] = pgcache.Chunk{
			SourceURI: c.SourceURI,
			Section:   c.Section,
			Service:   c.Service,
			HMO:       c.HMO,
			TierTags:  c.TierTags,
			Kind:      string(c.Kind),
			Text:      c.Text,
			Embedding: kb.vectors[i],
		}
	}
	if err := kb.pgMirror.Replace(ctx, kb.fingerprint, rows); err != nil {
		if kb.logger != nil {
			kb.logger.Warn("kb postgres mirror: replace failed", zap.Error(err))
		}
		return
	}
	if kb.logger != nil {
		kb.logger.Info("mirrored kb index to postgres", zap.String("fingerprint", kb.fingerprint), zap.Int("chunks", len(rows)))
	}
}

func (kb *HtmlKB) buildAndCache(ctx context.Context, path string, manifest []manifestEntry) error {
	var chunks []KBChunk
	for _, m := range manifest {
		raw, err := os.ReadFile(m.Path)
		if err != nil {
			if kb.logger != nil {
				kb.logger.Warn("skipping unreadable kb source file", zap.String("path", m.Path), zap.Error(err))
			}
			continue
		}
		doc, err := html.Parse(bytes.NewReader(raw))
		if err != nil {
			if kb.logger != nil {
				kb.logger.Warn("skipping unparsable kb source file", zap.String("path", m.Path), zap.Error(err))
			}
			continue
		}
		chunks = append(chunks, kb.extractChunksFromHTML(m.Path, doc)...)
	}
	kb.chunks = chunks

	var vectors [][]float32
	if len(chunks) > 0 {
		payloads := make([]string, len(chunks))
		for i, c := range chunks {
			payloads[i] = normalizeForEmbedding(c)
		}
		var err error
		vectors, err = kb.embedder.EmbedTexts(ctx, payloads, kb.embeddingBatchSize)
		if err != nil {
			return hmoerrors.WrapErrorf(hmoerrors.ErrUpstream, "embedding kb chunks: %v", err)
		}
	}
	kb.vectors = vectors

	payload := cachePayload{
		FormatVersion:        cacheFormatVersion,
		CacheSchemaVersion:   kb.cacheSchemaVersion,
		EmbeddingsDeployment: kb.embeddingsDeployment,
		Manifest:             manifest,
		Chunks:               kb.chunks,
		Vectors:              kb.vectors,
	}
	if err := saveCache(path, payload); err != nil {
		if kb.logger != nil {
			kb.logger.Warn("failed to persist kb cache", zap.Error(err))
		}
	}
	if kb.logger != nil {
		kb.logger.Info("built kb index", zap.String("fingerprint", kb.fingerprint), zap.Int("chunks", len(kb.chunks)))
	}
	return nil
}

// Search embeds query and returns up to topK chunks ranked by cosine
// similarity, multiplicatively biased by HMO mismatch and tier match.
// It embeds query itself on every call; internal/retriever wraps this
// with an LRU cache for repeated queries and should be preferred by
// callers that want that caching.
func (kb *HtmlKB) Search(ctx context.Context, query string, hmo profile.HMO, tier profile.Tier, topK int) ([]KBItem, error) {
	if len(kb.chunks) == 0 {
		return nil, nil
	}

	vectors, err := kb.embedder.EmbedTexts(ctx, []string{query}, 1)
	if err != nil {
		return nil, hmoerrors.WrapErrorf(hmoerrors.ErrUpstream, "embedding query: %v", err)
	}
	return kb.SearchWithVector(vectors[0], hmo, tier, topK), nil
}

// SearchWithVector scores every chunk against a precomputed query
// embedding, skipping the embedding call entirely. Exported so
// internal/retriever can cache embeddings across repeated queries.
func (kb *HtmlKB) SearchWithVector(qv []float32, hmo profile.HMO, tier profile.Tier, topK int) []KBItem {
	if len(kb.chunks) == 0 {
		return nil
	}

	type scored struct {
		score float64
		chunk KBChunk
	}
	results := make([]scored, 0, len(kb.chunks))
	for i, ch := range kb.chunks {
		score := cosine(qv, kb.vectors[i])
		if hmo != "" && ch.HMO != "" && ch.HMO != hmo {
			score *= kb.hmoMismatchBias
		}
		if tier != "" && hasTier(ch.TierTags, tier) {
			score *= kb.tierMatchBias
		}
		results = append(results, scored{score: score, chunk: ch})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if topK < 0 {
		topK = 0
	}
	if topK > len(results) {
		topK = len(results)
	}
	out := make([]KBItem, topK)
	for i := 0; i < topK; i++ {
		out[i] = results[i].chunk.toItem()
	}
	return out
}

// Fingerprint identifies the currently-loaded index build (source file
// manifest + deployment + schema version).
func (kb *HtmlKB) Fingerprint() string { return kb.fingerprint }

// Size is the number of indexed chunks.
func (kb *HtmlKB) Size() int { return len(kb.chunks) }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	na = math.Sqrt(na)
	nb = math.Sqrt(nb)
	if na == 0 {
		na = 1.0
	}
	if nb == 0 {
		nb = 1.0
	}
	return dot / (na * nb)
}
