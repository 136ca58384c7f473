// Package kb implements the HTML-aware knowledge-base ingester: it walks
// benefit-table HTML files, atomizes them into KBChunk records, embeds
// them once via an llmclient.EmbeddingsClient, and persists the result in
// a fingerprinted on-disk cache so subsequent startups skip re-embedding
// unchanged source files.
package kb

import "hmo-benefits-core/internal/profile"

// ChunkKind labels the atomization strategy that produced a KBChunk.
type ChunkKind string

const (
	KindBenefit ChunkKind = "benefit"
	KindContact ChunkKind = "contact"
	KindService ChunkKind = "service"
	KindBlurb   ChunkKind = "blurb"
)

// KBChunk is one atomic retrievable fact extracted from the source HTML.
type KBChunk struct {
	Text      string        `json:"text"`
	SourceURI string        `json:"source_uri"`
	HMO       profile.HMO   `json:"hmo,omitempty"`
	TierTags  []profile.Tier `json:"tier_tags,omitempty"`
	Section   string        `json:"section,omitempty"`
	Service   string        `json:"service,omitempty"`
	Kind      ChunkKind     `json:"kind"`
}

// KBItem is the read-only view callers receive from Retriever.Search; it
// keeps the public surface stable even if KBChunk's internal shape grows.
type KBItem struct {
	Text      string
	SourceURI string
	HMO       profile.HMO
	TierTags  []profile.Tier
	Section   string
	Service   string
	Kind      ChunkKind
}

func (c KBChunk) toItem() KBItem {
	return KBItem{
		Text:      c.Text,
		SourceURI: c.SourceURI,
		HMO:       c.HMO,
		TierTags:  c.TierTags,
		Section:   c.Section,
		Service:   c.Service,
		Kind:      c.Kind,
	}
}

func hasTier(tags []profile.Tier, t profile.Tier) bool {
	for _, tag := range tags {
		if tag == t {
			return true
		}
	}
	return false
}
