package retriever

import (
	"context"
	"testing"

	"hmo-benefits-core/internal/kb"
	"hmo-benefits-core/internal/profile"
)

type fakeKB struct {
	items      []kb.KBItem
	lastVector []float32
	calls      int
}

func (f *fakeKB) Search(ctx context.Context, query string, hmo profile.HMO, tier profile.Tier, topK int) ([]kb.KBItem, error) {
	return f.items, nil
}

func (f *fakeKB) SearchWithVector(qv []float32, hmo profile.HMO, tier profile.Tier, topK int) []kb.KBItem {
	f.calls++
	f.lastVector = qv
	if topK > len(f.items) {
		topK = len(f.items)
	}
	return f.items[:topK]
}

func (f *fakeKB) Fingerprint() string { return "fake-fingerprint" }
func (f *fakeKB) Size() int           { return len(f.items) }

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestSearchCachesRepeatedQueryEmbeddings(t *testing.T) {
	fk := &fakeKB{items: []kb.KBItem{{Text: "a"}, {Text: "b"}}}
	emb := &countingEmbedder{}

	r, err := New(fk, emb, 16, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := r.Search(context.Background(), "what is covered", "", "", 2); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := r.Search(context.Background(), "what is covered", "", "", 2); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if emb.calls != 1 {
		t.Fatalf("expected embedder to be called once due to cache hit, got %d calls", emb.calls)
	}
	if fk.calls != 2 {
		t.Fatalf("expected underlying KB to be searched on every call, got %d", fk.calls)
	}
}

func TestSearchEmbedsDistinctQueriesSeparately(t *testing.T) {
	fk := &fakeKB{items: []kb.KBItem{{Text: "a"}}}
	emb := &countingEmbedder{}

	r, err := New(fk, emb, 16, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := r.Search(context.Background(), "first query", "", "", 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := r.Search(context.Background(), "second query", "", "", 1); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if emb.calls != 2 {
		t.Fatalf("expected 2 embedder calls for 2 distinct queries, got %d", emb.calls)
	}
}

func TestSearchWithZeroCacheSizeNeverCaches(t *testing.T) {
	fk := &fakeKB{items: []kb.KBItem{{Text: "a"}}}
	emb := &countingEmbedder{}

	r, err := New(fk, emb, 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := r.Search(context.Background(), "same query", "", "", 1); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if emb.calls != 3 {
		t.Fatalf("expected embedder called every time with caching disabled, got %d", emb.calls)
	}
}

func TestFingerprintAndSizeForwardToUnderlyingKB(t *testing.T) {
	fk := &fakeKB{items: []kb.KBItem{{Text: "a"}, {Text: "b"}, {Text: "c"}}}
	emb := &countingEmbedder{}
	r, err := New(fk, emb, 4, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Fingerprint() != "fake-fingerprint" {
		t.Errorf("expected forwarded fingerprint, got %q", r.Fingerprint())
	}
	if r.Size() != 3 {
		t.Errorf("expected forwarded size 3, got %d", r.Size())
	}
}
