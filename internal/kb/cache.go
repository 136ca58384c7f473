package kb

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	hmoerrors "hmo-benefits-core/internal/errors"
)

// cacheFormatVersion identifies the gob payload shape. Bump it whenever a
// field is added or removed from cachePayload so old caches are rejected
// instead of decoded incorrectly.
const cacheFormatVersion = "1"

type manifestEntry struct {
	Path      string
	Size      int64
	ModTimeNs int64
}

type cachePayload struct {
	FormatVersion        string
	CacheSchemaVersion    string
	EmbeddingsDeployment  string
	Manifest              []manifestEntry
	Chunks                []KBChunk
	Vectors               [][]float32
}

func init() {
	gob.Register(KBChunk{})
}

// buildManifest lists every .html file under kbDir with its size and
// modification time, sorted by path for deterministic fingerprinting.
func buildManifest(kbDir string) ([]manifestEntry, error) {
	var out []manifestEntry
	err := filepath.WalkDir(kbDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".html" {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		out = append(out, manifestEntry{
			Path:      abs,
			Size:      info.Size(),
			ModTimeNs: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// fingerprintManifest derives a stable cache key from the format version,
// the configured cache schema version, the embeddings deployment name, and
// every source file's path/size/mtime. Any change to the inputs below
// invalidates the cache and forces a rebuild.
func fingerprintManifest(cacheSchemaVersion, embeddingsDeployment string, manifest []manifestEntry) string {
	h := sha256.New()
	fmt.Fprintf(h, "ver:%s\n", cacheFormatVersion)
	fmt.Fprintf(h, "schema:%s\n", cacheSchemaVersion)
	fmt.Fprintf(h, "deploy:%s\n", embeddingsDeployment)
	for _, m := range manifest {
		fmt.Fprintf(h, "%s|%d|%d\n", m.Path, m.Size, m.ModTimeNs)
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

func cachePath(cacheDir, fingerprint string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("kb_%s.gob", fingerprint))
}

func loadCache(path, cacheSchemaVersion, embeddingsDeployment string) (cachePayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return cachePayload{}, err
	}
	defer f.Close()

	var payload cachePayload
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return cachePayload{}, hmoerrors.WrapErrorf(hmoerrors.ErrCacheMismatch, "decoding kb cache: %v", err)
	}
	if payload.FormatVersion != cacheFormatVersion ||
		payload.CacheSchemaVersion != cacheSchemaVersion ||
		payload.EmbeddingsDeployment != embeddingsDeployment {
		_ = os.Remove(path)
		return cachePayload{}, hmoerrors.ErrCacheMismatch
	}
	return payload, nil
}

func saveCache(path string, payload cachePayload) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("encoding kb cache: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
