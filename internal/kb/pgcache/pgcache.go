// Package pgcache is an optional secondary persistence layer for the
// embedded knowledge-base index: a Postgres replica of the chunks/vectors
// the on-disk gob cache already holds, queryable with pgvector's
// similarity operators for operators who want the index outside the
// process (dashboards, ad-hoc SQL, a second reader process sharing one
// warm index). It is additive; internal/kb's file cache remains the
// source of truth and the only one required for the service to start.
package pgcache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"hmo-benefits-core/internal/profile"
)

// Store replicates a built HtmlKB index into Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and verifies the connection is usable.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening kb pgcache pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging kb pgcache: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// EnsureSchema creates the vector extension, the kb_chunks table and an
// index on its fingerprint column if they do not already exist.
func (s *Store) EnsureSchema(ctx context.Context, embeddingDims int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kb_chunks (
            id BIGSERIAL PRIMARY KEY,
            fingerprint TEXT NOT NULL,
            source_uri TEXT NOT NULL,
            section TEXT,
            service TEXT,
            hmo TEXT,
            tier_tags TEXT[] DEFAULT '{}'::TEXT[],
            kind TEXT NOT NULL,
            text TEXT NOT NULL,
            embedding vector(%d),
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`, embeddingDims),
		`CREATE INDEX IF NOT EXISTS idx_kb_chunks_fingerprint ON kb_chunks(fingerprint)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying kb pgcache schema: %w", err)
		}
	}
	return nil
}

// Chunk is the subset of a knowledge-base chunk replicated into Postgres,
// paired with its embedding vector. Kind mirrors kb.ChunkKind as a plain
// string so this package stays a leaf dependency of internal/kb rather
// than importing it back.
type Chunk struct {
	SourceURI string
	Section   string
	Service   string
	HMO       profile.HMO
	TierTags  []profile.Tier
	Kind      string
	Text      string
	Embedding []float32
}

// Replace clears every row stamped with fingerprint and re-inserts chunks
// under a single transaction, so a reader never observes a half-written
// index.
func (s *Store) Replace(ctx context.Context, fingerprint string, chunks []Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning kb pgcache replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM kb_chunks WHERE fingerprint = $1`, fingerprint); err != nil {
		return fmt.Errorf("clearing stale kb pgcache rows: %w", err)
	}

	for _, c := range chunks {
		tags := make([]string, len(c.TierTags))
		for i, t := range c.TierTags {
			tags[i] = string(t)
		}
		vec := pgvector.NewVector(c.Embedding)
		_, err := tx.Exec(ctx,
			`INSERT INTO kb_chunks
                (fingerprint, source_uri, section, service, hmo, tier_tags, kind, text, embedding)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			fingerprint, c.SourceURI, c.Section, c.Service, string(c.HMO), tags, c.Kind, c.Text, vec,
		)
		if err != nil {
			return fmt.Errorf("inserting kb pgcache row: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// NearestNeighbors runs a cosine-distance similarity search directly in
// Postgres, for callers that want to query the replicated index without
// going through the in-process HtmlKB.
func (s *Store) NearestNeighbors(ctx context.Context, fingerprint string, query []float32, limit int) ([]Chunk, error) {
	qv := pgvector.NewVector(query)
	rows, err := s.pool.Query(ctx,
		`SELECT source_uri, section, service, hmo, tier_tags, kind, text
         FROM kb_chunks
         WHERE fingerprint = $1
         ORDER BY embedding <=> $2
         LIMIT $3`,
		fingerprint, qv, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying kb pgcache neighbors: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var (
			c        Chunk
			hmo      string
			tierTags []string
			kind     string
		)
		if err := rows.Scan(&c.SourceURI, &c.Section, &c.Service, &hmo, &tierTags, &kind, &c.Text); err != nil {
			return nil, fmt.Errorf("scanning kb pgcache row: %w", err)
		}
		c.HMO = profile.HMO(hmo)
		c.Kind = kind
		c.TierTags = make([]profile.Tier, len(tierTags))
		for i, t := range tierTags {
			c.TierTags[i] = profile.Tier(t)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
