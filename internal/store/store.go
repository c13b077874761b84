// Package store implements the persistent document vector store.
//
// A store lives in a single directory: a SQLite index with one row per
// chunk, the original document text under raw/, and one text blob per chunk
// under chunks/. Search is a brute-force cosine scan over every stored
// embedding; there is deliberately no index structure, so a query costs
// O(chunks * dimensions) and stays simple enough to audit.
package store

import "context"

// Store is the three-operation contract consumed by the CLI, the RAG layer
// and the evaluation harness.
type Store interface {
	// Put stores text as the document name: raw blob, chunks, one
	// embedding per chunk. Re-adding an existing name is a no-op.
	Put(ctx context.Context, name, text string) error

	// Delete removes every record and blob belonging to name. Deleting an
	// absent name is a no-op, not an error.
	Delete(ctx context.Context, name string) error

	// Search embeds query, scores it against every stored embedding and
	// returns results ordered by descending similarity. k > 0 truncates to
	// the top k; k <= 0 returns the full ranked sequence.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Documents lists all stored documents.
	Documents(ctx context.Context) ([]DocumentRecord, error)

	// GetDocument returns the record for name, or nil if absent.
	GetDocument(ctx context.Context, name string) (*DocumentRecord, error)

	// Stats returns store-wide counters.
	Stats(ctx context.Context) (*StoreStats, error)

	// Close flushes and releases the underlying database.
	Close() error
}

// DocumentRecord describes one stored document.
type DocumentRecord struct {
	Name       string `json:"name"`
	Hash       string `json:"hash"` // xxhash of the original text
	Size       int64  `json:"size"` // original text length in bytes
	ChunkCount int    `json:"chunk_count"`
	AddedAt    string `json:"added_at"`
}

// SearchResult is one ranked chunk.
type SearchResult struct {
	Document string  `json:"document"`
	ChunkID  string  `json:"chunk_id"`
	Score    float64 `json:"score"` // cosine similarity, [-1, 1]
	Content  string  `json:"content"`
}

// StoreStats contains store-wide counters.
type StoreStats struct {
	DocumentCount int   `json:"document_count"`
	ChunkCount    int   `json:"chunk_count"`
	TotalSize     int64 `json:"total_size"` // sum of original document sizes
	Dimensions    int   `json:"dimensions"` // 0 until the first put
}
