package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mfreitag/docvec/internal/chunker"
	"github.com/mfreitag/docvec/internal/embeddings"
	"github.com/mfreitag/docvec/internal/vector"
)

const (
	indexFileName = "index.db"
	rawDirName    = "raw"
	chunksDirName = "chunks"
)

// SQLiteStore implements Store with a SQLite index and filesystem blobs.
//
// Operations are serialized with a mutex; the store supports one caller at a
// time, matching the single-writer model. Both mutating paths keep the index
// as the source of truth: Put writes blobs before committing index rows, and
// Delete drops index rows before removing blobs. A crash mid-operation can
// therefore only leave unindexed blob files under chunks/, which Search
// never reads.
type SQLiteStore struct {
	db        *sql.DB
	rawDir    string
	chunksDir string

	embedder embeddings.Service
	splitter *chunker.Chunker

	mu sync.Mutex
}

// Open initializes the store at dir, creating the directory layout and the
// index schema if absent. The caller owns the returned store and must Close
// it; every failure path inside Open releases what was already acquired.
func Open(dir string, embedder embeddings.Service, splitter *chunker.Chunker) (*SQLiteStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding service is required")
	}
	if splitter == nil {
		return nil, fmt.Errorf("chunker is required")
	}

	rawDir := filepath.Join(dir, rawDirName)
	chunksDir := filepath.Join(dir, chunksDirName)
	for _, d := range []string{dir, rawDir, chunksDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	dbPath := filepath.Join(dir, indexFileName)
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("Opened vector store", "path", dir)

	return &SQLiteStore{
		db:        db,
		rawDir:    rawDir,
		chunksDir: chunksDir,
		embedder:  embedder,
		splitter:  splitter,
	}, nil
}

// Close closes the index database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put stores text as the document name. If the name already exists the call
// is an idempotent no-op. On any failure after blobs have been written, the
// written blobs are removed and the index transaction is rolled back, so no
// partial chunk set ever becomes searchable.
func (s *SQLiteStore) Put(ctx context.Context, name, text string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getDocument(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Debug("Document already stored, skipping", "name", name)
		return nil
	}

	chunks := s.splitter.Chunk(text)

	var vectors [][]float32
	if len(chunks) > 0 {
		vectors, err = s.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			return fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(vectors), len(chunks))
		}
		if err := s.checkDimensions(ctx, vectors); err != nil {
			return err
		}
	}

	// Blobs written so far, removed again if the put fails.
	var written []string
	cleanup := func() {
		for _, path := range written {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Warn("Failed to remove blob during rollback", "path", path, "error", err)
			}
		}
	}

	rawPath := filepath.Join(s.rawDir, name)
	if err := os.WriteFile(rawPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write raw blob: %w", err)
	}
	written = append(written, rawPath)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	hash := fmt.Sprintf("%016x", xxhash.Sum64String(text))
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (name, hash, size, chunk_count)
		VALUES (?, ?, ?, ?)
	`, name, hash, int64(len(text)), len(chunks))
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to insert document: %w", err)
	}

	for i, chunk := range chunks {
		chunkID := uuid.NewString()

		chunkPath := filepath.Join(s.chunksDir, chunkID+".txt")
		if err := os.WriteFile(chunkPath, []byte(chunk), 0o644); err != nil {
			cleanup()
			return fmt.Errorf("failed to write chunk blob: %w", err)
		}
		written = append(written, chunkPath)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vectors (document, chunk_id, embedding)
			VALUES (?, ?, ?)
		`, name, chunkID, serializeEmbedding(vectors[i]))
		if err != nil {
			cleanup()
			return fmt.Errorf("failed to insert vector for chunk %d: %w", i, err)
		}
	}

	if len(vectors) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)
		`, metaDimensionsKey, strconv.Itoa(len(vectors[0])))
		if err != nil {
			cleanup()
			return fmt.Errorf("failed to record dimensions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		cleanup()
		return fmt.Errorf("failed to commit put: %w", err)
	}

	log.Debug("Stored document", "name", name, "chunks", len(chunks), "size", len(text))
	return nil
}

// Delete removes every vector record, chunk blob and the raw blob for name.
// Deleting an absent name is a no-op. Index rows are dropped before the
// blobs so an interrupted delete never leaves Search pointing at missing
// files, only unreferenced blobs on disk.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getDocument(ctx, name)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id FROM vectors WHERE document = ?", name)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	var chunkIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE document = ?", name); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	for _, id := range chunkIDs {
		path := filepath.Join(s.chunksDir, id+".txt")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove chunk blob: %w", err)
		}
	}

	rawPath := filepath.Join(s.rawDir, name)
	if err := os.Remove(rawPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove raw blob: %w", err)
	}

	log.Debug("Deleted document", "name", name, "chunks", len(chunkIDs))
	return nil
}

// Search embeds query and scores it against every stored embedding. Results
// come back ordered by descending similarity; ties keep insertion order.
// The ranking is recomputed in full on every call.
func (s *SQLiteStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Scan in rowid order so equal scores keep a stable rank.
	rows, err := s.db.QueryContext(ctx, "SELECT document, chunk_id, embedding FROM vectors ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		var blob []byte
		if err := rows.Scan(&result.Document, &result.ChunkID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector record: %w", err)
		}

		embedding, err := deserializeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt embedding for chunk %s: %w", result.ChunkID, err)
		}

		result.Score, err = vector.Cosine(queryVec, embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to score chunk %s: %w", result.ChunkID, err)
		}

		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}

	// Chunk text lives outside the index; load it for the returned results
	// only.
	for i := range results {
		content, err := os.ReadFile(filepath.Join(s.chunksDir, results[i].ChunkID+".txt"))
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk blob %s: %w", results[i].ChunkID, err)
		}
		results[i].Content = string(content)
	}

	log.Debug("Search complete", "results", len(results))
	return results, nil
}

// Documents lists all stored documents ordered by name.
func (s *SQLiteStore) Documents(ctx context.Context) ([]DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, hash, size, chunk_count, added_at
		FROM documents ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var records []DocumentRecord
	for rows.Next() {
		var record DocumentRecord
		if err := rows.Scan(&record.Name, &record.Hash, &record.Size, &record.ChunkCount, &record.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetDocument returns the record for name, or nil if absent.
func (s *SQLiteStore) GetDocument(ctx context.Context, name string) (*DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDocument(ctx, name)
}

// getDocument is GetDocument without the lock, for internal callers.
func (s *SQLiteStore) getDocument(ctx context.Context, name string) (*DocumentRecord, error) {
	var record DocumentRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT name, hash, size, chunk_count, added_at
		FROM documents WHERE name = ?
	`, name).Scan(&record.Name, &record.Hash, &record.Size, &record.ChunkCount, &record.AddedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &record, nil
}

// Stats returns store-wide counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats StoreStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size), 0) FROM documents
	`).Scan(&stats.DocumentCount, &stats.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get document stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&stats.ChunkCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk count: %w", err)
	}

	dims, err := s.storedDimensions(ctx)
	if err != nil {
		return nil, err
	}
	stats.Dimensions = dims

	return &stats, nil
}

// checkDimensions verifies the batch is internally consistent and matches
// the dimension fixed by the first put, if any.
func (s *SQLiteStore) checkDimensions(ctx context.Context, vectors [][]float32) error {
	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("inconsistent embedding dimensions in batch: chunk %d has %d, expected %d", i, len(v), dims)
		}
	}

	stored, err := s.storedDimensions(ctx)
	if err != nil {
		return err
	}
	if stored != 0 && stored != dims {
		return fmt.Errorf("embedding dimensions %d do not match store dimensions %d", dims, stored)
	}

	return nil
}

// storedDimensions returns the recorded embedding dimension, or 0 if the
// store is still empty.
func (s *SQLiteStore) storedDimensions(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaDimensionsKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read store dimensions: %w", err)
	}

	dims, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt store dimensions %q: %w", value, err)
	}
	return dims, nil
}

// validateName rejects names that are empty or would escape the blob
// directories.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("document name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid document name: %q", name)
	}
	return nil
}

// serializeEmbedding encodes a float32 slice as little-endian bytes.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding decodes a little-endian float32 blob.
func deserializeEmbedding(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}

	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding, nil
}
