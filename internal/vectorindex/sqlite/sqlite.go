// Package sqlite implements the persistent vector index.
//
// One index generation is a single SQLite file inside the configured
// directory. Rebuild writes a complete fresh database next to the live one
// and renames it into place, so concurrent readers either see the old
// generation or the new one, never a half-written index.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"ragchat/internal/domain"
	"ragchat/internal/vectorindex"
)

var _ domain.Index = (*Index)(nil)

const dbFile = "index.db"

// Index is a file-backed vector index over one directory.
type Index struct {
	dir string

	mu sync.Mutex
	db *sql.DB
}

// New creates an index handle for the given directory. The directory is not
// touched until Rebuild or Query is called.
func New(dir string) *Index {
	return &Index{dir: dir}
}

// Rebuild atomically replaces the persisted index with the given chunk set.
// Every chunk must carry an embedding of the given dimension.
func (i *Index) Rebuild(ctx context.Context, dimension int, chunks []domain.Chunk) error {
	if dimension <= 0 {
		return errors.New("sqlite index: invalid dimension")
	}
	for _, c := range chunks {
		if len(c.Embedding) != dimension {
			return fmt.Errorf("sqlite index: chunk %s has embedding dimension %d, want %d", c.ID, len(c.Embedding), dimension)
		}
	}
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp := filepath.Join(i.dir, dbFile+".tmp")
	_ = os.Remove(tmp)
	if err := i.buildInto(ctx, tmp, dimension, chunks); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(i.dir, dbFile)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swapping index generation: %w", err)
	}

	// Drop any handle onto the replaced generation.
	i.mu.Lock()
	if i.db != nil {
		_ = i.db.Close()
		i.db = nil
	}
	i.mu.Unlock()
	return nil
}

func (i *Index) buildInto(ctx context.Context, path string, dimension int, chunks []domain.Chunk) error {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening index build: %w", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		CREATE TABLE meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE chunks (
			id           TEXT PRIMARY KEY,
			document_id  TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			content      TEXT NOT NULL,
			embedding    BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating index schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index build: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('dimension', ?)`, dimension); err != nil {
		return fmt.Errorf("writing index meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, start_offset, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.StartOffset, c.Text, float32SliceToBytes(c.Embedding)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Query returns the top-k chunks by cosine similarity, descending, ties
// broken by chunk id. Returns ErrIndexNotFound when no index has ever been
// persisted at the configured directory.
func (i *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	db, err := i.open()
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		// Existence probe: the index opened, nothing to rank.
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `SELECT id, document_id, start_offset, content, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.StartOffset, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return vectorindex.Rank(chunks, vector, k), nil
}

// Dimension reports the embedding dimension recorded by the last rebuild.
func (i *Index) Dimension(ctx context.Context) (int, error) {
	db, err := i.open()
	if err != nil {
		return 0, err
	}
	var dim int
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&dim); err != nil {
		return 0, fmt.Errorf("reading index meta: %w", err)
	}
	return dim, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.db == nil {
		return nil
	}
	err := i.db.Close()
	i.db = nil
	return err
}

func (i *Index) open() (*sql.DB, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.db != nil {
		return i.db, nil
	}
	path := filepath.Join(i.dir, dbFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index at %s: %w", i.dir, domain.ErrIndexNotFound)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	i.db = db
	return db, nil
}

// float32SliceToBytes encodes a vector as little-endian float32 bits.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
