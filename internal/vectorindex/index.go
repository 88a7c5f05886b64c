// Package vectorindex stores the embedded chunks of one document in a Badger
// database on the shared mount and answers nearest-chunk queries against it.
package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/Lllllllleong/docinsight/internal/kvstore"
	"github.com/dgraph-io/badger/v4"
)

const (
	chunkPrefix = "chunk/"
	metaKey     = "meta"
)

// ErrIndexNotFound is returned when a document has no index on the mount.
var ErrIndexNotFound = errors.New("vector index not found")

// Chunk is one piece of source text and its embedding.
type Chunk struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Match is a chunk scored against a query. Higher scores are closer.
type Match struct {
	Text  string
	Score float32
}

type meta struct {
	Dimensions int `json:"dimensions"`
	Count      int `json:"count"`
}

// Dir is where the index for documentID lives under mountPoint.
func Dir(mountPoint, documentID string) string {
	return filepath.Join(mountPoint, documentID, "db")
}

// Exists reports whether dir holds an index.
func Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Build replaces whatever index is at dir with chunks.
func Build(dir string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to index")
	}
	dims := len(chunks[0].Vector)
	for i, c := range chunks {
		if len(c.Vector) == 0 || len(c.Vector) != dims {
			return fmt.Errorf("chunk %d has %d dimensions, want %d", i, len(c.Vector), dims)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear index at %s: %w", dir, err)
	}
	db, err := kvstore.Open(dir, false)
	if err != nil {
		return err
	}
	defer db.Close()

	wb := db.NewWriteBatch()
	if err := writeChunks(wb, chunks, dims); err != nil {
		wb.Cancel()
		return err
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush index at %s: %w", dir, err)
	}
	return nil
}

func writeChunks(wb *badger.WriteBatch, chunks []Chunk, dims int) error {
	for i, c := range chunks {
		value, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := wb.Set(chunkKey(i), value); err != nil {
			return fmt.Errorf("failed to write chunk %d: %w", i, err)
		}
	}
	value, err := json.Marshal(meta{Dimensions: dims, Count: len(chunks)})
	if err != nil {
		return err
	}
	return wb.Set([]byte(metaKey), value)
}

func chunkKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%08d", chunkPrefix, i))
}

// Index is an opened per-document index.
type Index struct {
	db   *badger.DB
	meta meta
}

// Open opens the index at dir read-only, returning ErrIndexNotFound when it is
// absent. Readers share the directory lock with each other but not with Build.
func Open(dir string) (*Index, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("%s: %w", dir, ErrIndexNotFound)
	}
	db, err := kvstore.OpenReadOnly(dir)
	if err != nil {
		return nil, err
	}

	idx := &Index{db: db}
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &idx.meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		db.Close()
		return nil, fmt.Errorf("%s has no index metadata: %w", dir, ErrIndexNotFound)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read index metadata at %s: %w", dir, err)
	}
	return idx, nil
}

// Len is the number of indexed chunks.
func (ix *Index) Len() int {
	return ix.meta.Count
}

// Search returns the k chunks most similar to query, best first.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if len(query) != ix.meta.Dimensions {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(query), ix.meta.Dimensions)
	}

	var matches []Match
	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var c Chunk
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return err
			}
			matches = append(matches, Match{Text: c.Text, Score: cosine(query, c.Vector)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Close releases the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Best picks the highest-scoring match.
func Best(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return best, true
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
