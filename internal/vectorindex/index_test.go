package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndSearch(t *testing.T) {
	dir := Dir(t.TempDir(), "doc1")
	chunks := []Chunk{
		{Text: "cats", Vector: []float32{1, 0, 0}},
		{Text: "dogs", Vector: []float32{0, 1, 0}},
		{Text: "cats and dogs", Vector: []float32{0.7, 0.7, 0}},
	}
	require.NoError(t, Build(dir, chunks))
	assert.True(t, Exists(dir))

	idx, err := Open(dir)
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, 3, idx.Len())

	matches, err := idx.Search(context.Background(), []float32{2, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "cats", matches[0].Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "cats and dogs", matches[1].Text)
}

func TestBuild_Overwrites(t *testing.T) {
	dir := Dir(t.TempDir(), "doc1")
	require.NoError(t, Build(dir, []Chunk{{Text: "old", Vector: []float32{1, 0}}}))
	require.NoError(t, Build(dir, []Chunk{{Text: "new", Vector: []float32{0, 1}}}))

	idx, err := Open(dir)
	require.NoError(t, err)
	defer idx.Close()

	matches, err := idx.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Text)
}

func TestBuild_RejectsMixedDimensions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	err := Build(dir, []Chunk{
		{Text: "a", Vector: []float32{1, 0}},
		{Text: "b", Vector: []float32{1, 0, 0}},
	})
	assert.Error(t, err)

	assert.Error(t, Build(dir, nil))
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(Dir(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	dir := Dir(t.TempDir(), "doc1")
	require.NoError(t, Build(dir, []Chunk{{Text: "a", Vector: []float32{1, 0}}}))
	idx, err := Open(dir)
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.Error(t, err)
}

func TestBest(t *testing.T) {
	_, ok := Best(nil)
	assert.False(t, ok)

	best, ok := Best([]Match{{Text: "a", Score: 0.2}, {Text: "b", Score: 0.9}, {Text: "c", Score: -0.5}})
	require.True(t, ok)
	assert.Equal(t, "b", best.Text)
}

func TestOpen_ConcurrentReaders(t *testing.T) {
	dir := Dir(t.TempDir(), "doc1")
	require.NoError(t, Build(dir, []Chunk{{Text: "a", Vector: []float32{1, 0}}}))

	first, err := Open(dir)
	require.NoError(t, err)
	defer first.Close()

	second, err := Open(dir)
	require.NoError(t, err, "a reader must not lock out other readers")
	defer second.Close()

	for _, idx := range []*Index{first, second} {
		matches, err := idx.Search(context.Background(), []float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].Text)
	}
}
