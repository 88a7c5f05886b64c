package services

import (
	"context"
	"testing"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, mount, documentID string, texts ...string) {
	t.Helper()
	embedder := &letterEmbedder{}
	chunks := make([]vectorindex.Chunk, 0, len(texts))
	for _, text := range texts {
		vector, err := embedder.EmbedQuery(context.Background(), text)
		require.NoError(t, err)
		chunks = append(chunks, vectorindex.Chunk{Text: text, Vector: vector})
	}
	require.NoError(t, vectorindex.Build(vectorindex.Dir(mount, documentID), chunks))
}

func TestQueryService_NoIndex(t *testing.T) {
	embedder := &letterEmbedder{}
	generator := &fakeGenerator{}
	q := NewQueryService(t.TempDir(), embedder, generator)

	_, err := q.Answer(context.Background(), "missing", "what happened?")

	require.ErrorIs(t, err, ErrNoIndex)
	assert.Equal(t, "could not find vector index for missing", err.Error())
	assert.Zero(t, embedder.calls)
	assert.Empty(t, generator.prompts)
}

func TestQueryService_ValidatesInput(t *testing.T) {
	q := NewQueryService(t.TempDir(), &letterEmbedder{}, &fakeGenerator{})
	ctx := context.Background()

	_, err := q.Answer(ctx, "", "question")
	assert.Error(t, err)

	_, err = q.Answer(ctx, "doc1", "   ")
	assert.Error(t, err)
}

func TestQueryService_Answer(t *testing.T) {
	mount := t.TempDir()
	buildTestIndex(t, mount, "doc1",
		"the turbine blades were inspected",
		"the pump seal\nwas replaced",
		"zzz",
	)
	generator := &fakeGenerator{reply: func(string) (string, error) {
		return " The seal\n was replaced.\n", nil
	}}
	q := NewQueryService(mount, &letterEmbedder{}, generator)

	answer, err := q.Answer(context.Background(), "doc1", "pump seal replaced")

	require.NoError(t, err)
	assert.Equal(t, "The seal was replaced.", answer)

	require.Len(t, generator.prompts, 1)
	assert.Equal(t, "Context=the pump sealwas replaced\nQuestion=pump seal replaced\nAnswer=", generator.prompts[0])
	assert.Equal(t, models.GenerationOptions{MaxTokens: 512, Temperature: 0.25}, generator.opts[0])
}

func TestQueryService_RepeatedQuestions(t *testing.T) {
	mount := t.TempDir()
	buildTestIndex(t, mount, "doc1", "only chunk")
	generator := &fakeGenerator{}
	q := NewQueryService(mount, &letterEmbedder{}, generator)

	for range 3 {
		answer, err := q.Answer(context.Background(), "doc1", "chunk?")
		require.NoError(t, err)
		assert.Equal(t, "answer", answer)
	}
	assert.Len(t, generator.prompts, 3)
}

func TestQueryService_AnswersWhileIndexHeldElsewhere(t *testing.T) {
	mount := t.TempDir()
	buildTestIndex(t, mount, "doc1", "only chunk")

	held, err := vectorindex.Open(vectorindex.Dir(mount, "doc1"))
	require.NoError(t, err)
	defer held.Close()

	answer, err := NewQueryService(mount, &letterEmbedder{}, &fakeGenerator{}).Answer(context.Background(), "doc1", "chunk?")

	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
}

func TestQueryService_GenerationFailure(t *testing.T) {
	mount := t.TempDir()
	buildTestIndex(t, mount, "doc1", "only chunk")
	generator := &fakeGenerator{reply: func(string) (string, error) { return "", errBoom }}

	_, err := NewQueryService(mount, &letterEmbedder{}, generator).Answer(context.Background(), "doc1", "chunk?")

	assert.ErrorIs(t, err, errBoom)
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "Context=c\nQuestion=q\nAnswer=", BuildPrompt("c", "q"))
}
