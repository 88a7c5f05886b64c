package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusStarted, StatusInProgress, true},
		{StatusStarted, StatusComplete, true},
		{StatusStarted, StatusFailed, true},
		{StatusInProgress, StatusComplete, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusStarted, false},
		{StatusComplete, StatusFailed, false},
		{StatusFailed, StatusComplete, false},
		{StatusComplete, StatusInProgress, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusStarted.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}

func TestParseJobKind(t *testing.T) {
	kind, err := ParseJobKind("embedding")
	require.NoError(t, err)
	assert.Equal(t, JobKindEmbedding, kind)

	_, err = ParseJobKind("translation")
	assert.Error(t, err)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("docId", "report-2024.pdf"))
	assert.Error(t, ValidateID("docId", ""))
	assert.Error(t, ValidateID("docId", "a/b"))
	assert.Error(t, ValidateID("jobId", "a#b"))
}

func TestSummarizationRequest_KeepsParameterText(t *testing.T) {
	var req SummarizationRequest
	body := `{"docId":"doc1","bucket":"b","name":"n","chunkSize":"1500","top_p":0.90,"max_length":256}`

	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, json.Number("1500"), req.ChunkSize)
	assert.Equal(t, json.Number("0.90"), req.TopP)
	assert.Equal(t, json.Number("256"), req.MaxLength)
	assert.Empty(t, req.Temperature)
}

func TestSummarizationRequest_RejectsNonNumericParameter(t *testing.T) {
	var req SummarizationRequest
	err := json.Unmarshal([]byte(`{"docId":"doc1","chunkSize":"large"}`), &req)
	assert.Error(t, err)
}
