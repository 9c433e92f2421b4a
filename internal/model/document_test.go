package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatus_OK(t *testing.T) {
	for _, s := range []DocumentStatus{DocumentProcessed, DocumentModified, DocumentCounted} {
		assert.True(t, s.OK(), s)
	}
	for _, s := range []DocumentStatus{DocumentSkipped, DocumentFailed, DocumentFailedRead, DocumentFailedSave} {
		assert.False(t, s.OK(), s)
	}
}

func TestBatchResult_Counts(t *testing.T) {
	b := BatchResult{Results: []DocumentResult{
		{Status: DocumentProcessed, Automatable: 3},
		{Status: DocumentSkipped},
		{Status: DocumentFailedRead},
		{Status: DocumentModified, Automatable: 2},
	}}

	assert.Equal(t, 2, b.Succeeded())
	assert.Equal(t, 1, b.Failed())

	s := Summarize(b)
	assert.Equal(t, &RunSummary{Documents: 4, Succeeded: 2, Failed: 1, Automatable: 5}, s)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, &RunSummary{}, Summarize(BatchResult{}))
}
