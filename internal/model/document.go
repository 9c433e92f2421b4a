package model

import "time"

// DocumentStatus is the outcome of one file in a batch operation.
type DocumentStatus string

const (
	DocumentProcessed  DocumentStatus = "processed"
	DocumentModified   DocumentStatus = "modified"
	DocumentCounted    DocumentStatus = "counted"
	DocumentSkipped    DocumentStatus = "skipped"
	DocumentFailed     DocumentStatus = "failed"
	DocumentFailedRead DocumentStatus = "failed_to_read"
	DocumentFailedSave DocumentStatus = "failed_to_save"
)

// OK reports whether the status is a success.
func (s DocumentStatus) OK() bool {
	switch s {
	case DocumentProcessed, DocumentModified, DocumentCounted:
		return true
	}
	return false
}

// DocumentResult is the per-file record returned by batch operations.
type DocumentResult struct {
	File        string         `json:"file"`
	Output      string         `json:"output,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	Clauses     int            `json:"clauses,omitempty"`
	Rows        int            `json:"rows,omitempty"`
	Automatable int            `json:"automatable,omitempty"`
	// Degraded counts clauses or rows that were written with an error value.
	Degraded int           `json:"degraded,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// BatchResult summarizes a folder-level operation.
type BatchResult struct {
	Kind    RunKind          `json:"kind"`
	RunID   string           `json:"run_id,omitempty"`
	Total   int              `json:"total_count,omitempty"`
	Results []DocumentResult `json:"results"`
}

// Succeeded returns the number of successful documents.
func (b BatchResult) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Status.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of documents with a failure status.
func (b BatchResult) Failed() int {
	n := 0
	for _, r := range b.Results {
		if !r.Status.OK() && r.Status != DocumentSkipped {
			n++
		}
	}
	return n
}
