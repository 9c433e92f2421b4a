package model

import "time"

// RunKind identifies the batch operation a run recorded.
type RunKind string

const (
	RunKindProcess  RunKind = "process"
	RunKindEnrich   RunKind = "enrich"
	RunKindCount    RunKind = "count"
	RunKindBeautify RunKind = "beautify"
	RunKindSetWidth RunKind = "set_width"
)

// RunStatus represents the current state of a batch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded batch operation.
type Run struct {
	ID        string      `json:"id"`
	Kind      RunKind     `json:"kind"`
	Source    string      `json:"source"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the final counts of a run.
type RunSummary struct {
	Documents   int `json:"documents"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Automatable int `json:"automatable"`
}

// Summarize computes the run summary of a batch result.
func Summarize(b BatchResult) *RunSummary {
	s := &RunSummary{
		Documents: len(b.Results),
		Succeeded: b.Succeeded(),
		Failed:    b.Failed(),
	}
	for _, r := range b.Results {
		s.Automatable += r.Automatable
	}
	return s
}
