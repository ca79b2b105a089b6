package domain

import "time"

// Run statuses persisted with a trace.
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// RunTrace records one LLM invocation: inputs, outputs, token usage,
// cost, and timing. It is created when the invocation starts, finalized
// when it ends, and persisted out-of-band — a trace may outlive the
// originating request. All timestamps are normalized to UTC before
// persistence.
type RunTrace struct {
	ID          string
	Name        string
	Status      string
	TotalTokens int
	TotalCost   float64
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Inputs      string
	Outputs     string
	Error       string
	Tags        []string
	Metadata    map[string]string
	ParentRunID string
	ChildRunIDs []string
}

// Finalize stamps the end of the run, computes its duration, and pins
// both timestamps to UTC.
func (t *RunTrace) Finalize(end time.Time) {
	t.StartTime = t.StartTime.UTC()
	t.EndTime = end.UTC()
	t.Duration = t.EndTime.Sub(t.StartTime)
}
