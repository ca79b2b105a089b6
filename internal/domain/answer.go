package domain

// AnswerResult is the outcome of one pipeline invocation. It is created
// once per question and is immutable after creation. Failures are carried
// as data in Error — a batch slot always holds some AnswerResult, never
// a Go error, so one bad question cannot abort a batch.
type AnswerResult struct {
	Question     string           `json:"question"`
	Answer       string           `json:"answer"`
	ArticlesUsed int              `json:"articles_used"`
	Context      []ContextSnippet `json:"context"`
	Error        string           `json:"error,omitempty"`
}

// Failed reports whether the invocation ended in the error state.
func (r AnswerResult) Failed() bool { return r.Error != "" }
