package core

// RunRecord captures one advisory run for the audit log.
type RunRecord struct {
	ID               string
	UserID           string
	Attempts         int
	PromptTokens     int
	CompletionTokens int
	Success          bool
	Error            string
	DurationMs       int64
	Timestamp        int64
}
