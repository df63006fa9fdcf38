package domain

// ExtractionAttempt records one pass of the structured-extraction loop.
type ExtractionAttempt struct {
	RawOutput        string   `json:"raw_output"`
	ValidationErrors []string `json:"validation_errors"`
	AttemptNumber    int      `json:"attempt_number"`
}

// ExtractionResult is the terminal outcome of the extraction loop. Data is
// nil when no attempt produced schema-valid output. Retries never exceeds the
// configured budget; exhaustion is a reported outcome, not an error.
type ExtractionResult struct {
	Data             map[string]any `json:"data"`
	ValidationPassed bool           `json:"validation_passed"`
	Retries          int            `json:"retries"`
}
