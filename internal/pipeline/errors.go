package pipeline

import "fmt"

// Error codes carried by PipelineError.
const (
	CodeIngestFailed     = "INGEST_FAILED"
	CodePreprocessFailed = "PREPROCESS_FAILED"
	CodeSplitFailed      = "SPLIT_FAILED"
	CodeClassifyFailed   = "CLASSIFY_FAILED"
	CodeResolveFailed    = "FIELD_RESOLUTION_FAILED"
	CodeExtractFailed    = "EXTRACT_FAILED"
	CodeValidateFailed   = "VALIDATE_FAILED"
	CodePersistFailed    = "PERSIST_FAILED"
)

// PipelineError wraps a stage failure with the stage name and a stable
// error code for API consumers.
type PipelineError struct {
	Stage string
	Code  string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func stageError(stage, code string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Code: code, Err: err}
}
