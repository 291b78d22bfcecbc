// Package results holds the processing job and result domain models and
// the stores that persist them.
package results

import (
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/intellidoc/internal/catalog"
)

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

// Job lifecycle states. The pipeline moves a job strictly forward
// through the in-progress states; cancelled is reachable from any
// non-terminal state.
const (
	StatusPending            JobStatus = "pending"
	StatusIngesting          JobStatus = "ingesting"
	StatusPreprocessing      JobStatus = "preprocessing"
	StatusSplitting          JobStatus = "splitting"
	StatusClassifying        JobStatus = "classifying"
	StatusExtracting         JobStatus = "extracting"
	StatusValidating         JobStatus = "validating"
	StatusCompleted          JobStatus = "completed"
	StatusFailed             JobStatus = "failed"
	StatusPartiallyCompleted JobStatus = "partially_completed"
	StatusCancelled          JobStatus = "cancelled"
)

// IsTerminal reports whether the status is final.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartiallyCompleted, StatusCancelled:
		return true
	}
	return false
}

// ConfidenceTier grades a document's overall confidence.
type ConfidenceTier string

// Confidence tiers.
const (
	ConfidenceHigh    ConfidenceTier = "high"
	ConfidenceMedium  ConfidenceTier = "medium"
	ConfidenceLow     ConfidenceTier = "low"
	ConfidenceVeryLow ConfidenceTier = "very_low"
)

// TierFromScore maps a confidence score to its tier.
func TierFromScore(score float64) ConfidenceTier {
	switch {
	case score >= 0.9:
		return ConfidenceHigh
	case score >= 0.7:
		return ConfidenceMedium
	case score >= 0.5:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// ProcessingJob tracks the processing of one file submission. Only the
// orchestrator mutates a job; once terminal it is immutable.
type ProcessingJob struct {
	ID uuid.UUID `json:"id"`

	// Source info
	SourceType       string `json:"source_type"`
	SourceReference  string `json:"source_reference"`
	OriginalFilename string `json:"original_filename"`
	FileSizeBytes    int64  `json:"file_size_bytes"`
	MIMEType         string `json:"mime_type,omitempty"`

	// Processing state
	Status          JobStatus `json:"status"`
	CurrentStep     string    `json:"current_step,omitempty"`
	ProgressPercent float64   `json:"progress_percent"`

	// Results
	TotalPages             int `json:"total_pages"`
	TotalDocumentsDetected int `json:"total_documents_detected"`
	DocumentsProcessed     int `json:"documents_processed"`
	DocumentsSucceeded     int `json:"documents_succeeded"`
	DocumentsFailed        int `json:"documents_failed"`

	// Timing
	StartedAt            *time.Time `json:"started_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	ProcessingDurationMS int64      `json:"processing_duration_ms"`

	// Cost tracking
	TotalTokensUsed   int64 `json:"total_tokens_used"`
	TotalCostMicroUSD int64 `json:"total_cost_micro_usd"`

	// Error info
	ErrorMessage string `json:"error_message,omitempty"`

	// Metadata
	TenantID      string            `json:"tenant_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidationResult is the outcome of a single validation check.
// Produced exactly once per applicable validator per document.
type ValidationResult struct {
	ValidatorID   uuid.UUID `json:"validator_id"`
	ValidatorCode string    `json:"validator_code"`
	ValidatorName string    `json:"validator_name,omitempty"`

	Passed        bool                      `json:"passed"`
	Severity      catalog.ValidatorSeverity `json:"severity"`
	Message       string                    `json:"message,omitempty"`
	FieldName     string                    `json:"field_name,omitempty"`
	ExpectedValue string                    `json:"expected_value,omitempty"`
	ActualValue   string                    `json:"actual_value,omitempty"`

	Details map[string]any `json:"details,omitempty"`
}

// DocumentResult is the processing outcome for one detected sub-document.
type DocumentResult struct {
	ID    uuid.UUID `json:"id"`
	JobID uuid.UUID `json:"job_id"`

	// Classification
	DocumentTypeID           *uuid.UUID `json:"document_type_id,omitempty"`
	DocumentTypeCode         string     `json:"document_type_code,omitempty"`
	ClassificationConfidence float64    `json:"classification_confidence"`
	ClassificationReasoning  string     `json:"classification_reasoning,omitempty"`

	// Pages
	PageRangeStart int `json:"page_range_start"`
	PageRangeEnd   int `json:"page_range_end"`
	PageCount      int `json:"page_count"`

	// Extraction
	ExtractedFields      map[string]any     `json:"extracted_fields"`
	ExtractionConfidence map[string]float64 `json:"extraction_confidence"`

	// Validation
	ValidationResults []ValidationResult `json:"validation_results"`
	IsValid           bool               `json:"is_valid"`
	ValidationScore   float64            `json:"validation_score"`

	// Quality
	OverallConfidence ConfidenceTier `json:"overall_confidence"`
	QualityScore      float64        `json:"quality_score"`

	// Failure
	Failed       bool   `json:"failed"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Timing and cost
	ProcessingDurationMS int64 `json:"processing_duration_ms"`
	TokensUsed           int64 `json:"tokens_used"`
	CostMicroUSD         int64 `json:"cost_micro_usd"`

	CreatedAt time.Time `json:"created_at"`
}

// ProcessingResult is the complete aggregate outcome for a job.
type ProcessingResult struct {
	Job       ProcessingJob    `json:"job"`
	Documents []DocumentResult `json:"documents"`

	// Summary
	TotalFieldsExtracted   int            `json:"total_fields_extracted"`
	TotalValidationsPassed int            `json:"total_validations_passed"`
	TotalValidationsFailed int            `json:"total_validations_failed"`
	TotalValidationsWarned int            `json:"total_validations_warned"`
	OverallConfidence      ConfidenceTier `json:"overall_confidence"`

	ModelUsed       string `json:"model_used,omitempty"`
	PipelineVersion string `json:"pipeline_version,omitempty"`
}

// Summarize recomputes the aggregate counters from the document list.
func (r *ProcessingResult) Summarize() {
	r.TotalFieldsExtracted = 0
	r.TotalValidationsPassed = 0
	r.TotalValidationsFailed = 0
	r.TotalValidationsWarned = 0

	lowest := ConfidenceHigh
	for _, doc := range r.Documents {
		for _, v := range doc.ExtractedFields {
			if v != nil {
				r.TotalFieldsExtracted++
			}
		}
		for _, vr := range doc.ValidationResults {
			switch {
			case vr.Passed:
				r.TotalValidationsPassed++
			case vr.Severity == catalog.SeverityWarning:
				r.TotalValidationsWarned++
			default:
				r.TotalValidationsFailed++
			}
		}
		if tierRank(doc.OverallConfidence) > tierRank(lowest) {
			lowest = doc.OverallConfidence
		}
	}
	r.OverallConfidence = lowest
}

func tierRank(t ConfidenceTier) int {
	switch t {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceLow:
		return 2
	default:
		return 3
	}
}
