package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical-ai/intellidoc/internal/config"
)

// DB is the database connection surface the store needs.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// OpenDB opens the configured database connection and applies pool
// settings. The caller owns the returned handle.
func OpenDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.SQLite.Path+"?_journal_mode="+cfg.SQLite.JournalMode)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(cfg.SQLite.MaxOpenConns)
		return db, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
}

// SQLStore is a Store backed by Postgres or SQLite. Structured fields
// (tags, extracted fields, validation results) are stored as JSON text
// so the schema stays portable across both drivers.
type SQLStore struct {
	db DB
}

// NewSQLStore creates a SQL-backed store.
func NewSQLStore(db DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS processing_jobs (
			id TEXT PRIMARY KEY,
			source_type TEXT NOT NULL,
			source_reference TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			file_size_bytes BIGINT NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			current_step TEXT NOT NULL DEFAULT '',
			progress_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_pages INTEGER NOT NULL DEFAULT 0,
			total_documents_detected INTEGER NOT NULL DEFAULT 0,
			documents_processed INTEGER NOT NULL DEFAULT 0,
			documents_succeeded INTEGER NOT NULL DEFAULT 0,
			documents_failed INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			processing_duration_ms BIGINT NOT NULL DEFAULT 0,
			total_tokens_used BIGINT NOT NULL DEFAULT 0,
			total_cost_micro_usd BIGINT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			tenant_id TEXT NOT NULL DEFAULT '',
			correlation_id TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processing_jobs_status ON processing_jobs (status)`,
		`CREATE INDEX IF NOT EXISTS idx_processing_jobs_tenant ON processing_jobs (tenant_id)`,
		`CREATE TABLE IF NOT EXISTS document_results (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			document_type_id TEXT,
			document_type_code TEXT NOT NULL DEFAULT '',
			classification_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			classification_reasoning TEXT NOT NULL DEFAULT '',
			page_range_start INTEGER NOT NULL DEFAULT 1,
			page_range_end INTEGER NOT NULL DEFAULT 1,
			page_count INTEGER NOT NULL DEFAULT 1,
			extracted_fields TEXT NOT NULL DEFAULT '{}',
			extraction_confidence TEXT NOT NULL DEFAULT '{}',
			validation_results TEXT NOT NULL DEFAULT '[]',
			is_valid BOOLEAN NOT NULL DEFAULT TRUE,
			validation_score DOUBLE PRECISION NOT NULL DEFAULT 1,
			overall_confidence TEXT NOT NULL DEFAULT 'high',
			quality_score DOUBLE PRECISION NOT NULL DEFAULT 1,
			failed BOOLEAN NOT NULL DEFAULT FALSE,
			error_message TEXT NOT NULL DEFAULT '',
			processing_duration_ms BIGINT NOT NULL DEFAULT 0,
			tokens_used BIGINT NOT NULL DEFAULT 0,
			cost_micro_usd BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_results_job ON document_results (job_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateJob inserts a new job.
func (s *SQLStore) CreateJob(ctx context.Context, job *ProcessingJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	tags, err := json.Marshal(orEmptyTags(job.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO processing_jobs (id, source_type, source_reference, original_filename,
			file_size_bytes, mime_type, status, current_step, progress_percent,
			total_pages, total_documents_detected, documents_processed,
			documents_succeeded, documents_failed, started_at, completed_at,
			processing_duration_ms, total_tokens_used, total_cost_micro_usd,
			error_message, tenant_id, correlation_id, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID.String(), job.SourceType, job.SourceReference, job.OriginalFilename,
		job.FileSizeBytes, job.MIMEType, string(job.Status), job.CurrentStep, job.ProgressPercent,
		job.TotalPages, job.TotalDocumentsDetected, job.DocumentsProcessed,
		job.DocumentsSucceeded, job.DocumentsFailed, job.StartedAt, job.CompletedAt,
		job.ProcessingDurationMS, job.TotalTokensUsed, job.TotalCostMicroUSD,
		job.ErrorMessage, job.TenantID, job.CorrelationID, string(tags),
		job.CreatedAt, job.UpdatedAt,
	)
	return err
}

// GetJob retrieves a job by ID.
func (s *SQLStore) GetJob(ctx context.Context, id uuid.UUID) (*ProcessingJob, error) {
	query := `
		SELECT id, source_type, source_reference, original_filename, file_size_bytes,
			mime_type, status, current_step, progress_percent, total_pages,
			total_documents_detected, documents_processed, documents_succeeded,
			documents_failed, started_at, completed_at, processing_duration_ms,
			total_tokens_used, total_cost_micro_usd, error_message, tenant_id,
			correlation_id, tags, created_at, updated_at
		FROM processing_jobs WHERE id = $1
	`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// UpdateJob replaces all mutable job columns.
func (s *SQLStore) UpdateJob(ctx context.Context, job *ProcessingJob) error {
	job.UpdatedAt = time.Now()

	tags, err := json.Marshal(orEmptyTags(job.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		UPDATE processing_jobs SET
			status = $1, current_step = $2, progress_percent = $3, total_pages = $4,
			total_documents_detected = $5, documents_processed = $6,
			documents_succeeded = $7, documents_failed = $8, started_at = $9,
			completed_at = $10, processing_duration_ms = $11, total_tokens_used = $12,
			total_cost_micro_usd = $13, error_message = $14, file_size_bytes = $15,
			mime_type = $16, tags = $17, updated_at = $18
		WHERE id = $19
	`
	res, err := s.db.ExecContext(ctx, query,
		string(job.Status), job.CurrentStep, job.ProgressPercent, job.TotalPages,
		job.TotalDocumentsDetected, job.DocumentsProcessed,
		job.DocumentsSucceeded, job.DocumentsFailed, job.StartedAt,
		job.CompletedAt, job.ProcessingDurationMS, job.TotalTokensUsed,
		job.TotalCostMicroUSD, job.ErrorMessage, job.FileSizeBytes,
		job.MIMEType, string(tags), job.UpdatedAt, job.ID.String(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *SQLStore) ListJobs(ctx context.Context, filter ListFilter) ([]*ProcessingJob, error) {
	query := `
		SELECT id, source_type, source_reference, original_filename, file_size_bytes,
			mime_type, status, current_step, progress_percent, total_pages,
			total_documents_detected, documents_processed, documents_succeeded,
			documents_failed, started_at, completed_at, processing_duration_ms,
			total_tokens_used, total_cost_micro_usd, error_message, tenant_id,
			correlation_id, tags, created_at, updated_at
		FROM processing_jobs
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR tenant_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, query, string(filter.Status), filter.TenantID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SaveDocumentResult inserts a document result.
func (s *SQLStore) SaveDocumentResult(ctx context.Context, doc *DocumentResult) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	fields, err := json.Marshal(orEmptyMap(doc.ExtractedFields))
	if err != nil {
		return fmt.Errorf("marshal extracted fields: %w", err)
	}
	confidence, err := json.Marshal(orEmptyFloatMap(doc.ExtractionConfidence))
	if err != nil {
		return fmt.Errorf("marshal extraction confidence: %w", err)
	}
	validations, err := json.Marshal(orEmptyResults(doc.ValidationResults))
	if err != nil {
		return fmt.Errorf("marshal validation results: %w", err)
	}

	var typeID any
	if doc.DocumentTypeID != nil {
		typeID = doc.DocumentTypeID.String()
	}

	query := `
		INSERT INTO document_results (id, job_id, document_type_id, document_type_code,
			classification_confidence, classification_reasoning, page_range_start,
			page_range_end, page_count, extracted_fields, extraction_confidence,
			validation_results, is_valid, validation_score, overall_confidence,
			quality_score, failed, error_message, processing_duration_ms,
			tokens_used, cost_micro_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22)
	`
	_, err = s.db.ExecContext(ctx, query,
		doc.ID.String(), doc.JobID.String(), typeID, doc.DocumentTypeCode,
		doc.ClassificationConfidence, doc.ClassificationReasoning, doc.PageRangeStart,
		doc.PageRangeEnd, doc.PageCount, string(fields), string(confidence),
		string(validations), doc.IsValid, doc.ValidationScore, string(doc.OverallConfidence),
		doc.QualityScore, doc.Failed, doc.ErrorMessage, doc.ProcessingDurationMS,
		doc.TokensUsed, doc.CostMicroUSD, doc.CreatedAt,
	)
	return err
}

// DocumentResultsByJob returns a job's document results ordered by page range.
func (s *SQLStore) DocumentResultsByJob(ctx context.Context, jobID uuid.UUID) ([]DocumentResult, error) {
	query := `
		SELECT id, job_id, document_type_id, document_type_code, classification_confidence,
			classification_reasoning, page_range_start, page_range_end, page_count,
			extracted_fields, extraction_confidence, validation_results, is_valid,
			validation_score, overall_confidence, quality_score, failed, error_message,
			processing_duration_ms, tokens_used, cost_micro_usd, created_at
		FROM document_results
		WHERE job_id = $1
		ORDER BY page_range_start
	`
	rows, err := s.db.QueryContext(ctx, query, jobID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []DocumentResult
	for rows.Next() {
		var (
			doc             DocumentResult
			id, job         string
			typeID          sql.NullString
			confidence      string
			fields          string
			validations     string
			overallTier     string
		)
		if err := rows.Scan(
			&id, &job, &typeID, &doc.DocumentTypeCode, &doc.ClassificationConfidence,
			&doc.ClassificationReasoning, &doc.PageRangeStart, &doc.PageRangeEnd,
			&doc.PageCount, &fields, &confidence, &validations, &doc.IsValid,
			&doc.ValidationScore, &overallTier, &doc.QualityScore, &doc.Failed,
			&doc.ErrorMessage, &doc.ProcessingDurationMS, &doc.TokensUsed,
			&doc.CostMicroUSD, &doc.CreatedAt,
		); err != nil {
			return nil, err
		}

		doc.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse document id: %w", err)
		}
		doc.JobID, err = uuid.Parse(job)
		if err != nil {
			return nil, fmt.Errorf("parse job id: %w", err)
		}
		if typeID.Valid {
			parsed, err := uuid.Parse(typeID.String)
			if err != nil {
				return nil, fmt.Errorf("parse document type id: %w", err)
			}
			doc.DocumentTypeID = &parsed
		}
		doc.OverallConfidence = ConfidenceTier(overallTier)

		if err := json.Unmarshal([]byte(fields), &doc.ExtractedFields); err != nil {
			return nil, fmt.Errorf("unmarshal extracted fields: %w", err)
		}
		if err := json.Unmarshal([]byte(confidence), &doc.ExtractionConfidence); err != nil {
			return nil, fmt.Errorf("unmarshal extraction confidence: %w", err)
		}
		if err := json.Unmarshal([]byte(validations), &doc.ValidationResults); err != nil {
			return nil, fmt.Errorf("unmarshal validation results: %w", err)
		}

		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*ProcessingJob, error) {
	var (
		job    ProcessingJob
		id     string
		status string
		tags   string
	)
	err := row.Scan(
		&id, &job.SourceType, &job.SourceReference, &job.OriginalFilename,
		&job.FileSizeBytes, &job.MIMEType, &status, &job.CurrentStep,
		&job.ProgressPercent, &job.TotalPages, &job.TotalDocumentsDetected,
		&job.DocumentsProcessed, &job.DocumentsSucceeded, &job.DocumentsFailed,
		&job.StartedAt, &job.CompletedAt, &job.ProcessingDurationMS,
		&job.TotalTokensUsed, &job.TotalCostMicroUSD, &job.ErrorMessage,
		&job.TenantID, &job.CorrelationID, &tags, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job.Status = JobStatus(status)
	if err := json.Unmarshal([]byte(tags), &job.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &job, nil
}

func orEmptyTags(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func orEmptyResults(rs []ValidationResult) []ValidationResult {
	if rs == nil {
		return []ValidationResult{}
	}
	return rs
}
