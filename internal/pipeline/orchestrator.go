// Package pipeline orchestrates the document processing workflow:
// ingest, preprocess, split, then a bounded concurrent per-document
// fan-out of classify, field resolution, extract, validate, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
	"github.com/spherical-ai/intellidoc/internal/config"
	"github.com/spherical-ai/intellidoc/internal/extract"
	"github.com/spherical-ai/intellidoc/internal/ingest"
	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
	"github.com/spherical-ai/intellidoc/internal/results"
	"github.com/spherical-ai/intellidoc/internal/split"
	"github.com/spherical-ai/intellidoc/internal/statuscache"
	"github.com/spherical-ai/intellidoc/internal/validation"
)

// Common errors
var (
	ErrJobTerminal   = errors.New("job already in a terminal state")
	ErrJobNotRunning = errors.New("job is not running")
)

// Services bundles the stage collaborators the orchestrator drives.
type Services struct {
	Catalog    catalog.Catalog
	Ingest     *ingest.Service
	Preprocess *preprocess.Service
	Split      *split.Service
	Classify   *classify.Service
	Extract    *extract.Service
	Validate   *validation.Service
}

// Orchestrator owns job state transitions. Each running job has a
// single collector goroutine that is the only writer of its job record;
// document workers communicate with it over a channel.
type Orchestrator struct {
	cfg      *config.Config
	store    results.Store
	status   statuscache.Cache
	svcs     Services
	resolver *FieldResolver
	webhook  *WebhookDispatcher
	logger   *observability.Logger

	mu      sync.Mutex
	running map[uuid.UUID]*jobHandle
}

// jobHandle tracks a running job for cancellation.
type jobHandle struct {
	cancelRequested atomic.Bool
}

func (h *jobHandle) cancelled() bool { return h.cancelRequested.Load() }

// NewOrchestrator creates the processing orchestrator.
func NewOrchestrator(
	cfg *config.Config,
	store results.Store,
	status statuscache.Cache,
	svcs Services,
	resolver *FieldResolver,
	webhook *WebhookDispatcher,
	logger *observability.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		status:   status,
		svcs:     svcs,
		resolver: resolver,
		webhook:  webhook,
		logger:   logger,
		running:  make(map[uuid.UUID]*jobHandle),
	}
}

// Submit creates a job and runs the pipeline in the background.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*results.ProcessingJob, error) {
	job, err := o.createJob(ctx, req)
	if err != nil {
		return nil, err
	}

	handle := o.register(job.ID)
	go func() {
		defer o.unregister(job.ID)
		runCtx := observability.ContextWithCorrelationID(context.Background(), req.CorrelationID)
		o.run(runCtx, job, req, handle)
	}()

	return job, nil
}

// Process creates a job, runs the pipeline synchronously, and returns
// the complete aggregate result.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*results.ProcessingResult, error) {
	job, err := o.createJob(ctx, req)
	if err != nil {
		return nil, err
	}

	handle := o.register(job.ID)
	defer o.unregister(job.ID)
	o.run(ctx, job, req, handle)

	return o.Result(ctx, job.ID)
}

// Cancel requests cancellation of a running job. The pipeline observes
// the request between stages; in-flight document work drains and its
// results are discarded.
func (o *Orchestrator) Cancel(ctx context.Context, jobID uuid.UUID) error {
	o.mu.Lock()
	handle, ok := o.running[jobID]
	o.mu.Unlock()

	if ok {
		handle.cancelRequested.Store(true)
		o.logger.WithJob(jobID.String()).Info().Msg("Cancellation requested")
		return nil
	}

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	return ErrJobNotRunning
}

// Status returns the poller-visible snapshot for a job, falling back
// to the store when the cache has aged the job out.
func (o *Orchestrator) Status(ctx context.Context, jobID uuid.UUID) (*statuscache.Snapshot, error) {
	snap, err := o.status.Get(ctx, jobID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, statuscache.ErrNotFound) {
		return nil, err
	}

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(job), nil
}

// Result loads the complete aggregate result for a job.
func (o *Orchestrator) Result(ctx context.Context, jobID uuid.UUID) (*results.ProcessingResult, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	docs, err := o.store.DocumentResultsByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	result := &results.ProcessingResult{
		Job:       *job,
		Documents: docs,
		ModelUsed: o.cfg.Model.Name,
	}
	result.Summarize()
	return result, nil
}

// ListJobs returns jobs matching the filter.
func (o *Orchestrator) ListJobs(ctx context.Context, filter results.ListFilter) ([]*results.ProcessingJob, error) {
	return o.store.ListJobs(ctx, filter)
}

func (o *Orchestrator) createJob(ctx context.Context, req Request) (*results.ProcessingJob, error) {
	job := &results.ProcessingJob{
		ID:               uuid.New(),
		SourceType:       req.SourceType,
		SourceReference:  req.SourceReference,
		OriginalFilename: req.Filename,
		Status:           results.StatusPending,
		TenantID:         req.TenantID,
		CorrelationID:    req.CorrelationID,
		Tags:             req.Tags,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	o.putSnapshot(ctx, job)
	return job, nil
}

func (o *Orchestrator) register(jobID uuid.UUID) *jobHandle {
	handle := &jobHandle{}
	o.mu.Lock()
	o.running[jobID] = handle
	o.mu.Unlock()
	return handle
}

func (o *Orchestrator) unregister(jobID uuid.UUID) {
	o.mu.Lock()
	delete(o.running, jobID)
	o.mu.Unlock()
}

// run drives one job through the pipeline. It is the job's single
// collector goroutine: all job record mutations happen here.
func (o *Orchestrator) run(ctx context.Context, job *results.ProcessingJob, req Request, handle *jobHandle) {
	logger := o.logger.WithJob(job.ID.String())

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Pipeline panicked")
			o.finalize(ctx, job, results.StatusFailed, fmt.Sprintf("pipeline panic: %v", r), nil, req)
		}
	}()

	now := time.Now()
	job.StartedAt = &now

	pctx := NewContext(job.ID, req)

	// Whole-file stages, strictly sequential. Any failure here fails
	// the job.
	o.updateStatus(ctx, job, results.StatusIngesting, "ingest", 10)
	err := o.runStage(ctx, o.cfg.Pipeline.Ingest, "ingest", CodeIngestFailed, logger, func(stageCtx context.Context) error {
		file, err := o.svcs.Ingest.Fetch(stageCtx, req.SourceType, req.SourceReference)
		if err != nil {
			return err
		}
		pctx.File = file
		return nil
	})
	if err != nil {
		o.finalize(ctx, job, results.StatusFailed, err.Error(), pctx, req)
		return
	}
	job.FileSizeBytes = pctx.File.FileSizeBytes
	job.MIMEType = pctx.File.MIMEType
	if job.OriginalFilename == "" {
		job.OriginalFilename = pctx.File.Filename
	}

	if o.cancelledBetweenStages(ctx, job, handle, pctx, req) {
		return
	}

	o.updateStatus(ctx, job, results.StatusPreprocessing, "preprocess", 20)
	err = o.runStage(ctx, o.cfg.Pipeline.Preprocess, "preprocess", CodePreprocessFailed, logger, func(stageCtx context.Context) error {
		result, err := o.svcs.Preprocess.Preprocess(stageCtx, *pctx.File)
		if err != nil {
			return err
		}
		pctx.Preprocessing = result
		return nil
	})
	if err != nil {
		o.finalize(ctx, job, results.StatusFailed, err.Error(), pctx, req)
		return
	}
	job.TotalPages = pctx.Preprocessing.TotalPages

	if o.cancelledBetweenStages(ctx, job, handle, pctx, req) {
		return
	}

	o.updateStatus(ctx, job, results.StatusSplitting, "split", 30)
	err = o.runStage(ctx, o.cfg.Pipeline.Split, "split", CodeSplitFailed, logger, func(stageCtx context.Context) error {
		result, err := o.svcs.Split.Split(stageCtx, req.SplittingStrategy, pctx.Preprocessing.Pages)
		if err != nil {
			return err
		}
		pctx.Splitting = result
		return nil
	})
	if err != nil {
		o.finalize(ctx, job, results.StatusFailed, err.Error(), pctx, req)
		return
	}
	job.TotalDocumentsDetected = pctx.Splitting.TotalDocuments

	if o.cancelledBetweenStages(ctx, job, handle, pctx, req) {
		return
	}

	cancelled := o.fanOut(ctx, job, pctx, req, handle, logger)
	if cancelled {
		o.finalize(ctx, job, results.StatusCancelled, "", pctx, req)
		return
	}

	// Aggregate: failed only when literally zero documents succeeded.
	var final results.JobStatus
	switch {
	case job.DocumentsFailed > 0 && job.DocumentsSucceeded > 0:
		final = results.StatusPartiallyCompleted
	case job.DocumentsFailed > 0:
		final = results.StatusFailed
	default:
		final = results.StatusCompleted
	}
	errMsg := ""
	if final == results.StatusFailed {
		errMsg = "all documents failed processing"
	}
	o.finalize(ctx, job, final, errMsg, pctx, req)
}

// docEvent is the message document workers send to the collector.
type docEvent struct {
	index   int
	stage   string
	outcome *results.DocumentResult
}

// fanOut runs the per-document sub-pipeline for every detected
// boundary, bounded by the configured parallelism. It returns whether
// the job was cancelled mid-flight. Only this collector touches the
// job record; workers share nothing but the context accumulators.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	job *results.ProcessingJob,
	pctx *Context,
	req Request,
	handle *jobHandle,
	logger *observability.Logger,
) (cancelled bool) {
	boundaries := pctx.Splitting.Boundaries
	total := len(boundaries)

	shouldClassify, err := o.shouldClassify(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to determine classification mode")
		shouldClassify = true
	}

	events := make(chan docEvent, total*4)
	sem := make(chan struct{}, o.cfg.Pipeline.ParallelDocuments)

	dispatched := 0
	for i, boundary := range boundaries {
		if handle.cancelled() {
			break
		}
		sem <- struct{}{}
		dispatched++

		cursor := newCursor(i, boundary, pctx.Preprocessing.Pages)
		go func() {
			defer func() { <-sem }()
			outcome := o.processDocument(ctx, pctx, req, cursor, shouldClassify, events)
			events <- docEvent{index: cursor.Index, outcome: outcome}
		}()
	}

	// Collect until every dispatched worker reports. Outcomes arriving
	// after a cancellation request are drained and discarded.
	done := 0
	for done < dispatched {
		ev := <-events
		if ev.outcome == nil {
			if !handle.cancelled() {
				o.applyStageEvent(ctx, job, ev, total)
			}
			continue
		}

		done++
		if handle.cancelled() {
			continue
		}

		doc := ev.outcome
		if !doc.Failed {
			if err := o.store.SaveDocumentResult(ctx, doc); err != nil {
				logger.Error().Err(err).Int("document", ev.index).Msg("Failed to persist document result")
				doc.Failed = true
				doc.ErrorMessage = fmt.Sprintf("persist: %v", err)
			}
		}
		if doc.Failed {
			if doc.ErrorMessage != "" {
				logger.Warn().Int("document", ev.index).Str("error", doc.ErrorMessage).Msg("Document processing failed")
			}
			// Failed documents are still recorded so the aggregate
			// result shows what went wrong.
			if err := o.store.SaveDocumentResult(ctx, doc); err != nil {
				logger.Error().Err(err).Int("document", ev.index).Msg("Failed to persist failed document result")
			}
			job.DocumentsFailed++
		} else {
			job.DocumentsSucceeded++
		}
		job.DocumentsProcessed++
		o.putSnapshot(ctx, job)
	}

	return handle.cancelled()
}

// applyStageEvent maps a worker's stage transition onto the job status
// and the original progress curve.
func (o *Orchestrator) applyStageEvent(ctx context.Context, job *results.ProcessingJob, ev docEvent, total int) {
	base := 40.0 + 50.0*float64(ev.index)/float64(max(total, 1))
	switch ev.stage {
	case "classify":
		o.updateStatus(ctx, job, results.StatusClassifying, "classify", base)
	case "extract":
		o.updateStatus(ctx, job, results.StatusExtracting, "extract", base+15)
	case "validate":
		o.updateStatus(ctx, job, results.StatusValidating, "validate", base+30)
	}
}

// processDocument runs classify, field resolution, extract, and
// validate for one document cursor. It never writes to the job record;
// all outcomes flow back through the events channel.
func (o *Orchestrator) processDocument(
	ctx context.Context,
	pctx *Context,
	req Request,
	cursor DocumentCursor,
	shouldClassify bool,
	events chan<- docEvent,
) *results.DocumentResult {
	logger := o.logger.WithJob(pctx.JobID.String())
	start := time.Now()

	doc := &results.DocumentResult{
		ID:                uuid.New(),
		JobID:             pctx.JobID,
		PageRangeStart:    cursor.Boundary.StartPage,
		PageRangeEnd:      cursor.Boundary.EndPage,
		PageCount:         len(cursor.Pages),
		IsValid:           true,
		ValidationScore:   1.0,
		OverallConfidence: results.ConfidenceHigh,
		QualityScore:      pageQuality(cursor.Pages),
	}

	fail := func(err error) *results.DocumentResult {
		doc.Failed = true
		doc.ErrorMessage = err.Error()
		doc.ProcessingDurationMS = time.Since(start).Milliseconds()
		return doc
	}

	if shouldClassify {
		events <- docEvent{index: cursor.Index, stage: "classify"}
		err := o.runStage(ctx, o.cfg.Pipeline.Classify, "classify", CodeClassifyFailed, logger, func(stageCtx context.Context) error {
			result, err := o.svcs.Classify.Classify(stageCtx, classify.Request{
				Pages:          cursor.Pages,
				ExpectedType:   req.ExpectedType,
				ExpectedNature: req.ExpectedNature,
				AdHocTypes:     req.DocumentTypes,
			})
			if err != nil {
				return err
			}
			cursor.Classification = result
			return nil
		})
		if err != nil {
			return fail(err)
		}
		pctx.AddUsage(cursor.Classification.Usage)
	}

	resolved, err := o.resolver.Resolve(ctx, req, cursor.Classification)
	if err != nil {
		return fail(stageError("resolve", CodeResolveFailed, err))
	}
	cursor.ResolvedFields = resolved

	if len(cursor.ResolvedFields) > 0 {
		events <- docEvent{index: cursor.Index, stage: "extract"}
		err := o.runStage(ctx, o.cfg.Pipeline.Extract, "extract", CodeExtractFailed, logger, func(stageCtx context.Context) error {
			instructions := extractionInstructions(cursor.Classification)
			result, err := o.svcs.Extract.Extract(stageCtx, cursor.Pages, cursor.ResolvedFields, instructions)
			if err != nil {
				return err
			}
			cursor.Extraction = result
			return nil
		})
		if err != nil {
			return fail(err)
		}
		pctx.AddUsage(cursor.Extraction.Usage)
	}

	// Validation runs once, no retries: its failures are data.
	events <- docEvent{index: cursor.Index, stage: "validate"}
	validateCtx, cancel := context.WithTimeout(ctx, o.cfg.Pipeline.Validate.Timeout)
	defer cancel()

	var docType *catalog.DocumentType
	if cursor.Classification != nil && cursor.Classification.BestMatch != nil {
		dt := cursor.Classification.BestMatch.DocumentType
		docType = &dt
	}
	extracted := map[string]any{}
	if cursor.Extraction != nil {
		extracted = cursor.Extraction.Fields
	}

	vresults, err := o.svcs.Validate.Validate(validateCtx, cursor.Pages, extracted, docType, cursor.ResolvedFields)
	if err != nil {
		return fail(stageError("validate", CodeValidateFailed, err))
	}
	cursor.ValidationResults = vresults

	// Assemble the result.
	if cursor.Classification != nil && cursor.Classification.BestMatch != nil {
		match := cursor.Classification.BestMatch
		typeID := match.DocumentType.ID
		doc.DocumentTypeID = &typeID
		doc.DocumentTypeCode = match.DocumentType.Code
		doc.ClassificationConfidence = match.Confidence
		doc.ClassificationReasoning = match.Reasoning
	}
	if cursor.Extraction != nil {
		doc.ExtractedFields = cursor.Extraction.Fields
		doc.ExtractionConfidence = cursor.Extraction.Confidences
		doc.TokensUsed = cursor.Extraction.Usage.Tokens
		doc.CostMicroUSD = cursor.Extraction.Usage.CostMicroUSD
	}
	doc.ValidationResults = cursor.ValidationResults
	doc.IsValid = validation.IsValid(cursor.ValidationResults)
	doc.ValidationScore = validation.Score(cursor.ValidationResults)
	doc.OverallConfidence = overallConfidence(doc)
	doc.ProcessingDurationMS = time.Since(start).Milliseconds()

	return doc
}

// runStage executes fn under the stage's timeout, retrying up to the
// stage's retry budget.
func (o *Orchestrator) runStage(
	ctx context.Context,
	sc config.StageConfig,
	name, code string,
	logger *observability.Logger,
	fn func(context.Context) error,
) error {
	attempts := sc.Retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		stageCtx, cancel := context.WithTimeout(ctx, sc.Timeout)
		err := fn(stageCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < attempts {
			logger.Warn().
				Str("stage", name).
				Int("attempt", attempt).
				Int("attempts", attempts).
				Err(err).
				Msg("Stage failed, retrying")
		}
	}

	return stageError(name, code, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr))
}

// cancelledBetweenStages checks the cancellation flag between
// whole-file stages and finalizes the job when set.
func (o *Orchestrator) cancelledBetweenStages(ctx context.Context, job *results.ProcessingJob, handle *jobHandle, pctx *Context, req Request) bool {
	if !handle.cancelled() {
		return false
	}
	o.finalize(ctx, job, results.StatusCancelled, "", pctx, req)
	return true
}

// finalize writes the terminal state and fires the completion webhook.
func (o *Orchestrator) finalize(ctx context.Context, job *results.ProcessingJob, status results.JobStatus, errMsg string, pctx *Context, req Request) {
	now := time.Now()
	job.CompletedAt = &now
	if job.StartedAt != nil {
		job.ProcessingDurationMS = now.Sub(*job.StartedAt).Milliseconds()
	}
	if pctx != nil {
		job.TotalTokensUsed, job.TotalCostMicroUSD = pctx.Usage()
	}
	job.ErrorMessage = errMsg

	progress := 100.0
	if status == results.StatusCancelled {
		progress = job.ProgressPercent
	}
	o.updateStatus(ctx, job, status, "complete", progress)

	o.logger.WithJob(job.ID.String()).Info().
		Str("status", string(status)).
		Int("documents_succeeded", job.DocumentsSucceeded).
		Int("documents_failed", job.DocumentsFailed).
		Int64("tokens_used", job.TotalTokensUsed).
		Int64("cost_micro_usd", job.TotalCostMicroUSD).
		Dur("duration", time.Duration(job.ProcessingDurationMS)*time.Millisecond).
		Msg("Job finished")

	if status == results.StatusCancelled {
		return
	}

	cfg := WebhookConfig{
		URL:        o.cfg.Webhook.URL,
		Secret:     o.cfg.Webhook.Secret,
		RetryCount: o.cfg.Webhook.RetryCount,
		Timeout:    o.cfg.Webhook.Timeout,
	}
	if req.WebhookURL != "" {
		cfg.URL = req.WebhookURL
		cfg.Secret = req.WebhookSecret
	}
	o.webhook.Notify(ctx, cfg, job)
}

// updateStatus mutates the job record, persists it, and refreshes the
// poller snapshot. Must only be called from the job's collector.
func (o *Orchestrator) updateStatus(ctx context.Context, job *results.ProcessingJob, status results.JobStatus, step string, progress float64) {
	job.Status = status
	job.CurrentStep = step
	if progress > 100 {
		progress = 100
	}
	job.ProgressPercent = progress

	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.logger.WithJob(job.ID.String()).Error().Err(err).Msg("Failed to persist job status")
	}
	o.putSnapshot(ctx, job)
}

func (o *Orchestrator) putSnapshot(ctx context.Context, job *results.ProcessingJob) {
	if err := o.status.Put(ctx, *snapshotOf(job)); err != nil {
		o.logger.WithJob(job.ID.String()).Warn().Err(err).Msg("Failed to update status cache")
	}
}

func snapshotOf(job *results.ProcessingJob) *statuscache.Snapshot {
	return &statuscache.Snapshot{
		JobID:              job.ID,
		Status:             job.Status,
		CurrentStep:        job.CurrentStep,
		ProgressPercent:    job.ProgressPercent,
		TotalDocuments:     job.TotalDocumentsDetected,
		DocumentsProcessed: job.DocumentsProcessed,
		DocumentsSucceeded: job.DocumentsSucceeded,
		DocumentsFailed:    job.DocumentsFailed,
		ErrorMessage:       job.ErrorMessage,
		UpdatedAt:          time.Now(),
	}
}

// shouldClassify reports whether classification is meaningful for this
// request. Extraction-only requests (an explicit target schema with no
// document types and no expected type) skip classification entirely.
func (o *Orchestrator) shouldClassify(ctx context.Context, req Request) (bool, error) {
	hasSchema := len(req.inlineFields()) > 0 || len(req.fieldCodes()) > 0
	if hasSchema && len(req.DocumentTypes) == 0 && req.ExpectedType == "" {
		return false, nil
	}
	if len(req.DocumentTypes) > 0 || req.ExpectedType != "" {
		return true, nil
	}
	types, err := o.svcs.Catalog.ActiveDocumentTypes(ctx, req.ExpectedNature)
	if err != nil {
		return false, err
	}
	return len(types) > 0, nil
}

// overallConfidence averages the classification confidence with the
// validation score when the latter is imperfect.
func overallConfidence(doc *results.DocumentResult) results.ConfidenceTier {
	var scores []float64
	if doc.DocumentTypeCode != "" {
		scores = append(scores, doc.ClassificationConfidence)
	}
	if doc.ValidationScore < 1.0 {
		scores = append(scores, doc.ValidationScore)
	}
	if len(scores) == 0 {
		return results.ConfidenceHigh
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return results.TierFromScore(sum / float64(len(scores)))
}

// pageQuality averages the per-page quality scores.
func pageQuality(pages []preprocess.PageImage) float64 {
	if len(pages) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, p := range pages {
		sum += p.QualityScore
	}
	return sum / float64(len(pages))
}

// extractionInstructions pulls type-specific extraction guidance from
// the classification outcome.
func extractionInstructions(c *classify.Result) string {
	if c == nil || c.BestMatch == nil {
		return ""
	}
	return c.BestMatch.DocumentType.ExtractionInstructions
}
