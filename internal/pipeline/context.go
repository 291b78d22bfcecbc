package pipeline

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
	"github.com/spherical-ai/intellidoc/internal/extract"
	"github.com/spherical-ai/intellidoc/internal/ingest"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
	"github.com/spherical-ai/intellidoc/internal/results"
	"github.com/spherical-ai/intellidoc/internal/split"
)

// Context carries one job's pipeline state. Whole-file fields are
// write-once, set by the sequential stages before the fan-out; the
// usage accumulators are the only fields mutated from concurrent
// fan-out units.
type Context struct {
	JobID   uuid.UUID
	Request Request

	// Whole-file artifacts, write-once.
	File          *ingest.FileReference
	Preprocessing *preprocess.Result
	Splitting     *split.Result

	// Shared accumulators, updated from concurrent document workers.
	tokensUsed   atomic.Int64
	costMicroUSD atomic.Int64
}

// NewContext creates a pipeline context for a job.
func NewContext(jobID uuid.UUID, req Request) *Context {
	return &Context{JobID: jobID, Request: req}
}

// AddUsage accumulates model token and cost usage. Safe for concurrent use.
func (c *Context) AddUsage(u model.Usage) {
	c.tokensUsed.Add(u.Tokens)
	c.costMicroUSD.Add(u.CostMicroUSD)
}

// Usage returns the accumulated token count and cost.
func (c *Context) Usage() (tokens, costMicroUSD int64) {
	return c.tokensUsed.Load(), c.costMicroUSD.Load()
}

// DocumentCursor is the per-document working state for one fan-out
// unit. Each concurrent unit owns its own cursor value; nothing here
// is shared between documents.
type DocumentCursor struct {
	Index    int
	Boundary split.DocumentBoundary
	Pages    []preprocess.PageImage

	Classification    *classify.Result
	ResolvedFields    []catalog.CatalogField
	Extraction        *extract.Result
	ValidationResults []results.ValidationResult
}

// newCursor builds a fresh cursor for one boundary, selecting the
// boundary's page range from the whole-file preprocessing result.
func newCursor(index int, boundary split.DocumentBoundary, pages []preprocess.PageImage) DocumentCursor {
	var subset []preprocess.PageImage
	for _, p := range pages {
		if p.PageNumber >= boundary.StartPage && p.PageNumber <= boundary.EndPage {
			subset = append(subset, p)
		}
	}
	return DocumentCursor{Index: index, Boundary: boundary, Pages: subset}
}
