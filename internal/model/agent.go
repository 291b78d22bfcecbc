// Package model defines the vision agent interface used by the
// classification, extraction, and visual validation stages, plus an
// HTTP implementation for OpenAI-compatible chat/completions APIs.
package model

import (
	"context"

	"github.com/spherical-ai/intellidoc/internal/preprocess"
)

// Usage records the token and cost footprint of one agent call. Cost is
// tracked in micro-USD so accumulation stays integer-exact.
type Usage struct {
	Tokens       int64
	CostMicroUSD int64
}

// TypeCandidate is one document type offered to the classifier.
type TypeCandidate struct {
	Code              string
	Name              string
	Description       string
	VisualDescription string
	VisualCues        []string
	SampleKeywords    []string
	Instructions      string
}

// ClassifyRequest asks the agent to pick the best matching candidate
// for a set of page images. When ExpectedType is set the agent performs
// an accept/reject check against that type instead of open ranking.
type ClassifyRequest struct {
	Pages        []preprocess.PageImage
	Candidates   []TypeCandidate
	ExpectedType string
}

// RankedType is a runner-up candidate in a classification answer.
type RankedType struct {
	TypeCode   string
	Confidence float64
}

// ClassifyResult is the agent's ranked classification answer. TypeCode
// is empty when nothing matched. Alternatives holds the remaining
// plausible candidates in descending confidence order.
type ClassifyResult struct {
	TypeCode     string
	Confidence   float64
	Reasoning    string
	Alternatives []RankedType
	Usage        Usage
}

// FieldSpec describes one field the agent should extract.
type FieldSpec struct {
	Code         string
	DisplayName  string
	FieldType    string
	Description  string
	Required     bool
	LocationHint string
	Columns      []FieldSpec
}

// ExtractRequest asks the agent to pull field values out of page images.
type ExtractRequest struct {
	Pages        []preprocess.PageImage
	Fields       []FieldSpec
	Instructions string
}

// ExtractResult carries the extracted values plus per-field confidence
// scores in [0, 1], keyed by field code.
type ExtractResult struct {
	Fields      map[string]any
	Confidences map[string]float64
	RawContent  []byte
	Usage       Usage
}

// VisualRequest asks the agent a yes/no style question about page images.
type VisualRequest struct {
	Pages    []preprocess.PageImage
	Question string
	Expected string
}

// VisualAnswer is the agent's response to a visual question.
type VisualAnswer struct {
	Answer     string
	Passed     bool
	Confidence float64
	Usage      Usage
}

// Agent is a vision-capable document model. Implementations must be safe
// for concurrent use.
type Agent interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error)
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error)
	AnswerVisualQuestion(ctx context.Context, req VisualRequest) (*VisualAnswer, error)
}
