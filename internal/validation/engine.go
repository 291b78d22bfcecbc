// Package validation runs catalog validator definitions against
// extracted document data. Handlers are registered per validator type;
// the engine guarantees one result per validator and never propagates
// handler failure.
package validation

import (
	"context"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// Input is the document data a validator runs against.
type Input struct {
	Fields map[string]any
	Pages  []preprocess.PageImage
}

// Handler implements one validator type. A returned error is captured
// by the engine as a failed result, never propagated.
type Handler interface {
	Type() catalog.ValidatorType
	Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error)
}

// Engine dispatches validator definitions to registered handlers.
type Engine struct {
	handlers map[catalog.ValidatorType]Handler
	logger   *observability.Logger
}

// NewEngine creates an engine with the given handlers. Later handlers
// replace earlier ones of the same type.
func NewEngine(logger *observability.Logger, handlers ...Handler) *Engine {
	m := make(map[catalog.ValidatorType]Handler, len(handlers))
	for _, h := range handlers {
		m[h.Type()] = h
	}
	return &Engine{handlers: m, logger: logger}
}

// Run executes every active definition and returns exactly one result
// per definition. A panicking or erroring handler, or a missing
// handler, yields a synthesized failed result; subsequent validators
// always still run.
func (e *Engine) Run(ctx context.Context, in Input, defs []catalog.ValidatorDefinition) []results.ValidationResult {
	out := make([]results.ValidationResult, 0, len(defs))

	for _, def := range defs {
		if !def.IsActive {
			continue
		}

		handler, ok := e.handlers[def.Type]
		if !ok {
			e.logger.Warn().
				Str("validator", def.Code).
				Str("validator_type", string(def.Type)).
				Msg("No handler registered for validator type")
			out = append(out, Fail(def, fmt.Sprintf("no handler for validator type: %s", def.Type)))
			continue
		}

		result := e.runOne(ctx, handler, in, def)
		out = append(out, result)

		if result.Passed {
			e.logger.Debug().
				Str("validator", def.Code).
				Msg("Validator passed")
		} else {
			e.logger.Warn().
				Str("validator", def.Code).
				Str("severity", string(result.Severity)).
				Str("message", result.Message).
				Msg("Validator failed")
		}
	}

	return out
}

// runOne invokes a single handler with a panic guard.
func (e *Engine) runOne(ctx context.Context, h Handler, in Input, def catalog.ValidatorDefinition) (result results.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("validator", def.Code).
				Interface("panic", r).
				Msg("Validator panicked")
			result = Fail(def, fmt.Sprintf("validator panic: %v", r))
		}
	}()

	result, err := h.Validate(ctx, in, def)
	if err != nil {
		return Fail(def, fmt.Sprintf("validator error: %v", err))
	}
	return result
}

// Pass builds a passing result for a definition.
func Pass(def catalog.ValidatorDefinition, message string) results.ValidationResult {
	return results.ValidationResult{
		ValidatorID:   def.ID,
		ValidatorCode: def.Code,
		ValidatorName: def.Name,
		Passed:        true,
		Severity:      def.Severity,
		Message:       message,
	}
}

// Fail builds a failing result for a definition.
func Fail(def catalog.ValidatorDefinition, message string) results.ValidationResult {
	return results.ValidationResult{
		ValidatorID:   def.ID,
		ValidatorCode: def.Code,
		ValidatorName: def.Name,
		Passed:        false,
		Severity:      def.Severity,
		Message:       message,
	}
}

// Score computes the fraction of results that passed. No results means
// a perfect score.
func Score(rs []results.ValidationResult) float64 {
	if len(rs) == 0 {
		return 1.0
	}
	passed := 0
	for _, r := range rs {
		if r.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(rs))
}

// IsValid reports whether all error-severity checks passed.
func IsValid(rs []results.ValidationResult) bool {
	for _, r := range rs {
		if !r.Passed && r.Severity == catalog.SeverityError {
			return false
		}
	}
	return true
}
