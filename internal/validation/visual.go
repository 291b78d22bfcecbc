package validation

import (
	"context"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// VisualHandler delegates a natural-language visual check (signature,
// stamp, photo, watermark presence) to the vision agent.
type VisualHandler struct {
	agent model.Agent
}

// NewVisualHandler creates a model-backed visual validator.
func NewVisualHandler(agent model.Agent) *VisualHandler {
	return &VisualHandler{agent: agent}
}

func (h *VisualHandler) Type() catalog.ValidatorType { return catalog.ValidatorVisual }

func (h *VisualHandler) Validate(ctx context.Context, in Input, def catalog.ValidatorDefinition) (results.ValidationResult, error) {
	if len(in.Pages) == 0 {
		return Fail(def, "no page images available for visual validation"), nil
	}

	prompt := def.VisualPrompt
	if prompt == "" {
		prompt = def.Description
	}
	expected := def.VisualExpected
	if expected == "" {
		expected = "present"
	}

	answer, err := h.agent.AnswerVisualQuestion(ctx, model.VisualRequest{
		Pages:    in.Pages,
		Question: prompt,
		Expected: expected,
	})
	if err != nil {
		return results.ValidationResult{}, fmt.Errorf("visual validation: %w", err)
	}

	details := map[string]any{
		"confidence": answer.Confidence,
		"answer":     answer.Answer,
	}
	if answer.Passed {
		r := Pass(def, "visual check passed: "+answer.Answer)
		r.Details = details
		return r, nil
	}
	r := Fail(def, "visual check failed: "+prompt)
	r.Details = details
	return r, nil
}
