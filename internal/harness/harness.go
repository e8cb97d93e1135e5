// Package harness runs a user's stored prompts against the generation
// service and records scored results.
package harness

import (
	"context"
	"strings"

	"smartadl/internal/history"
	"smartadl/internal/prompts"
)

// Generator is the external text-generation service: given a model
// identifier and a prompt, return generated text or fail.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Outcome is the result of testing one prompt. When Err is set the call
// failed, nothing was recorded, and Answer/Correct are meaningless.
type Outcome struct {
	PromptID int64
	Prompt   string
	Expected string
	Answer   string
	Correct  bool
	Err      error
}

type Harness struct {
	prompts   *prompts.Service
	history   *history.Store
	generator Generator
	model     string
}

func New(p *prompts.Service, h *history.Store, g Generator, model string) *Harness {
	return &Harness{prompts: p, history: h, generator: g, model: model}
}

// Score reports whether expected occurs in answer, case-insensitively.
// Deliberately lenient: partial and coincidental matches count.
func Score(expected, answer string) bool {
	return strings.Contains(strings.ToLower(answer), strings.ToLower(expected))
}

// Run tests every stored prompt for user, sequentially: one generation
// call per prompt, substring scoring, one history row per successful
// call. A failed call is captured in that prompt's Outcome and the loop
// moves on; no history row is written for it. Zero stored prompts means
// zero calls.
func (h *Harness) Run(ctx context.Context, user string) ([]Outcome, error) {
	stored, err := h.prompts.List(user)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(stored))
	for _, p := range stored {
		out := Outcome{PromptID: p.ID, Prompt: p.Prompt, Expected: p.Expected}

		answer, err := h.generator.Generate(ctx, h.model, p.Prompt)
		if err != nil {
			out.Err = err
			outcomes = append(outcomes, out)
			continue
		}

		out.Answer = answer
		out.Correct = Score(p.Expected, answer)
		if err := h.history.RecordTest(user, p.Prompt, p.Expected, answer, out.Correct); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}
