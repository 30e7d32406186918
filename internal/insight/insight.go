// Package insight produces short written assessments of calculator results,
// either from an OpenAI model or from built-in rules when no API key is set.
package insight

import (
	"context"
	"errors"

	"investment-calculator/internal/models"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

type Verdict string

const (
	VerdictStrong Verdict = "strong"
	VerdictFair   Verdict = "fair"
	VerdictWeak   Verdict = "weak"
)

// Request carries the flattened numeric inputs and outputs of one analysis.
type Request struct {
	Type    models.CalculatorType `json:"type"`
	Address string                `json:"address,omitempty"`
	Inputs  map[string]float64    `json:"inputs"`
	Outputs map[string]float64    `json:"outputs"`
}

type Insight struct {
	Summary    string   `json:"summary"`
	Verdict    Verdict  `json:"verdict"`
	Highlights []string `json:"highlights"`
	Risks      []string `json:"risks"`
	Provider   string   `json:"provider"`
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Insight, error)
}

// New returns an OpenAI-backed generator when apiKey is set and the rule-based
// mock otherwise.
func New(apiKey, model string) Generator {
	if apiKey == "" {
		return MockGenerator{}
	}
	return NewOpenAIGenerator(apiKey, model)
}
