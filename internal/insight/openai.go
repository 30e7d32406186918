package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = `You are a real estate investment analyst. You receive the inputs and computed
results of a property calculator (mortgage, rental, airbnb or wholesale).
Assess the deal in plain language for a retail investor.

Respond with a single JSON object and nothing else:
{
  "summary": "2-4 sentences",
  "verdict": "strong" | "fair" | "weak",
  "highlights": ["short bullet", ...],
  "risks": ["short bullet", ...]
}
Only use the numbers you are given. Percentages are already multiplied by 100.`

// OpenAIGenerator asks the Responses API for an assessment.
type OpenAIGenerator struct {
	client *openai.Client
	model  shared.ResponsesModel
}

func NewOpenAIGenerator(apiKey, model string, opts ...option.RequestOption) *OpenAIGenerator {
	if model == "" {
		model = defaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{client: &client, model: shared.ResponsesModel(model)}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Insight, error) {
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return Insight{}, fmt.Errorf("encode request: %w", err)
	}

	resp, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(string(payload), responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return Insight{}, fmt.Errorf("call OpenAI: %w", err)
	}

	output := stripFences(strings.TrimSpace(resp.OutputText()))
	if output == "" {
		return Insight{}, ErrEmptyResponse
	}

	var out Insight
	if err := json.Unmarshal([]byte(output), &out); err != nil {
		return Insight{}, fmt.Errorf("unmarshal JSON: %w", err)
	}
	switch out.Verdict {
	case VerdictStrong, VerdictFair, VerdictWeak:
	default:
		out.Verdict = VerdictFair
	}
	out.Provider = "openai:" + string(g.model)
	return out, nil
}

// stripFences removes a ```json ... ``` wrapper some models add.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
