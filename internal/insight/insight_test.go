package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"investment-calculator/internal/models"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/require"
)

func TestMockGenerator_Rental(t *testing.T) {
	out, err := MockGenerator{}.Generate(context.Background(), Request{
		Type:    models.CalculatorRental,
		Address: "1 Elm St",
		Outputs: map[string]float64{
			"monthlyCashFlow":          450,
			"capRate":                  9.2,
			"cashOnCashReturn":         12.5,
			"debtServiceCoverageRatio": 1.6,
		},
	})
	require.NoError(t, err)
	require.Equal(t, VerdictStrong, out.Verdict)
	require.Equal(t, "mock", out.Provider)
	require.True(t, strings.HasPrefix(out.Summary, "1 Elm St:"))
	require.Len(t, out.Highlights, 4)
	require.Empty(t, out.Risks)
}

func TestMockGenerator_NegativeCashFlow(t *testing.T) {
	out, err := MockGenerator{}.Generate(context.Background(), Request{
		Type: models.CalculatorAirbnb,
		Outputs: map[string]float64{
			"monthlyCashFlow":    -220,
			"capRate":            3.1,
			"cashOnCashReturn":   -4,
			"breakEvenOccupancy": 92,
		},
	})
	require.NoError(t, err)
	require.Equal(t, VerdictWeak, out.Verdict)
	require.Len(t, out.Risks, 4)
	require.Contains(t, out.Risks[0], "Negative cash flow of $220")
}

func TestMockGenerator_WholesaleAndMortgage(t *testing.T) {
	out, err := MockGenerator{}.Generate(context.Background(), Request{
		Type:    models.CalculatorWholesale,
		Outputs: map[string]float64{"isGoodDeal": 0, "dealSpread": -5000, "buyerROI": 8},
	})
	require.NoError(t, err)
	require.Equal(t, VerdictWeak, out.Verdict)
	require.Contains(t, out.Risks[0], "$5000")

	out, err = MockGenerator{}.Generate(context.Background(), Request{
		Type:    models.CalculatorMortgage,
		Outputs: map[string]float64{"loanToValue": 95, "monthlyPMI": 120, "loanAmount": 300000, "totalInterest": 350000},
	})
	require.NoError(t, err)
	require.Equal(t, VerdictWeak, out.Verdict)
	require.Contains(t, out.Risks[0], "PMI of $120")

	out, err = MockGenerator{}.Generate(context.Background(), Request{
		Type:    models.CalculatorMortgage,
		Outputs: map[string]float64{"loanToValue": 90, "monthlyPMI": 0, "loanAmount": 270000, "totalInterest": 100000},
	})
	require.NoError(t, err)
	require.NotContains(t, out.Text(), "PMI of $0")
	require.Contains(t, out.Text(), "expect lenders to require PMI")
	_, err = MockGenerator{}.Generate(context.Background(), Request{Type: "condo"})
	require.Error(t, err)
}

func TestNewPicksMockWithoutKey(t *testing.T) {
	require.IsType(t, MockGenerator{}, New("", ""))
	require.IsType(t, &OpenAIGenerator{}, New("sk-test", ""))
}

func fakeResponsesServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/responses", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), "capRate")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "resp_1",
			"object":     "response",
			"created_at": 1700000000,
			"model":      "gpt-4o-mini",
			"status":     "completed",
			"output": []any{map[string]any{
				"type":   "message",
				"id":     "msg_1",
				"status": "completed",
				"role":   "assistant",
				"content": []any{map[string]any{
					"type":        "output_text",
					"text":        text,
					"annotations": []any{},
				}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerator(t *testing.T) {
	srv := fakeResponsesServer(t, "```json\n{\"summary\":\"Good deal.\",\"verdict\":\"strong\",\"highlights\":[\"cash flow\"],\"risks\":[]}\n```")
	gen := NewOpenAIGenerator("sk-test", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	out, err := gen.Generate(context.Background(), Request{
		Type:    models.CalculatorRental,
		Outputs: map[string]float64{"capRate": 7.5},
	})
	require.NoError(t, err)
	require.Equal(t, "Good deal.", out.Summary)
	require.Equal(t, VerdictStrong, out.Verdict)
	require.Equal(t, "openai:gpt-4o-mini", out.Provider)
}

func TestOpenAIGenerator_BadJSON(t *testing.T) {
	srv := fakeResponsesServer(t, "I think it is fine")
	gen := NewOpenAIGenerator("sk-test", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

	_, err := gen.Generate(context.Background(), Request{
		Type:    models.CalculatorRental,
		Outputs: map[string]float64{"capRate": 7.5},
	})
	require.Error(t, err)
}

func TestHandler(t *testing.T) {
	handler := Handler(MockGenerator{})

	body := `{"type":"rental","inputs":{"purchasePrice":200000,"downPaymentPercent":20,"interestRate":6,"monthlyRent":2200}}`
	req := httptest.NewRequest(http.MethodPost, "/api/insight", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Insight Insight `json:"insight"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, "mock", resp.Insight.Provider)
	require.NotEmpty(t, resp.Insight.Summary)

	req = httptest.NewRequest(http.MethodPost, "/api/insight", bytes.NewBufferString(`{"type":"condo"}`))
	w = httptest.NewRecorder()
	handler(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInsightText(t *testing.T) {
	text := Insight{Summary: "Fine.", Highlights: []string{"a"}, Risks: []string{"b"}}.Text()
	require.Equal(t, "Fine.\n+ a\n- b", text)
}
