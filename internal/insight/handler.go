package insight

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"investment-calculator/internal/calculator"
	"investment-calculator/internal/models"
	"investment-calculator/internal/respond"
)

type insightRequest struct {
	Type    models.CalculatorType `json:"type"`
	Address string                `json:"address"`
	Inputs  json.RawMessage       `json:"inputs"`
}

// BuildRequest runs the calculator so the generator sees the same numbers the
// user does.
func BuildRequest(t models.CalculatorType, address string, result calculator.Result) (Request, error) {
	inputs, err := calculator.Flatten(result.Inputs)
	if err != nil {
		return Request{}, err
	}
	outputs, err := calculator.Flatten(result.Outputs)
	if err != nil {
		return Request{}, err
	}
	return Request{Type: t, Address: address, Inputs: inputs, Outputs: outputs}, nil
}

// Handler serves POST /api/insight for unsaved calculator inputs.
func Handler(gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req insightRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		if !req.Type.Valid() {
			respond.Error(w, http.StatusBadRequest, "unknown calculator type")
			return
		}

		result, err := calculator.Evaluate(req.Type, req.Inputs)
		if err != nil {
			if errors.Is(err, calculator.ErrInvalidInput) {
				respond.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}

		genReq, err := BuildRequest(req.Type, req.Address, result)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		out, err := gen.Generate(r.Context(), genReq)
		if err != nil {
			slog.ErrorContext(r.Context(), "insight generation failed", "type", req.Type, "err", err)
			respond.Error(w, http.StatusBadGateway, "insight provider unavailable")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"insight": out,
			"outputs": result.Outputs,
		})
	}
}
