package calculator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"investment-calculator/internal/models"
	"investment-calculator/internal/respond"
)

type CalculateRequest struct {
	Expression string             `json:"expression"`
	Variables  map[string]float64 `json:"variables"`
}

type CalculateResponse struct {
	Result string `json:"result"`
}

// CalculateHandler runs one of the property calculators. The request body is
// the calculator's input object.
func CalculateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := models.CalculatorType(r.PathValue("type"))
		if !t.Valid() {
			respond.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown calculator type %q", t))
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil || (len(raw) > 0 && !json.Valid(raw)) {
			respond.Error(w, http.StatusBadRequest, "invalid request")
			return
		}

		result, err := Evaluate(t, raw)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				respond.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.ErrorContext(r.Context(), "calculation failed", "type", t, "err", err)
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		respond.JSON(w, http.StatusOK, result)
	}
}

// ExpressionHandler evaluates a free-form formula over caller-supplied variables.
func ExpressionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CalculateRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.Expression == "" {
			respond.Error(w, http.StatusBadRequest, "expression required")
			return
		}

		result, err := EvaluateExpression(req.Expression, req.Variables)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		respond.JSON(w, http.StatusOK, CalculateResponse{Result: fmt.Sprintf("%v", result)})
	}
}
