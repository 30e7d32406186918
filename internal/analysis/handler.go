// Package analysis serves saved analyses: create or update with version
// history, listing, export and AI insight.
package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"investment-calculator/internal/auth"
	"investment-calculator/internal/calculator"
	"investment-calculator/internal/export"
	"investment-calculator/internal/insight"
	"investment-calculator/internal/models"
	"investment-calculator/internal/respond"
	"investment-calculator/internal/storage"
)

type Handler struct {
	analyses *storage.AnalysisStore
	users    *storage.UserStore
	insight  insight.Generator
}

func NewHandler(analyses *storage.AnalysisStore, users *storage.UserStore, gen insight.Generator) *Handler {
	return &Handler{analyses: analyses, users: users, insight: gen}
}

// Register mounts the routes on mux. requireAuth must put the caller's user
// id in the request context.
func (h *Handler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	gated := func(f models.Feature, next http.HandlerFunc) http.Handler {
		return requireAuth(auth.RequireFeature(h.users, f)(next))
	}

	mux.Handle("POST /api/analyses", requireAuth(h.Save()))
	mux.Handle("GET /api/analyses", requireAuth(h.List()))
	mux.Handle("GET /api/analyses/{id}", requireAuth(h.Get()))
	mux.Handle("DELETE /api/analyses/{id}", requireAuth(h.Delete()))
	mux.Handle("POST /api/analyses/{id}/evaluate", requireAuth(h.Evaluate()))
	mux.Handle("GET /api/analyses/{id}/versions", gated(models.FeatureVersions, h.Versions()))
	mux.Handle("GET /api/analyses/{id}/export", gated(models.FeatureExport, h.Export()))
	mux.Handle("POST /api/analyses/{id}/insight", gated(models.FeatureInsight, h.Insight()))
	mux.Handle("GET /api/me", requireAuth(h.Me()))
}

type saveRequest struct {
	Address string                `json:"address"`
	Type    models.CalculatorType `json:"type"`
	Inputs  json.RawMessage       `json:"inputs"`
	Notes   string                `json:"notes"`
}

// payload is the stored JSON shape of an analysis.
type payload struct {
	Inputs  json.RawMessage `json:"inputs"`
	Outputs json.RawMessage `json:"outputs"`
}

func (h *Handler) Save() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req saveRequest
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
			serverError(w, r, "calculation failed", err)
			return
		}
		body, err := json.Marshal(map[string]any{"inputs": result.Inputs, "outputs": result.Outputs})
		if err != nil {
			serverError(w, r, "failed to encode analysis", err)
			return
		}

		a, created, err := h.analyses.Save(r.Context(), storage.SaveParams{
			UserID:  userID,
			Address: req.Address,
			Type:    req.Type,
			Payload: body,
			Notes:   req.Notes,
		})
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrInvalid):
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, storage.ErrLimitReached):
			respond.Error(w, http.StatusForbidden, fmt.Sprintf(
				"free plan is limited to %d saved analyses; upgrade to save more", h.analyses.FreeLimit()))
			return
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		default:
			serverError(w, r, "failed to save analysis", err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		slog.InfoContext(r.Context(), "analysis saved", "analysis_id", a.ID, "version", a.Version, "created", created)
		respond.JSON(w, status, a)
	}
}

func (h *Handler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())

		var (
			list []models.Analysis
			err  error
		)
		if q := r.URL.Query().Get("q"); q != "" {
			list, err = h.analyses.Search(r.Context(), userID, q)
		} else {
			list, err = h.analyses.List(r.Context(), userID)
		}
		if err != nil {
			serverError(w, r, "failed to list analyses", err)
			return
		}
		if list == nil {
			list = []models.Analysis{}
		}
		respond.JSON(w, http.StatusOK, list)
	}
}

func (h *Handler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := h.load(w, r)
		if !ok {
			return
		}
		respond.JSON(w, http.StatusOK, a)
	}
}

func (h *Handler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := h.analyses.Delete(r.Context(), userID, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusNotFound, "analysis not found")
				return
			}
			serverError(w, r, "failed to delete analysis", err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

func (h *Handler) Versions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		versions, err := h.analyses.Versions(r.Context(), userID, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusNotFound, "analysis not found")
				return
			}
			serverError(w, r, "failed to list versions", err)
			return
		}
		respond.JSON(w, http.StatusOK, versions)
	}
}

func (h *Handler) Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = "csv"
		}
		if format != "csv" && format != "pdf" {
			respond.Error(w, http.StatusBadRequest, "format must be csv or pdf")
			return
		}

		a, ok := h.load(w, r)
		if !ok {
			return
		}

		var (
			buf         bytes.Buffer
			err         error
			contentType string
		)
		switch format {
		case "csv":
			contentType = "text/csv; charset=utf-8"
			err = export.CSV(&buf, a)
		case "pdf":
			contentType = "application/pdf"
			err = export.PDF(&buf, a)
		}
		if err != nil {
			serverError(w, r, "export failed", err)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, export.Filename(a, format)))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			slog.WarnContext(r.Context(), "failed to write export", "err", err)
		}
	}
}

func (h *Handler) Insight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := h.load(w, r)
		if !ok {
			return
		}
		req, err := insightRequest(a)
		if err != nil {
			serverError(w, r, "failed to read analysis payload", err)
			return
		}

		out, err := h.insight.Generate(r.Context(), req)
		if err != nil {
			slog.ErrorContext(r.Context(), "insight generation failed", "analysis_id", a.ID, "err", err)
			respond.Error(w, http.StatusBadGateway, "insight provider unavailable")
			return
		}
		if err := h.analyses.SetAISummary(r.Context(), a.UserID, a.ID, out.Text()); err != nil {
			serverError(w, r, "failed to store insight", err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{"analysisId": a.ID, "insight": out})
	}
}

type evaluateRequest struct {
	Expression string `json:"expression"`
}

// Evaluate runs a custom formula over the saved inputs and outputs. Output
// names shadow input names.
func (h *Handler) Evaluate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req evaluateRequest
		if err := respond.Decode(r, &req); err != nil || req.Expression == "" {
			respond.Error(w, http.StatusBadRequest, "expression required")
			return
		}
		a, ok := h.load(w, r)
		if !ok {
			return
		}
		vars, err := variables(a)
		if err != nil {
			serverError(w, r, "failed to read analysis payload", err)
			return
		}

		result, err := calculator.EvaluateExpression(req.Expression, vars)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"expression": req.Expression,
			"result":     result,
			"variables":  calculator.Names(vars),
		})
	}
}

type meResponse struct {
	ID            int64                   `json:"id"`
	Email         string                  `json:"email"`
	Tier          models.Tier             `json:"tier"`
	AnalysisCount int64                   `json:"analysisCount"`
	AnalysisLimit *int                    `json:"analysisLimit"`
	Features      map[models.Feature]bool `json:"features"`
}

func (h *Handler) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		user, err := h.users.ByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			serverError(w, r, "failed to load user", err)
			return
		}
		count, err := h.analyses.Count(r.Context(), userID)
		if err != nil {
			serverError(w, r, "failed to count analyses", err)
			return
		}

		resp := meResponse{
			ID:            user.ID,
			Email:         user.Email,
			Tier:          user.Tier,
			AnalysisCount: count,
			Features:      map[models.Feature]bool{},
		}
		if user.Tier == models.TierFree {
			limit := h.analyses.FreeLimit()
			resp.AnalysisLimit = &limit
		}
		for _, f := range []models.Feature{models.FeatureExport, models.FeatureVersions, models.FeatureInsight} {
			resp.Features[f] = user.Tier.Allows(f)
		}
		respond.JSON(w, http.StatusOK, resp)
	}
}

// load fetches the caller's analysis named by the {id} path value, writing
// the error response itself when it fails.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (models.Analysis, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return models.Analysis{}, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return models.Analysis{}, false
	}
	a, err := h.analyses.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "analysis not found")
			return models.Analysis{}, false
		}
		serverError(w, r, "failed to load analysis", err)
		return models.Analysis{}, false
	}
	return a, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid analysis id")
		return 0, false
	}
	return id, true
}

func decodePayload(a models.Analysis) (payload, error) {
	var p payload
	if len(a.Payload) == 0 {
		return p, nil
	}
	err := json.Unmarshal(a.Payload, &p)
	return p, err
}

func variables(a models.Analysis) (map[string]float64, error) {
	p, err := decodePayload(a)
	if err != nil {
		return nil, err
	}
	vars := map[string]float64{}
	for _, raw := range []json.RawMessage{p.Inputs, p.Outputs} {
		if len(raw) == 0 {
			continue
		}
		flat, err := calculator.Flatten(raw)
		if err != nil {
			return nil, err
		}
		for k, v := range flat {
			vars[k] = v
		}
	}
	return vars, nil
}

func insightRequest(a models.Analysis) (insight.Request, error) {
	p, err := decodePayload(a)
	if err != nil {
		return insight.Request{}, err
	}
	req := insight.Request{Type: a.CalculatorType, Address: a.Address}
	if len(p.Inputs) > 0 {
		if req.Inputs, err = calculator.Flatten(p.Inputs); err != nil {
			return insight.Request{}, err
		}
	}
	if len(p.Outputs) > 0 {
		if req.Outputs, err = calculator.Flatten(p.Outputs); err != nil {
			return insight.Request{}, err
		}
	}
	return req, nil
}

func serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg, "err", err)
	respond.Error(w, http.StatusInternalServerError, "internal error")
}
