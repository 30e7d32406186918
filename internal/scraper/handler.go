package scraper

import (
	"errors"
	"log/slog"
	"net/http"

	"investment-calculator/internal/models"
	"investment-calculator/internal/respond"
)

type scrapeRequest struct {
	URL  string                `json:"url"`
	Type models.CalculatorType `json:"type"`
}

type scrapeResponse struct {
	Listing Listing            `json:"listing"`
	Prefill map[string]float64 `json:"prefill,omitempty"`
}

// Handler serves POST /api/scrape.
func Handler(s *Scraper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		if err := respond.Decode(r, &req); err != nil || req.URL == "" {
			respond.Error(w, http.StatusBadRequest, "url required")
			return
		}

		listing, err := s.Scrape(r.Context(), req.URL)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrUnsupportedSite):
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, ErrExtraction):
			respond.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		default:
			slog.WarnContext(r.Context(), "listing import failed", "url", req.URL, "err", err)
			respond.Error(w, http.StatusBadGateway, ErrNavigation.Error())
			return
		}

		resp := scrapeResponse{Listing: listing}
		if req.Type.Valid() {
			resp.Prefill = listing.Prefill(req.Type)
		}
		respond.JSON(w, http.StatusOK, resp)
	}
}
