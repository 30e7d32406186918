package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"investment-calculator/internal/auth"
	"investment-calculator/internal/insight"
	"investment-calculator/internal/models"
	"investment-calculator/internal/storage"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	mux    *http.ServeMux
	users  *storage.UserStore
	issuer *auth.Issuer
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)

	users := storage.NewUserStore(db)
	issuer := auth.NewIssuer("test-secret", time.Hour)
	h := NewHandler(storage.NewAnalysisStore(db, 2), users, insight.MockGenerator{})

	mux := http.NewServeMux()
	h.Register(mux, auth.Middleware(issuer))
	return &testEnv{mux: mux, users: users, issuer: issuer}
}

func (e *testEnv) user(t *testing.T, email string, tier models.Tier) string {
	t.Helper()
	u, err := e.users.Create(context.Background(), email, "hash")
	require.NoError(t, err)
	if tier != models.TierFree {
		require.NoError(t, e.users.SetTier(context.Background(), u.ID, tier))
	}
	token, err := e.issuer.IssueToken(u.ID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func rentalBody(address string, rent int) string {
	return fmt.Sprintf(`{
		"address": %q,
		"type": "rental",
		"notes": "rent %d",
		"inputs": {"purchasePrice": 200000, "downPaymentPercent": 20, "interestRate": 6, "monthlyRent": %d}
	}`, address, rent, rent)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestSave_CreatesThenVersions(t *testing.T) {
	env := setupTestEnv(t)
	token := env.user(t, "a@example.com", models.TierPro)

	w := env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("12 Oak St", 2000))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[models.Analysis](t, w)
	require.Equal(t, 1, first.Version)
	require.Contains(t, string(first.Payload), `"capRate"`)

	w = env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("12  oak st.", 2300))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode[models.Analysis](t, w)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, second.Version)

	w = env.do(t, token, http.MethodGet, "/api/analyses", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.Analysis](t, w), 1)

	w = env.do(t, token, http.MethodGet, fmt.Sprintf("/api/analyses/%d/versions", first.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	versions := decode[[]models.AnalysisVersion](t, w)
	require.Len(t, versions, 2)
	require.Equal(t, 2, versions[0].Version)
	require.Equal(t, "rent 2000", versions[1].Notes)
}

func TestSave_Validation(t *testing.T) {
	env := setupTestEnv(t)
	token := env.user(t, "v@example.com", models.TierFree)

	cases := map[string]string{
		"unknown type":   `{"address":"1 A St","type":"condo","inputs":{}}`,
		"bad inputs":     `{"address":"1 A St","type":"rental","inputs":{"purchasePrice":-5}}`,
		"missing addr":   `{"address":"  ","type":"wholesale","inputs":{"afterRepairValue":100000}}`,
		"malformed json": `{"address":`,
		"zero term":      `{"address":"1 A St","type":"rental","inputs":{"purchasePrice":200000,"monthlyRent":2000,"loanTermYears":0}}`,
	}
	for name, body := range cases {
		w := env.do(t, token, http.MethodPost, "/api/analyses", body)
		require.Equal(t, http.StatusBadRequest, w.Code, name)
		require.Contains(t, w.Body.String(), `"error"`, name)
	}
}

func TestSave_FreeLimit(t *testing.T) {
	env := setupTestEnv(t)
	token := env.user(t, "free@example.com", models.TierFree)

	for i := 1; i <= 2; i++ {
		w := env.do(t, token, http.MethodPost, "/api/analyses", rentalBody(fmt.Sprintf("%d Main St", i), 2000))
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("3 Main St", 2000))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "limited to 2")

	// updating an existing analysis is still allowed at the cap
	w = env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("1 Main St", 2100))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, token, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[meResponse](t, w)
	require.Equal(t, int64(2), me.AnalysisCount)
	require.NotNil(t, me.AnalysisLimit)
	require.Equal(t, 2, *me.AnalysisLimit)
	require.False(t, me.Features[models.FeatureExport])
}

func TestTierGating(t *testing.T) {
	env := setupTestEnv(t)
	free := env.user(t, "free@example.com", models.TierFree)
	pro := env.user(t, "pro@example.com", models.TierPro)
	elite := env.user(t, "elite@example.com", models.TierElite)

	ids := map[string]int64{}
	for name, token := range map[string]string{"free": free, "pro": pro, "elite": elite} {
		w := env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("5 Elm St", 2000))
		require.Equal(t, http.StatusCreated, w.Code)
		ids[name] = decode[models.Analysis](t, w).ID
	}

	require.Equal(t, http.StatusForbidden, env.do(t, free, http.MethodGet, fmt.Sprintf("/api/analyses/%d/versions", ids["free"]), "").Code)
	require.Equal(t, http.StatusForbidden, env.do(t, free, http.MethodGet, fmt.Sprintf("/api/analyses/%d/export", ids["free"]), "").Code)
	require.Equal(t, http.StatusForbidden, env.do(t, pro, http.MethodPost, fmt.Sprintf("/api/analyses/%d/insight", ids["pro"]), "").Code)

	w := env.do(t, elite, http.MethodPost, fmt.Sprintf("/api/analyses/%d/insight", ids["elite"]), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, elite, http.MethodGet, fmt.Sprintf("/api/analyses/%d", ids["elite"]), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, decode[models.Analysis](t, w).AISummary)

	w = env.do(t, pro, http.MethodGet, "/api/me", "")
	me := decode[meResponse](t, w)
	require.Nil(t, me.AnalysisLimit)
	require.True(t, me.Features[models.FeatureExport])
	require.False(t, me.Features[models.FeatureInsight])
}

func TestExport(t *testing.T) {
	env := setupTestEnv(t)
	token := env.user(t, "pro@example.com", models.TierPro)

	w := env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("77 Sunset Blvd", 2400))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.Analysis](t, w).ID

	w = env.do(t, token, http.MethodGet, fmt.Sprintf("/api/analyses/%d/export?format=csv", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "77-sunset-blvd-rental.csv")
	require.True(t, strings.HasPrefix(w.Body.String(), "section,field,value\n"))
	require.Contains(t, w.Body.String(), "outputs,capRate,")

	w = env.do(t, token, http.MethodGet, fmt.Sprintf("/api/analyses/%d/export?format=pdf", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = env.do(t, token, http.MethodGet, fmt.Sprintf("/api/analyses/%d/export?format=xlsx", id), "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateAndSearch(t *testing.T) {
	env := setupTestEnv(t)
	token := env.user(t, "e@example.com", models.TierPro)

	w := env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("400 Lakeshore Dr", 2000))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.Analysis](t, w).ID
	env.do(t, token, http.MethodPost, "/api/analyses", rentalBody("9 Canyon Rd", 2000))

	w = env.do(t, token, http.MethodPost, fmt.Sprintf("/api/analyses/%d/evaluate", id), `{"expression":"monthlyRent * 12 / purchasePrice * 100"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	require.InDelta(t, 12.0, body["result"], 0.0001)

	w = env.do(t, token, http.MethodPost, fmt.Sprintf("/api/analyses/%d/evaluate", id), `{"expression":"nope * 2"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, token, http.MethodPost, fmt.Sprintf("/api/analyses/%d/evaluate", id), `{"expression":"monthlyRent / closingCosts"}`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.NotEmpty(t, decode[map[string]string](t, w)["error"])

	w = env.do(t, token, http.MethodGet, "/api/analyses?q=lakeshore", "")
	require.Equal(t, http.StatusOK, w.Code)
	hits := decode[[]models.Analysis](t, w)
	require.Len(t, hits, 1)
	require.Equal(t, id, hits[0].ID)
}

func TestOwnershipAndAuth(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.user(t, "owner@example.com", models.TierElite)
	other := env.user(t, "other@example.com", models.TierElite)

	w := env.do(t, owner, http.MethodPost, "/api/analyses", rentalBody("1 Private Way", 2000))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.Analysis](t, w).ID
	path := fmt.Sprintf("/api/analyses/%d", id)

	require.Equal(t, http.StatusUnauthorized, env.do(t, "", http.MethodGet, path, "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, other, http.MethodGet, path, "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, other, http.MethodDelete, path, "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, other, http.MethodGet, path+"/versions", "").Code)
	require.Equal(t, http.StatusBadRequest, env.do(t, owner, http.MethodGet, "/api/analyses/abc", "").Code)

	require.Equal(t, http.StatusOK, env.do(t, owner, http.MethodDelete, path, "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, owner, http.MethodGet, path, "").Code)
}
