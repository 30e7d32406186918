package billing

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"investment-calculator/internal/auth"
	"investment-calculator/internal/config"
	"investment-calculator/internal/models"
	"investment-calculator/internal/storage"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func newUsers(t *testing.T) *storage.UserStore {
	t.Helper()
	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "billing.db"))
	require.NoError(t, err)
	return storage.NewUserStore(db)
}

func signedRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestDisabled(t *testing.T) {
	svc := NewService(newUsers(t), config.StripeConfig{})
	require.False(t, svc.Enabled())

	handlers := map[string]http.HandlerFunc{
		"checkout": svc.CheckoutHandler(),
		"portal":   svc.PortalHandler(),
		"webhook":  svc.WebhookHandler(),
	}
	for name, h := range handlers {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"tier":"pro"}`))
		req = req.WithContext(auth.WithUserID(req.Context(), 1))
		w := httptest.NewRecorder()
		h(w, req)
		require.Equal(t, http.StatusServiceUnavailable, w.Code, name)
		require.Contains(t, w.Body.String(), `"error"`, name)
	}
}

func TestCheckout_RejectsBadTier(t *testing.T) {
	svc := NewService(newUsers(t), config.StripeConfig{SecretKey: "sk_test_123", PriceIDPro: "price_pro"})

	for _, body := range []string{`{"tier":"free"}`, `{"tier":"platinum"}`, `{`} {
		req := httptest.NewRequest(http.MethodPost, "/api/billing/checkout", bytes.NewBufferString(body))
		req = req.WithContext(auth.WithUserID(req.Context(), 1))
		w := httptest.NewRecorder()
		svc.CheckoutHandler()(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestWebhook_BadSignature(t *testing.T) {
	svc := NewService(newUsers(t), config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: testWebhookSecret})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewBufferString(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	svc.WebhookHandler()(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_TierLifecycle(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	u, err := users.Create(ctx, "buyer@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, users.SetStripeCustomer(ctx, u.ID, "cus_123"))

	svc := NewService(users, config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: testWebhookSecret})

	completed := `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "customer": "cus_123", "metadata": {"tier": "elite"}}}
	}`
	w := httptest.NewRecorder()
	svc.WebhookHandler()(w, signedRequest(t, completed))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := users.ByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, models.TierElite, got.Tier)

	deleted := `{
		"id": "evt_2",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "object": "subscription", "customer": "cus_123"}}
	}`
	w = httptest.NewRecorder()
	svc.WebhookHandler()(w, signedRequest(t, deleted))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err = users.ByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, models.TierFree, got.Tier)
}

func TestWebhook_UnknownCustomerAndEvent(t *testing.T) {
	svc := NewService(newUsers(t), config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: testWebhookSecret})

	unknown := `{"id":"evt_3","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_9","object":"subscription","customer":"cus_missing"}}}`
	w := httptest.NewRecorder()
	svc.WebhookHandler()(w, signedRequest(t, unknown))
	require.Equal(t, http.StatusOK, w.Code)

	ignored := `{"id":"evt_4","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`
	w = httptest.NewRecorder()
	svc.WebhookHandler()(w, signedRequest(t, ignored))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ignored")
}
