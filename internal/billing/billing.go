// Package billing sells the pro and elite tiers through Stripe Checkout and
// keeps user tiers in sync from Stripe webhooks.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"investment-calculator/internal/auth"
	"investment-calculator/internal/config"
	"investment-calculator/internal/models"
	"investment-calculator/internal/respond"
	"investment-calculator/internal/storage"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
)

const maxWebhookBytes = int64(65536)

type Service struct {
	users *storage.UserStore
	cfg   config.StripeConfig
}

func NewService(users *storage.UserStore, cfg config.StripeConfig) *Service {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &Service{users: users, cfg: cfg}
}

func (s *Service) Enabled() bool {
	return s.cfg.SecretKey != ""
}

func (s *Service) priceFor(tier models.Tier) string {
	switch tier {
	case models.TierPro:
		return s.cfg.PriceIDPro
	case models.TierElite:
		return s.cfg.PriceIDElite
	}
	return ""
}

type checkoutRequest struct {
	Tier models.Tier `json:"tier"`
}

// CheckoutHandler starts a subscription Checkout Session for the caller.
func (s *Service) CheckoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			respond.Error(w, http.StatusServiceUnavailable, "billing not configured")
			return
		}
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req checkoutRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.Tier != models.TierPro && req.Tier != models.TierElite {
			respond.Error(w, http.StatusBadRequest, "tier must be pro or elite")
			return
		}
		priceID := s.priceFor(req.Tier)
		frontendURL := strings.TrimRight(s.cfg.FrontendURL, "/")
		if priceID == "" || frontendURL == "" {
			slog.ErrorContext(r.Context(), "missing Stripe config", "tier", req.Tier, "price_id", priceID != "", "frontend_url", frontendURL != "")
			respond.Error(w, http.StatusServiceUnavailable, "billing not configured")
			return
		}

		customerID, err := s.ensureCustomer(r.Context(), userID)
		if err != nil {
			slog.ErrorContext(r.Context(), "ensure stripe customer failed", "user_id", userID, "err", err)
			respond.Error(w, http.StatusInternalServerError, "failed to prepare billing")
			return
		}

		params := &stripe.CheckoutSessionParams{
			Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
			Customer:          stripe.String(customerID),
			ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
			LineItems: []*stripe.CheckoutSessionLineItemParams{
				{
					Price:    stripe.String(priceID),
					Quantity: stripe.Int64(1),
				},
			},
			SuccessURL: stripe.String(frontendURL + "/billing/success"),
			CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
		}
		params.AddMetadata("tier", string(req.Tier))
		params.AddMetadata("user_id", strconv.FormatInt(userID, 10))

		sess, err := session.New(params)
		if err != nil {
			slog.ErrorContext(r.Context(), "stripe checkout session failed", "err", err)
			respond.Error(w, http.StatusBadGateway, "failed to create checkout session")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"url": sess.URL})
	}
}

// PortalHandler opens the Stripe customer portal for managing a subscription.
func (s *Service) PortalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			respond.Error(w, http.StatusServiceUnavailable, "billing not configured")
			return
		}
		userID, _ := auth.UserIDFromContext(r.Context())
		user, err := s.users.ByID(r.Context(), userID)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
			respond.Error(w, http.StatusBadRequest, "no billing account for user")
			return
		}

		sess, err := portal.New(&stripe.BillingPortalSessionParams{
			Customer:  user.StripeCustomerID,
			ReturnURL: stripe.String(strings.TrimRight(s.cfg.FrontendURL, "/") + "/settings/billing"),
		})
		if err != nil {
			slog.ErrorContext(r.Context(), "stripe portal session failed", "err", err)
			respond.Error(w, http.StatusBadGateway, "failed to create portal session")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"url": sess.URL})
	}
}

// WebhookHandler applies subscription changes reported by Stripe.
func (s *Service) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() || s.cfg.WebhookSecret == "" {
			respond.Error(w, http.StatusServiceUnavailable, "webhook not configured")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}
		event, err := webhook.ConstructEventWithOptions(
			body,
			r.Header.Get("Stripe-Signature"),
			s.cfg.WebhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
		)
		if err != nil {
			slog.WarnContext(r.Context(), "stripe webhook signature failed", "err", err)
			respond.Error(w, http.StatusBadRequest, "signature verification failed")
			return
		}

		var (
			customerID string
			tier       models.Tier
		)
		switch event.Type {
		case "checkout.session.completed":
			var sess stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
				respond.Error(w, http.StatusBadRequest, "invalid session payload")
				return
			}
			if sess.Customer != nil {
				customerID = sess.Customer.ID
			}
			tier = models.Tier(sess.Metadata["tier"])
			if !tier.Valid() || tier == models.TierFree {
				respond.Error(w, http.StatusBadRequest, "missing tier metadata")
				return
			}
		case "customer.subscription.deleted":
			var sub stripe.Subscription
			if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
				respond.Error(w, http.StatusBadRequest, "invalid subscription payload")
				return
			}
			if sub.Customer != nil {
				customerID = sub.Customer.ID
			}
			tier = models.TierFree
		default:
			respond.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		if customerID == "" {
			respond.Error(w, http.StatusBadRequest, "missing customer id")
			return
		}
		err = s.users.SetTierByStripeCustomer(r.Context(), customerID, tier)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// not ours; acknowledge so Stripe stops retrying
			slog.WarnContext(r.Context(), "stripe event for unknown customer", "customer", customerID, "type", event.Type)
		case err != nil:
			slog.ErrorContext(r.Context(), "stripe tier update failed", "customer", customerID, "err", err)
			respond.Error(w, http.StatusInternalServerError, "failed to update user")
			return
		default:
			slog.InfoContext(r.Context(), "tier updated from stripe", "customer", customerID, "tier", tier)
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ensureCustomer returns the user's Stripe customer, creating it on first use.
func (s *Service) ensureCustomer(ctx context.Context, userID int64) (string, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{Email: stripe.String(user.Email)}
	params.AddMetadata("user_id", strconv.FormatInt(user.ID, 10))
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	if err := s.users.SetStripeCustomer(ctx, user.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
