package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"investment-calculator/internal/respond"
	"investment-calculator/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	stateCookie       = "oauth_state"
)

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Google implements the "Sign in with Google" redirect flow.
type Google struct {
	oauth       *oauth2.Config
	users       *storage.UserStore
	issuer      *Issuer
	userInfoURL string
}

func NewGoogle(clientID, clientSecret, redirectURL string, users *storage.UserStore, issuer *Issuer) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     google.Endpoint,
		},
		users:       users,
		issuer:      issuer,
		userInfoURL: googleUserInfoURL,
	}
}

func (g *Google) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(10 * time.Minute),
		})
		http.Redirect(w, r, g.oauth.AuthCodeURL(state), http.StatusFound)
	}
}

func (g *Google) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(stateCookie)
		if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
			respond.Error(w, http.StatusBadRequest, "invalid oauth state")
			return
		}
		// single use
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
		code := r.URL.Query().Get("code")
		if code == "" {
			respond.Error(w, http.StatusBadRequest, "missing code")
			return
		}

		info, err := g.exchange(r.Context(), code)
		if err != nil {
			slog.WarnContext(r.Context(), "google sign-in failed", "err", err)
			respond.Error(w, http.StatusUnauthorized, "google sign-in failed")
			return
		}

		user, err := g.users.UpsertGoogle(r.Context(), info.Subject, info.Email)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to upsert google user", "err", err)
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		token, err := g.issuer.IssueToken(user.ID)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (g *Google) exchange(ctx context.Context, code string) (googleUserInfo, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return googleUserInfo{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return googleUserInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Subject == "" || info.Email == "" {
		return googleUserInfo{}, errors.New("userinfo missing subject or email")
	}
	if !info.EmailVerified {
		return googleUserInfo{}, errors.New("google email not verified")
	}
	return info, nil
}
