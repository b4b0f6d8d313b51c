package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ExternalIdentity is a verified assertion from an external identity provider.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	Name          string
	Image         string
	EmailVerified bool
}

// IdentityProvider abstracts an external OAuth identity provider. The
// authenticator never talks to a provider SDK directly; it consumes verified
// assertions only.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	VerifyAssertion(ctx context.Context, code string) (ExternalIdentity, error)
}

// ProviderConfig describes an external OAuth provider endpoint set.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// GoogleProviderConfig returns the endpoint set for Google with the given
// client registration.
func GoogleProviderConfig(clientID, clientSecret, redirectURL string) ProviderConfig {
	return ProviderConfig{
		Name:         "google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		Scopes:       []string{"openid", "email", "profile"},
	}
}

// OAuthProvider implements IdentityProvider on the standard authorization-code
// flow: exchange the code for a token, then fetch the userinfo document.
type OAuthProvider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
}

// NewOAuthProvider builds a code-flow identity provider from an endpoint set.
func NewOAuthProvider(cfg ProviderConfig) *OAuthProvider {
	return &OAuthProvider{
		name: cfg.Name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// Name returns the provider identifier used in routes and provider links.
func (p *OAuthProvider) Name() string { return p.name }

// AuthCodeURL returns the provider consent URL carrying the given state nonce.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// userInfo is the OpenID Connect userinfo shape shared by the providers we
// register.
type userInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// VerifyAssertion exchanges the authorization code and resolves the external
// identity from the provider's userinfo endpoint.
func (p *OAuthProvider) VerifyAssertion(ctx context.Context, code string) (ExternalIdentity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	resp, err := p.oauth.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ExternalIdentity{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ExternalIdentity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Subject == "" {
		return ExternalIdentity{}, fmt.Errorf("userinfo missing subject")
	}

	return ExternalIdentity{
		Provider:      p.name,
		Subject:       info.Subject,
		Email:         info.Email,
		Name:          info.Name,
		Image:         info.Picture,
		EmailVerified: info.EmailVerified,
	}, nil
}
