package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// userInfo is the portion of the provider's userinfo response we care
// about. Providers return larger objects — we only unmarshal the standard
// OIDC fields we need.
type userInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Provider wraps golang.org/x/oauth2 for the Authorization Code flow
// against the identity provider.
//
// FLOW:
// 1. Our server redirects the user to the provider's authorization endpoint
// 2. The user approves the request there
// 3. The provider redirects back to our CallbackURL with a short-lived code
// 4. Our server exchanges the code for an access token (server-to-server,
//    using the client secret — the token never touches the browser)
// 5. Our server calls the userinfo endpoint to get the subject + claims
type Provider struct {
	config      *oauth2.Config
	userInfoURL string
}

// ProviderConfig holds the endpoints and credentials for one provider.
// The endpoint URLs come from the provider's OIDC discovery document
// (authorization_endpoint, token_endpoint, userinfo_endpoint).
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	CallbackURL  string
}

// NewProvider creates a Provider for the given configuration.
//
// Scopes: "openid profile email" gives us the subject, display name,
// picture, and email — exactly the claims a user record mirrors.
func NewProvider(cfg ProviderConfig) *Provider {
	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The state is a random string we store in a cookie before redirecting;
// the callback handler verifies the returned state matches. This prevents
// CSRF attacks where an attacker completes an OAuth flow for their own
// account in the victim's browser.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: trades the authorization code for the
// provider's view of the user.
//
// The returned Identity is what the login callback feeds into user
// provisioning before issuing our own identity token.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("identity: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("identity: calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("identity: decoding userinfo response: %w", err)
	}

	if info.Subject == "" {
		return nil, fmt.Errorf("identity: provider returned a user with no subject")
	}

	return &Identity{
		Subject:  info.Subject,
		Email:    info.Email,
		Name:     info.Name,
		ImageURL: info.Picture,
	}, nil
}
