package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the part of GitHub's /user response that becomes a local account.
type GitHubUser struct {
	ID    int64  `json:"id"`    // stable numeric ID; the upsert key
	Login string `json:"login"` // becomes the local username (suffixed on a clash)
	Email string `json:"email"` // empty when the user hides it
}

const gitHubUserAPI = "https://api.github.com/user"

// GitHubProvider runs the server side of GitHub's authorization code flow:
// AuthURL sends the browser to GitHub, Exchange turns the returned code into
// a profile. The access token it obtains is used once and then dropped.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider builds a provider for an OAuth App registered on GitHub.
// callbackURL must equal the app's "Authorization callback URL".
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userURL: gitHubUserAPI,
	}
}

// newGitHubProviderWithEndpoints points the provider at a fake GitHub.
func newGitHubProviderWithEndpoints(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, userURL string) *GitHubProvider {
	p := NewGitHubProvider(clientID, clientSecret, callbackURL)
	p.config.Endpoint = endpoint
	p.userURL = userURL
	return p
}

// AuthURL returns GitHub's authorization page for this app. state is echoed
// back on the callback and must match the value in the caller's state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	// The client adds "Authorization: Bearer <token>".
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var u GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if u.ID == 0 || u.Login == "" {
		return nil, errors.New("auth: GitHub returned a profile without id or login")
	}
	return &u, nil
}
