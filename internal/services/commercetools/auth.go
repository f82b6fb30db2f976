package commercetools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

// TokenSource provides bearer tokens for the commercetools API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenProvider obtains OAuth2 bearer tokens via the client-credentials
// grant. Each call re-authenticates; sync batches are short-lived enough
// that token reuse is not worth the cache invalidation handling.
type TokenProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scopes       string
	httpClient   *http.Client
	logger       *logger.Logger
}

func NewTokenProvider(authHost, clientID, clientSecret, scopes string, logger *logger.Logger) *TokenProvider {
	return &TokenProvider{
		tokenURL:     fmt.Sprintf("https://%s/oauth/token", authHost),
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       scopes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Token fetches a fresh access token.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	if p.scopes != "" {
		data.Set("scope", p.scopes)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed: %d - %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}

	return tokenResp.AccessToken, nil
}
