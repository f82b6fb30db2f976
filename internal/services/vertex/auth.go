package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

const retailScope = "https://www.googleapis.com/auth/cloud-platform"

// StaticTokenSource returns a fixed token. Used by tests and by the explicit
// degraded mode, where an empty token makes every write fail at call time.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// serviceAccount is the subset of a Google service-account key file needed
// for the JWT bearer grant.
type serviceAccount struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// TokenProvider exchanges a signed service-account assertion for a bearer
// token. Like the source-side provider, every call fetches a fresh token.
type TokenProvider struct {
	account    serviceAccount
	httpClient *http.Client
	logger     *logger.Logger
}

func NewTokenProvider(credentialsJSON []byte, logger *logger.Logger) (*TokenProvider, error) {
	var account serviceAccount
	if err := json.Unmarshal(credentialsJSON, &account); err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("service account credentials missing client_email or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = "https://oauth2.googleapis.com/token"
	}

	return &TokenProvider{
		account: account,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// Token signs a JWT assertion and exchanges it at the token endpoint.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	assertion, err := p.signAssertion()
	if err != nil {
		return "", err
	}

	data := url.Values{}
	data.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	data.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, "POST", p.account.TokenURI, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
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

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}

	return tokenResp.AccessToken, nil
}

func (p *TokenProvider) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(p.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   p.account.ClientEmail,
		"scope": retailScope,
		"aud":   p.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}
