// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"risk-analytics/internal/common/errors"
	commonhttp "risk-analytics/internal/common/http"
)

// KeycloakClient validates bearer tokens via the realm introspection endpoint.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *commonhttp.Client
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active    bool     `json:"active"`
	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Sub       string   `json:"sub,omitempty"` // user ID
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`
}

// UserID prefers the subject claim and falls back to the username.
func (t *TokenInfo) UserID() string {
	if t.Sub != "" {
		return t.Sub
	}
	return t.Username
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, client *commonhttp.Client) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   client,
	}
}

// ValidateToken introspects token. An inactive token yields an UNAUTHENTICATED
// error; transport and provider failures yield AUTH_PROVIDER_FAILED.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, errors.NewUnauthenticatedError("missing bearer token")
	}

	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequest(http.MethodPost, introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewAuthProviderFailedError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, errors.NewAuthProviderFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		stdErr := errors.NewAuthProviderFailedError(fmt.Errorf("introspection returned status %d", resp.StatusCode))
		stdErr.Retryable = commonhttp.IsTransientStatus(resp.StatusCode)
		return nil, stdErr
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.NewAuthProviderFailedError(fmt.Errorf("decode introspection response: %w", err))
	}

	if !tokenInfo.Active {
		return nil, errors.NewUnauthenticatedError("token is not active")
	}
	return &tokenInfo, nil
}
