package sync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OAuthToken is the credential state for one integration.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

func (t OAuthToken) expired() bool {
	return t.ExpiresAt != nil && !time.Now().Before(*t.ExpiresAt)
}

// TokenSaver persists a refreshed token back to the integration record.
type TokenSaver func(OAuthToken) error

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// refreshToken exchanges the refresh token at the provider's token endpoint.
func refreshToken(httpClient *http.Client, tokenURL, clientID, clientSecret string, token OAuthToken) (OAuthToken, error) {
	if token.RefreshToken == "" {
		return token, fmt.Errorf("no refresh token available")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	resp, err := httpClient.Post(tokenURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return token, fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return token, fmt.Errorf("token refresh failed: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return token, fmt.Errorf("token refresh failed: %w", err)
	}

	token.AccessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		token.RefreshToken = tr.RefreshToken
	}
	expiresIn := tr.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	expiry := time.Now().Add(time.Duration(expiresIn) * time.Second)
	token.ExpiresAt = &expiry

	return token, nil
}
