// Package identity abstracts the external phone-number-to-user-token
// resolver. The token derivation algorithm lives in a separate service; this
// package only defines the contract the core needs and an HTTP client for it.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Resolver maps phone numbers to stable opaque user tokens and back.
// Tokens are 20-100 characters and are never generated by this service.
type Resolver interface {
	// TokenFromPhone returns the user token for a phone number, creating
	// the mapping on the resolver side if it does not exist yet.
	TokenFromPhone(ctx context.Context, phone string) (string, error)

	// PhoneFromToken returns the normalized phone number a token was
	// issued for.
	PhoneFromToken(ctx context.Context, userToken string) (string, error)
}

// HTTPResolver talks to the resolver service over its JSON API.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

func NewHTTPResolver(endpoint string) *HTTPResolver {
	return &HTTPResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenResponse struct {
	UserToken string `json:"userToken"`
}

type phoneResponse struct {
	Phone string `json:"phone"`
}

func (r *HTTPResolver) TokenFromPhone(ctx context.Context, phone string) (string, error) {
	body, err := json.Marshal(map[string]string{"phone": phone})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/v1/tokens", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolver request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("resolver returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("resolver response decode error: %w", err)
	}
	return tr.UserToken, nil
}

func (r *HTTPResolver) PhoneFromToken(ctx context.Context, userToken string) (string, error) {
	u := r.endpoint + "/v1/phones/" + url.PathEscape(userToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolver request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("resolver returned status %d", resp.StatusCode)
	}

	var pr phoneResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("resolver response decode error: %w", err)
	}
	return pr.Phone, nil
}
