package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProviderIdentity is what the external identity provider vouches for.
type ProviderIdentity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IdentityProvider verifies an opaque provider-issued identity token.
// Verification internals (key fetching, signature schemes) live behind the
// provider's endpoint; this side only needs the verdict.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (ProviderIdentity, error)
}

// HTTPProvider posts the token to a verification endpoint and expects the
// provider identity back. Calls are bounded by the client timeout so a slow
// provider cannot hang request handling.
type HTTPProvider struct {
	verifyURL string
	client    *http.Client
}

func NewHTTPProvider(verifyURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Verify(ctx context.Context, token string) (ProviderIdentity, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return ProviderIdentity{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, bytes.NewReader(body))
	if err != nil {
		return ProviderIdentity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderIdentity{}, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProviderIdentity{}, fmt.Errorf("verify token: provider returned %d", resp.StatusCode)
	}
	var ident ProviderIdentity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return ProviderIdentity{}, fmt.Errorf("decode provider response: %w", err)
	}
	if ident.UID == "" && ident.Email == "" {
		return ProviderIdentity{}, fmt.Errorf("provider response carries no identity")
	}
	return ident, nil
}
