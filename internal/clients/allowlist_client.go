package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AllowlistClient client for the external allowlist (proof) service
type AllowlistClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAllowlistClient creates a new allowlist service client
func NewAllowlistClient(baseURL string, timeout time.Duration) *AllowlistClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AllowlistClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// proofResponse response envelope of the proof endpoint
type proofResponse struct {
	Body struct {
		Proof []string `json:"proof"`
	} `json:"body"`
}

// EligibleLists returns the identifiers of every allowlist the wallet
// qualifies for on the given collection. The public list is always included,
// so a result of length <= 1 means no private list membership.
func (a *AllowlistClient) EligibleLists(ctx context.Context, contract, wallet string) ([]string, error) {
	url := fmt.Sprintf("%s/api/collections/%s/eligiblelists/%s", a.baseURL, contract, wallet)

	var lists []string
	if err := a.getJSON(ctx, url, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// Proof fetches the Merkle proof for a wallet against a specific list root
func (a *AllowlistClient) Proof(ctx context.Context, contract, root, wallet string) ([]string, error) {
	url := fmt.Sprintf("%s/api/collections/%s/root/%s/account/%s", a.baseURL, contract, root, wallet)

	var resp proofResponse
	if err := a.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Body.Proof, nil
}

func (a *AllowlistClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("allowlist service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("allowlist service returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
