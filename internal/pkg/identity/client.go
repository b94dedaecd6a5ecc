package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/listingcraft/listingcraft/internal/pkg/env"
)

const defaultIdentityAPIBaseURL = "https://api.clerk.com/v1"

var ErrNotFound = errors.New("identity: user not found")

// Client talks to the identity provider's backend API. The entitlement
// record lives in each user's public metadata blob.
type Client struct {
	APIBaseURL string
	APIKey     string

	HTTPClient *http.Client
}

// User is the subset of the provider's user object we consume.
type User struct {
	ID             string          `json:"id"`
	PublicMetadata json.RawMessage `json:"public_metadata"`
}

func NewClientFromEnv() *Client {
	return &Client{
		APIBaseURL: strings.TrimRight(env.GetEnv("IDENTITY_API_BASE_URL", defaultIdentityAPIBaseURL), "/"),
		APIKey:     strings.TrimSpace(env.GetEnv("IDENTITY_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("identity: user id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("identity: get user failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out User
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchUserMetadata merges the given keys into the user's public metadata.
// The provider applies merge semantics server-side; keys absent from the
// patch are left untouched.
func (c *Client) PatchUserMetadata(ctx context.Context, userID string, patch map[string]interface{}) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("identity: user id is required")
	}
	if len(patch) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"public_metadata": patch,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.APIBaseURL+"/users/"+userID+"/metadata", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("identity: patch metadata failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
