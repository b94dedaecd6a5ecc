package vision

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

const defaultAnnotateURL = "https://vision.googleapis.com/v1/images:annotate"

// Client calls the Google Vision REST API for text detection. It is only
// active when an API key is configured; callers check Enabled before use.
type Client struct {
	APIKey      string
	AnnotateURL string

	HTTPClient *http.Client
}

func NewClientFromEnv() *Client {
	return &Client{
		APIKey:      strings.TrimSpace(env.GetEnv("GOOGLE_VISION_API_KEY", "")),
		AnnotateURL: strings.TrimSpace(env.GetEnv("GOOGLE_VISION_ANNOTATE_URL", defaultAnnotateURL)),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Enabled reports whether OCR credentials are present.
func (c *Client) Enabled() bool {
	return c.APIKey != ""
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// DetectText runs TEXT_DETECTION over one base64-encoded image and returns
// all detected text, or "" when the image contains none.
func (c *Client) DetectText(ctx context.Context, imageBase64 string) (string, error) {
	if !c.Enabled() {
		return "", errors.New("vision: GOOGLE_VISION_API_KEY is not set")
	}

	payload, err := json.Marshal(annotateRequest{
		Requests: []annotateEntry{{
			Image: annotateImage{Content: imageBase64},
			Features: []annotateFeature{{
				Type:       "TEXT_DETECTION",
				MaxResults: 10,
			}},
		}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AnnotateURL+"?key="+c.APIKey, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vision: annotate failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out annotateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if len(out.Responses) == 0 {
		return "", nil
	}
	if e := out.Responses[0].Error; e != nil {
		return "", fmt.Errorf("vision: %s", e.Message)
	}
	if len(out.Responses[0].TextAnnotations) == 0 {
		return "", nil
	}
	// First annotation aggregates all detected text.
	return out.Responses[0].TextAnnotations[0].Description, nil
}
