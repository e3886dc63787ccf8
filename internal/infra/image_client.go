package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ImageClient forwards raw images (data URIs or base64) to the image host and
// returns the hosted URL. Values that are already http(s) URLs pass through.
type ImageClient struct {
	uploadURL  string
	httpClient *http.Client
}

func NewImageClient(uploadURL string, timeout time.Duration) *ImageClient {
	return &ImageClient{
		uploadURL:  uploadURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *ImageClient) Upload(ctx context.Context, image string) (string, error) {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image, nil
	}
	if c.uploadURL == "" {
		return "", fmt.Errorf("image upload is not configured")
	}

	body, err := json.Marshal(map[string]string{"file": image})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("image service returned status %d", resp.StatusCode)
	}

	var out struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL == "" {
		return "", fmt.Errorf("image service returned no url")
	}
	return out.URL, nil
}
