package deployapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/book-upload-relay/domain/book"
)

// DefaultBaseURL is the public Netlify API root.
const DefaultBaseURL = "https://api.netlify.com/api/v1"

// maxErrorBody bounds how much of a failed response body is kept for error reporting.
const maxErrorBody = 4096

// Config holds the settings needed to talk to the deploy API.
type Config struct {
	BaseURL string
	Token   string
	SiteID  string
	Timeout time.Duration
}

// Client performs the two-phase deploy protocol against the hosting provider.
type Client struct {
	baseURL    string
	token      string
	siteID     string
	httpClient *http.Client
}

// NewClient creates a deploy API client. A nil httpClient gets a default one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		siteID:     cfg.SiteID,
		httpClient: httpClient,
	}
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// createDeployRequest is the body of POST /sites/{siteId}/deploys.
type createDeployRequest struct {
	Files book.PublishManifest `json:"files"`
}

// CreateDeploy announces the manifest and returns the deploy along with the files the
// provider still needs.
func (c *Client) CreateDeploy(ctx context.Context, manifest book.PublishManifest) (*Deploy, error) {
	body, err := json.Marshal(createDeployRequest{Files: manifest})
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	endpoint := fmt.Sprintf("%s/sites/%s/deploys", c.baseURL, url.PathEscape(c.siteID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build create deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	var raw deployResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return raw.normalize(c.baseURL, manifest)
}

// UploadFile sends the raw bytes of one required file to its upload URL.
func (c *Client) UploadFile(ctx context.Context, uploadURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(data))

	// Provider-signed URLs carry their own credentials; only our API gets the token.
	if strings.HasPrefix(uploadURL, c.baseURL+"/") {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
