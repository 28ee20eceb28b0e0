package bookform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/example/book-upload-relay/domain/book"
)

// Registrar adds generated records to the server-side book catalog.
type Registrar struct {
	baseURL string
	client  *http.Client
}

// NewRegistrar creates a registrar for the server at baseURL.
func NewRegistrar(baseURL string, client *http.Client) *Registrar {
	if client == nil {
		client = http.DefaultClient
	}
	return &Registrar{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// Register stores rec and returns the record as the catalog saved it.
func (r *Registrar) Register(ctx context.Context, rec *book.Record) (*book.Record, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/v1/books", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrConnectivity, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var saved book.Record
	if err := json.Unmarshal(body, &saved); err != nil || saved.ID == "" {
		return nil, fmt.Errorf("%w: catalog response has no record", ErrProtocol)
	}
	return &saved, nil
}
