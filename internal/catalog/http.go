/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks to the catalog service over HTTP/JSON.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a catalog client for the given base URL. An empty
// apiKey leaves requests unauthenticated.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) (*HTTPClient, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// LookupByID implements Lookup.
func (c *HTTPClient) LookupByID(ctx context.Context, sourceMediaID string) (TrackInfo, error) {
	endpoint := fmt.Sprintf("%s/v1/tracks/%s", c.baseURL, url.PathEscape(sourceMediaID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TrackInfo{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TrackInfo{}, fmt.Errorf("catalog lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return TrackInfo{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return TrackInfo{}, fmt.Errorf("catalog lookup returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info TrackInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return TrackInfo{}, fmt.Errorf("decode catalog response: %w", err)
	}
	if info.SourceMediaID == "" {
		info.SourceMediaID = sourceMediaID
	}
	return info, nil
}
