package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

const defaultResolverURL = "http://127.0.0.1:8080"

// ProxyResolver implements [VideoResolver] by asking an HTTP resolver proxy for the stream map of a video.
//
// GET {base}/resolve/{id} answers {"formats": {"22": "https://..."}}.
type ProxyResolver struct {
	baseURL    string
	httpClient *http.Client
}

// NewProxyResolver creates a resolver client. A nil client gets one with the given timeout.
func NewProxyResolver(baseURL string, timeout time.Duration, client *http.Client) *ProxyResolver {
	if baseURL == "" {
		baseURL = defaultResolverURL
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &ProxyResolver{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

type resolveResponse struct {
	Formats map[string]string `json:"formats"`
}

// Resolve implements [VideoResolver].
func (p *ProxyResolver) Resolve(ctx context.Context, videoID string) (map[models.Format]string, error) {
	endpoint := p.baseURL + "/resolve/" + url.PathEscape(videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrResolveFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("%w: status %d: %s", shared.ErrResolveFailed, resp.StatusCode, errResp.Detail)
		}
		return nil, fmt.Errorf("%w: status %d", shared.ErrResolveFailed, resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrResolveFailed, err)
	}

	formats := make(map[models.Format]string, len(body.Formats))
	for code, link := range body.Formats {
		f, err := strconv.Atoi(code)
		if err != nil || link == "" {
			continue
		}
		formats[models.Format(f)] = link
	}
	return formats, nil
}
