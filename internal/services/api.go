package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

const defaultBaseURL = "http://localhost:8000"

// APIService makes HTTP requests to a running proxy.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the proxy at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the proxy address requests are sent to.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
//
// Redirects are not followed, so /stream shows its Location header instead of the audio bytes.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := *a.httpClient
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Health reports the proxy status and its current cache size.
func (a *APIService) Health(ctx context.Context) (status string, cacheEntries int, err error) {
	var body struct {
		Status       string `json:"status"`
		CacheEntries int    `json:"cache_entries"`
	}
	if err := a.getJSON(ctx, "/health", nil, &body); err != nil {
		return "", 0, err
	}
	return body.Status, body.CacheEntries, nil
}

// StreamURL calls GET /stream-url.
func (a *APIService) StreamURL(ctx context.Context, videoID string) (string, error) {
	if strings.TrimSpace(videoID) == "" {
		return "", shared.ErrEmptyIdentifier
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := a.getJSON(ctx, "/stream-url", url.Values{"videoId": {videoID}}, &body); err != nil {
		return "", err
	}
	if body.URL == "" {
		return "", fmt.Errorf("%w: empty url for %s", shared.ErrAPIRequest, videoID)
	}
	return body.URL, nil
}

// Playlist calls GET /playlist.
func (a *APIService) Playlist(ctx context.Context, browseID string, limit int) (*models.Playlist, error) {
	params := url.Values{"browseId": {browseID}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var body struct {
		Data *models.Playlist `json:"data"`
	}
	if err := a.getJSON(ctx, "/playlist", params, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, browseID)
	}
	return body.Data, nil
}

func (a *APIService) getJSON(ctx context.Context, endpoint string, params url.Values, result any) error {
	apiURL := a.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
