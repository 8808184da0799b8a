package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/ytmproxy/internal/shared"
	tu "github.com/desertthunder/ytmproxy/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.BaseURL() != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.BaseURL())
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.BaseURL() != "http://localhost:8000" {
				t.Errorf("expected default baseURL 'http://localhost:8000', got %s", srv.BaseURL())
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("expected path '/health', got %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{"status": "ok", "cache_entries": 2})
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "health")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK || !resp.IsJSON {
				t.Errorf("expected JSON 200, got %d (json=%v)", resp.StatusCode, resp.IsJSON)
			}
			if resp.Headers.Get("Content-Type") != "application/json" {
				t.Error("expected headers to be preserved")
			}
		})

		t.Run("Does Not Follow Redirects", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "https://cdn.example/audio", http.StatusFound)
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/stream?videoId=abc123")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusFound {
				t.Errorf("expected 302, got %d", resp.StatusCode)
			}
			if resp.Headers.Get("Location") != "https://cdn.example/audio" {
				t.Errorf("unexpected Location %q", resp.Headers.Get("Location"))
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text"))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON || resp.JSONData != nil {
				t.Error("expected response not to be JSON")
			}
			if string(resp.Body) != "plain text" {
				t.Errorf("unexpected body %q", resp.Body)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}

			_, err := NewAPIService("http://example.com", client).Get(context.Background(), "/")
			if err == nil || !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected request failure, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusOK,
				Body:       &tu.FCloser{},
				Header:     make(http.Header),
			}, nil)}

			_, err := NewAPIService("http://example.com", client).Get(context.Background(), "/")
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected read failure, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := NewAPIService(server.URL, nil).Get(ctx, "/"); err == nil {
				t.Error("expected error for canceled context")
			}
		})
	})

	t.Run("StreamURL", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/stream-url" || r.URL.Query().Get("videoId") != "abc123" {
					t.Errorf("unexpected request %s", r.URL)
				}
				json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/u1"})
			}))
			defer server.Close()

			got, err := NewAPIService(server.URL, nil).StreamURL(context.Background(), "abc123")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "https://cdn.example/u1" {
				t.Errorf("unexpected url %q", got)
			}
		})

		t.Run("Detail Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"detail": "all extraction strategies failed for abc123"})
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil).StreamURL(context.Background(), "abc123")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), "status 500") || !strings.Contains(err.Error(), "all extraction strategies failed") {
				t.Errorf("expected status and detail in error, got %v", err)
			}
		})

		t.Run("Status Without Detail", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil).StreamURL(context.Background(), "abc123")
			if err == nil || !strings.Contains(err.Error(), "status 429") {
				t.Errorf("expected status error, got %v", err)
			}
		})

		t.Run("Empty Identifier", func(t *testing.T) {
			_, err := NewAPIService("http://example.com", nil).StreamURL(context.Background(), " ")
			if !errors.Is(err, shared.ErrEmptyIdentifier) {
				t.Errorf("expected ErrEmptyIdentifier, got %v", err)
			}
		})

		t.Run("Malformed Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil).StreamURL(context.Background(), "abc123")
			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})
	})

	t.Run("Playlist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "2" {
				t.Errorf("expected limit=2, got %q", r.URL.Query().Get("limit"))
			}
			w.Write([]byte(`{"data":{"id":"PLx","title":"Mix","trackCount":2,"tracks":[{"videoId":"a"},{"videoId":"b"}]}}`))
		}))
		defer server.Close()

		pl, err := NewAPIService(server.URL, nil).Playlist(context.Background(), "PLx", 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.ID != "PLx" || len(pl.Tracks) != 2 || pl.Tracks[1].VideoID != "b" {
			t.Errorf("unexpected playlist %+v", pl)
		}
	})

	t.Run("Health", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ok","cache_entries":7}`))
		}))
		defer server.Close()

		status, entries, err := NewAPIService(server.URL, nil).Health(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status != "ok" || entries != 7 {
			t.Errorf("unexpected health %q %d", status, entries)
		}
	})
}
