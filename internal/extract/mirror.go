package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"

	"github.com/desertthunder/ytmproxy/internal/shared"
)

const maxMirrorBody = 4 << 20

type pipedStreams struct {
	AudioStreams []pipedAudioStream `json:"audioStreams"`
}

type pipedAudioStream struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	MimeType string `json:"mimeType"`
	Bitrate  int    `json:"bitrate"`
}

type mirror struct {
	base    string
	breaker *gobreaker.CircuitBreaker
}

// MirrorStrategy queries Piped API mirrors in their configured order. The order never changes at runtime:
// a mirror whose breaker is open fails immediately and the next one is tried.
type MirrorStrategy struct {
	mirrors []*mirror
	client  *retryablehttp.Client
	logger  *log.Logger
}

// NewMirrorStrategy creates a [MirrorStrategy] with one circuit breaker per base URL.
func NewMirrorStrategy(cfg shared.MirrorsConfig, logger *log.Logger) *MirrorStrategy {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.HTTPClient.Timeout = timeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil

	s := &MirrorStrategy{
		client: client,
		logger: shared.WithLogger(logger, "strategy", "mirrors"),
	}

	for _, base := range cfg.BaseURLs {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base == "" {
			continue
		}
		s.mirrors = append(s.mirrors, &mirror{
			base:    base,
			breaker: newMirrorBreaker(base, cfg.BreakerFailures, cfg.BreakerCooldown.Duration),
		})
	}

	return s
}

// newMirrorBreaker trips after failures consecutive transport or status errors. Zero disables tripping.
//
// A mirror that answers but has no audio for a video is healthy, so that does not count against it.
func newMirrorBreaker(name string, failures int, cooldown time.Duration) *gobreaker.CircuitBreaker {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, shared.ErrNoAudioFormat) || errors.Is(err, shared.ErrNotFound)
		},
	})
}

func (s *MirrorStrategy) Name() string { return "mirrors" }

// Extract returns the first URL any mirror yields. The error holds one attempt per mirror tried.
func (s *MirrorStrategy) Extract(ctx context.Context, videoID string) (string, error) {
	if len(s.mirrors) == 0 {
		return "", Fail(s.Name(), fmt.Errorf("%w: no mirrors configured", shared.ErrMissingConfig))
	}

	diags := make(Diagnostics, 0, len(s.mirrors))
	for _, m := range s.mirrors {
		result, err := m.breaker.Execute(func() (interface{}, error) {
			return s.fetch(ctx, m.base, videoID)
		})
		if err == nil {
			return result.(string), nil
		}

		s.logger.Debug("mirror failed", "video_id", videoID, "mirror", m.base, "err", err)
		diags = append(diags, Attempt{Strategy: "mirror:" + mirrorHost(m.base), Err: err.Error()})

		if ctx.Err() != nil {
			break
		}
	}

	return "", diags
}

func (s *MirrorStrategy) fetch(ctx context.Context, base, videoID string) (string, error) {
	endpoint := base + "/streams/" + url.PathEscape(videoID)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: status %d", shared.ErrNotFound, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMirrorBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var streams pipedStreams
	if err := json.Unmarshal(body, &streams); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return selectPipedURL(streams.AudioStreams)
}

// selectPipedURL prefers the first M4A stream, then the first stream listed.
func selectPipedURL(streams []pipedAudioStream) (string, error) {
	for _, st := range streams {
		if strings.EqualFold(st.Format, "M4A") && st.URL != "" {
			return st.URL, nil
		}
	}
	for _, st := range streams {
		if st.URL != "" {
			return st.URL, nil
		}
	}
	return "", shared.ErrNoAudioFormat
}

func mirrorHost(base string) string {
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		return u.Host
	}
	return base
}
