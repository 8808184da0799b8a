// Package resolver orchestrates stream resolution: cache lookup, ordered strategy attempts, cache write.
//
// A [Pipeline] tries its strategies strictly in the order it was given and stops at the first URL.
// When every strategy fails the caller receives an [*ExhaustedError] listing each attempt in invocation order.
// There is no retry of the whole chain and no overall deadline; each strategy bounds its own calls.
// A caller that goes away does not stop a resolution in flight: the chain runs to completion and caches its result.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/ytmproxy/internal/cache"
	"github.com/desertthunder/ytmproxy/internal/extract"
	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

// Result is a successful resolution.
type Result struct {
	VideoID  string
	URL      string
	Strategy string // empty on a cache hit
	Cached   bool
	Attempts []extract.Attempt // failures that preceded the winning strategy
	Duration time.Duration
}

// ExhaustedError is returned when no strategy produced a URL.
type ExhaustedError struct {
	VideoID  string
	Attempts []extract.Attempt
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s", shared.ErrExhausted, e.VideoID)
	if len(e.Attempts) > 0 {
		b.WriteString(": ")
		b.WriteString(extract.Diagnostics(e.Attempts).Error())
	}
	return b.String()
}

func (e *ExhaustedError) Unwrap() error { return shared.ErrExhausted }

// Recorder persists resolution outcomes. Errors are logged and never change the result.
type Recorder interface {
	Record(ctx context.Context, r *models.Resolution) error
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithCoalescing makes concurrent cold lookups for the same identifier share one strategy run.
func WithCoalescing() Option {
	return func(p *Pipeline) { p.group = &singleflight.Group{} }
}

// WithRecorder sets where outcomes are journaled.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// Pipeline resolves identifiers through a [cache.Cache] and an ordered list of [extract.Strategy].
type Pipeline struct {
	cache      *cache.Cache
	strategies []extract.Strategy
	logger     *log.Logger
	group      *singleflight.Group
	recorder   Recorder
}

// New creates a [Pipeline]. Strategies are tried in the given order.
func New(c *cache.Cache, strategies []extract.Strategy, logger *log.Logger, opts ...Option) *Pipeline {
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	p := &Pipeline{
		cache:      c,
		strategies: append([]extract.Strategy(nil), strategies...),
		logger:     shared.WithLogger(logger, "component", "resolver"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cache returns the pipeline's cache.
func (p *Pipeline) Cache() *cache.Cache { return p.cache }

// Strategies returns the strategy names in the order they are tried.
func (p *Pipeline) Strategies() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns a playable URL for videoID.
//
// A fresh cache entry is returned without invoking any strategy. Otherwise strategies run in order until one
// succeeds, and its URL is cached. The error is an [*ExhaustedError] when all of them fail.
// videoID is handed to every strategy as given.
//
// The chain runs detached from ctx cancellation, so coalesced followers are unaffected when the first caller leaves.
func (p *Pipeline) Resolve(ctx context.Context, videoID string) (*Result, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, shared.ErrEmptyIdentifier
	}

	work := context.WithoutCancel(ctx)
	start := time.Now()
	if url, ok := p.cache.Get(videoID); ok {
		res := &Result{VideoID: videoID, URL: url, Cached: true, Duration: time.Since(start)}
		p.logger.Debug("cache hit", "video_id", videoID)
		p.record(work, res, nil)
		return res, nil
	}

	if p.group == nil {
		return p.run(work, videoID, start)
	}

	v, err, coalesced := p.group.Do(videoID, func() (any, error) {
		return p.run(work, videoID, start)
	})
	if coalesced {
		p.logger.Debug("coalesced resolution", "video_id", videoID)
	}
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	return &res, nil
}

func (p *Pipeline) run(ctx context.Context, videoID string, start time.Time) (*Result, error) {
	var attempts []extract.Attempt

	for _, s := range p.strategies {
		url, err := s.Extract(ctx, videoID)
		if err == nil && url != "" {
			p.cache.Put(videoID, url)

			res := &Result{
				VideoID:  videoID,
				URL:      url,
				Strategy: s.Name(),
				Attempts: attempts,
				Duration: time.Since(start),
			}
			p.logger.Info("resolved stream", "video_id", videoID, "strategy", s.Name(), "failed_attempts", len(attempts), "duration", res.Duration)
			p.record(ctx, res, nil)
			return res, nil
		}

		if err == nil {
			err = shared.ErrNoAudioFormat
		}
		attempts = append(attempts, extract.Flatten(s.Name(), err)...)
	}

	exhausted := &ExhaustedError{VideoID: videoID, Attempts: attempts}
	p.logger.Warn("all strategies failed", "video_id", videoID, "attempts", len(attempts))
	p.record(ctx, &Result{VideoID: videoID, Duration: time.Since(start)}, exhausted)
	return nil, exhausted
}

func (p *Pipeline) record(ctx context.Context, res *Result, failure *ExhaustedError) {
	if p.recorder == nil {
		return
	}

	var entry *models.Resolution
	switch {
	case failure != nil:
		entry = models.NewResolution(res.VideoID, models.OutcomeExhausted)
		entry.Attempts = toModelAttempts(failure.Attempts)
	case res.Cached:
		entry = models.NewResolution(res.VideoID, models.OutcomeCacheHit)
	default:
		entry = models.NewResolution(res.VideoID, models.OutcomeResolved)
		entry.Strategy = res.Strategy
		entry.Attempts = toModelAttempts(res.Attempts)
	}
	entry.Duration = res.Duration

	if err := p.recorder.Record(ctx, entry); err != nil {
		p.logger.Warn("failed to record resolution", "video_id", res.VideoID, "err", err)
	}
}

func toModelAttempts(attempts []extract.Attempt) []models.Attempt {
	out := make([]models.Attempt, len(attempts))
	for i, a := range attempts {
		out[i] = models.Attempt{Strategy: a.Strategy, Error: a.Err}
	}
	return out
}

// IsExhausted reports whether err came from a pipeline that ran out of strategies.
func IsExhausted(err error) bool {
	return errors.Is(err, shared.ErrExhausted)
}
