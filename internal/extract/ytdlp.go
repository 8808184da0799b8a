package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"

	"github.com/desertthunder/ytmproxy/internal/shared"
)

// Runner executes yt-dlp with the given arguments and returns its standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to [Runner].
type RunnerFunc func(ctx context.Context, args ...string) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, args ...string) ([]byte, error) { return f(ctx, args...) }

type ytdlpRunner struct {
	executable string
}

// NewRunner returns a [Runner] backed by go-ytdlp. An empty executable uses yt-dlp from PATH.
func NewRunner(executable string) Runner {
	return ytdlpRunner{executable: executable}
}

func (r ytdlpRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig()

	if r.executable != "" {
		cmd.SetExecutable(r.executable)
	}

	res, err := cmd.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return []byte(res.Stdout), nil
}

type ytdlpInfo struct {
	URL     string        `json:"url"`
	Formats []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	URL    string  `json:"url"`
	ACodec string  `json:"acodec"`
	VCodec string  `json:"vcodec"`
	ABR    float64 `json:"abr"`
	Ext    string  `json:"ext"`
}

func (f ytdlpFormat) audioOnly() bool {
	hasAudio := f.ACodec != "" && f.ACodec != "none"
	hasVideo := f.VCodec != "" && f.VCodec != "none"
	return hasAudio && !hasVideo && f.URL != ""
}

// YtdlpStrategy runs yt-dlp once per client persona, in order, until one yields a URL.
type YtdlpStrategy struct {
	runner              Runner
	personas            []string
	timeout             time.Duration
	retries             int
	forceIPv4           bool
	noCheckCertificates bool
	logger              *log.Logger
}

// NewYtdlpStrategy builds the strategy from config. A nil runner uses [NewRunner] with the configured executable.
func NewYtdlpStrategy(cfg shared.YtdlpConfig, runner Runner, logger *log.Logger) *YtdlpStrategy {
	if runner == nil {
		runner = NewRunner(cfg.Executable)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &YtdlpStrategy{
		runner:              runner,
		personas:            append([]string(nil), cfg.Personas...),
		timeout:             timeout,
		retries:             max(cfg.Retries, 0),
		forceIPv4:           cfg.ForceIPv4,
		noCheckCertificates: cfg.NoCheckCertificates,
		logger:              shared.WithLogger(logger, "strategy", "ytdlp"),
	}
}

func (s *YtdlpStrategy) Name() string { return "ytdlp" }

// Extract tries every persona in order. The returned error holds one attempt per persona.
func (s *YtdlpStrategy) Extract(ctx context.Context, videoID string) (string, error) {
	if len(s.personas) == 0 {
		return "", Fail(s.Name(), fmt.Errorf("%w: no personas configured", shared.ErrMissingConfig))
	}

	diags := make(Diagnostics, 0, len(s.personas))
	for _, persona := range s.personas {
		url, err := s.tryPersona(ctx, persona, videoID)
		if err == nil {
			s.logger.Debug("persona succeeded", "video_id", videoID, "persona", persona)
			return url, nil
		}

		s.logger.Debug("persona failed", "video_id", videoID, "persona", persona, "err", err)
		diags = append(diags, Attempt{Strategy: s.Name() + ":" + persona, Err: err.Error()})
	}

	return "", diags
}

func (s *YtdlpStrategy) tryPersona(ctx context.Context, persona, videoID string) (string, error) {
	var err error
	for try := 0; try <= s.retries; try++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		var url string
		url, err = s.once(ctx, persona, videoID)
		if err == nil {
			return url, nil
		}
	}
	return "", err
}

func (s *YtdlpStrategy) once(ctx context.Context, persona, videoID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.runner.Run(ctx, s.args(persona, videoID)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", shared.ErrTimeout, s.timeout)
		}
		return "", err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return "", fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	return selectYtdlpURL(info)
}

func (s *YtdlpStrategy) args(persona, videoID string) []string {
	args := []string{
		"--format", "bestaudio",
		"--dump-single-json",
		"--no-playlist",
		"--extractor-args", "youtube:player_client=" + persona,
		"--socket-timeout", strconv.Itoa(max(int(s.timeout/time.Second), 1)),
	}
	if s.forceIPv4 {
		args = append(args, "--force-ipv4")
	}
	if s.noCheckCertificates {
		args = append(args, "--no-check-certificates")
	}
	return append(args, shared.WatchURL(videoID))
}

// selectYtdlpURL prefers the top-level URL, then the highest bitrate audio-only format.
func selectYtdlpURL(info ytdlpInfo) (string, error) {
	if info.URL != "" {
		return info.URL, nil
	}

	candidates := make([]ytdlpFormat, 0, len(info.Formats))
	for _, f := range info.Formats {
		if f.audioOnly() {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return "", shared.ErrNoAudioFormat
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ABR > candidates[j].ABR })
	return candidates[0].URL, nil
}
