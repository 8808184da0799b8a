package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kkdai/youtube/v2"

	"github.com/desertthunder/ytmproxy/internal/shared"
)

// videoSource is the subset of [youtube.Client] the library strategy needs.
type videoSource interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// LibraryStrategy resolves through the kkdai/youtube client. It makes a single attempt with no retry.
type LibraryStrategy struct {
	source  videoSource
	timeout time.Duration
	logger  *log.Logger
}

// NewLibraryStrategy creates a [LibraryStrategy] whose HTTP calls are bounded by the configured timeout.
func NewLibraryStrategy(cfg shared.LibraryConfig, logger *log.Logger) *LibraryStrategy {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &youtube.Client{HTTPClient: &http.Client{Timeout: timeout}}
	return newLibraryStrategy(client, timeout, logger)
}

func newLibraryStrategy(source videoSource, timeout time.Duration, logger *log.Logger) *LibraryStrategy {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryStrategy{
		source:  source,
		timeout: timeout,
		logger:  shared.WithLogger(logger, "strategy", "library"),
	}
}

func (s *LibraryStrategy) Name() string { return "library" }

func (s *LibraryStrategy) Extract(ctx context.Context, videoID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	video, err := s.source.GetVideoContext(ctx, videoID)
	if err != nil {
		s.logger.Debug("video lookup failed", "video_id", videoID, "err", err)
		return "", Fail(s.Name(), err)
	}

	format := bestAudioFormat(video.Formats)
	if format == nil {
		return "", Fail(s.Name(), shared.ErrNoAudioFormat)
	}

	url, err := s.source.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return "", Fail(s.Name(), fmt.Errorf("failed to get stream url for itag %d: %w", format.ItagNo, err))
	}
	if url == "" {
		return "", Fail(s.Name(), shared.ErrNoAudioFormat)
	}
	return url, nil
}

// bestAudioFormat picks the audio-only format with the highest bitrate.
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !isAudioOnly(f) {
			continue
		}
		if best == nil || formatBitrate(f) > formatBitrate(best) {
			best = f
		}
	}
	return best
}

func isAudioOnly(f *youtube.Format) bool {
	if strings.HasPrefix(f.MimeType, "audio/") {
		return true
	}
	return f.AudioChannels > 0 && f.Width == 0 && f.Height == 0
}

func formatBitrate(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}
