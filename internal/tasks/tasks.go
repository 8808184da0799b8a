package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/ytmproxy/internal/services"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

// DefaultConcurrency bounds in-flight resolutions when none is configured.
const DefaultConcurrency = 4

// WarmItem is the outcome for one identifier.
type WarmItem struct {
	VideoID string
	URL     string
	Err     error
}

// WarmResult keeps items in input order.
type WarmResult struct {
	Items     []WarmItem
	Succeeded int
	Failed    int
}

// Failures returns the items that did not resolve.
func (r *WarmResult) Failures() []WarmItem {
	var out []WarmItem
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Warmer resolves identifiers through a running proxy.
type Warmer struct {
	proxy       services.Proxy
	concurrency int
	logger      *log.Logger
}

// NewWarmer creates a [Warmer]. A non-positive concurrency uses [DefaultConcurrency].
func NewWarmer(proxy services.Proxy, concurrency int, logger *log.Logger) *Warmer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Warmer{proxy: proxy, concurrency: concurrency, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Warm resolves every identifier once. Blank and duplicate identifiers are skipped.
//
// Only context cancellation is returned as an error; per-identifier failures land in the result.
func (w *Warmer) Warm(ctx context.Context, ids []string, progress chan<- ProgressUpdate) (*WarmResult, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no video identifiers", shared.ErrMissingArgument)
	}

	result := &WarmResult{Items: make([]WarmItem, len(ids))}

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			url, err := w.proxy.StreamURL(gctx, id)
			item := WarmItem{VideoID: id, URL: url, Err: err}
			if err != nil {
				w.logger.Debug("warm failed", "video_id", id, "err", err)
			}

			mu.Lock()
			result.Items[i] = item
			done++
			if err != nil {
				result.Failed++
			} else {
				result.Succeeded++
			}
			update := resolvedUpdate(done, len(ids), item)
			mu.Unlock()

			sendProgress(progress, update)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	w.logger.Info("warm complete", "total", len(ids), "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// WarmPlaylist fetches up to limit tracks of a playlist through the proxy and warms their identifiers.
func (w *Warmer) WarmPlaylist(ctx context.Context, browseID string, limit int, progress chan<- ProgressUpdate) (*WarmResult, error) {
	sendProgress(progress, fetchPlaylistUpdate(browseID))

	pl, err := w.proxy.Playlist(ctx, browseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", browseID, err)
	}
	sendProgress(progress, foundPlaylistUpdate(pl.Title, len(pl.Tracks)))

	ids := make([]string, 0, len(pl.Tracks))
	for _, tr := range pl.Tracks {
		ids = append(ids, tr.VideoID)
	}
	return w.Warm(ctx, ids, progress)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
