// Package catalog wraps the YouTube Music metadata endpoints behind a small interface.
//
// Search and watch-next use the raitonoberu/ytmusic client. Album, playlist and lyrics pages are fetched
// straight from the InnerTube browse endpoint with a retrying HTTP client and parsed by walking the
// renderer tree, since their layout shifts often and only a handful of fields matter.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/raitonoberu/ytmusic"

	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

const (
	DefaultSearchLimit   = 20
	DefaultPlaylistLimit = 100

	maxSearchPages = 5
)

// Filters accepted by [Catalog.Search]. The empty filter searches everything.
var Filters = []string{"", "songs", "videos", "albums", "artists", "playlists", "community_playlists", "featured_playlists"}

// Catalog is the metadata provider used by the API surface.
type Catalog interface {
	Search(ctx context.Context, query, filter string, limit int) ([]any, error)
	Watch(ctx context.Context, videoID string) (*WatchPlaylist, error)
	Album(ctx context.Context, browseID string) (*models.Album, error)
	Playlist(ctx context.Context, browseID string, limit int) (*models.Playlist, error)
	Lyrics(ctx context.Context, browseID string) (*models.Lyrics, error)
}

// WatchPlaylist is the up-next queue for a video.
type WatchPlaylist struct {
	PlaylistID string               `json:"playlistId"`
	Tracks     []*ytmusic.TrackItem `json:"tracks"`
}

// Error describes a failed catalog lookup.
type Error struct {
	Op  string // search, watch, album, playlist, lyrics
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("catalog %s %q: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// pager yields successive pages of search results. [*ytmusic.SearchClient] satisfies it.
type pager interface {
	Next() (*ytmusic.SearchResult, error)
}

// Client implements [Catalog].
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	language string
	region   string
	logger   *log.Logger

	newPager func(query, filter string) pager
	watch    func(videoID string) ([]*ytmusic.TrackItem, error)
}

// New creates a [Client] from config.
func New(cfg shared.CatalogConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = max(cfg.Retries, 0)
	httpClient.RetryWaitMin = 250 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = timeout
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = nil

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://music.youtube.com"
	}

	return &Client{
		http:     httpClient,
		baseURL:  baseURL,
		language: cfg.Language,
		region:   cfg.Region,
		logger:   shared.WithLogger(logger, "component", "catalog"),
		newPager: ytmusicPager,
		watch:    ytmusic.GetWatchPlaylist,
	}
}

func ytmusicPager(query, filter string) pager {
	switch filter {
	case "songs":
		return ytmusic.TrackSearch(query)
	case "videos":
		return ytmusic.VideoSearch(query)
	case "albums":
		return ytmusic.AlbumSearch(query)
	case "artists":
		return ytmusic.ArtistSearch(query)
	case "playlists", "community_playlists", "featured_playlists":
		return ytmusic.PlaylistSearch(query)
	default:
		return ytmusic.Search(query)
	}
}

// ValidFilter reports whether filter is one of [Filters].
func ValidFilter(filter string) bool {
	for _, f := range Filters {
		if f == filter {
			return true
		}
	}
	return false
}

// Search returns up to limit results for query, following continuation pages as needed.
func (c *Client) Search(ctx context.Context, query, filter string, limit int) ([]any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &Error{Op: "search", Err: fmt.Errorf("%w: query", shared.ErrMissingArgument)}
	}
	if !ValidFilter(filter) {
		return nil, &Error{Op: "search", ID: query, Err: fmt.Errorf("%w: filter %q", shared.ErrInvalidArgument, filter)}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	items, err := withContext(ctx, func() ([]any, error) {
		p := c.newPager(query, filter)
		var items []any
		for page := 0; page < maxSearchPages && len(items) < limit; page++ {
			res, err := p.Next()
			if err != nil {
				if page == 0 {
					return nil, err
				}
				break
			}
			got := pageItems(res, filter)
			if len(got) == 0 {
				break
			}
			items = append(items, got...)
		}
		return items, nil
	})
	if err != nil {
		return nil, &Error{Op: "search", ID: query, Err: err}
	}

	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []any{}
	}
	return items, nil
}

func pageItems(res *ytmusic.SearchResult, filter string) []any {
	if res == nil {
		return nil
	}

	var items []any
	add := func(n int, at func(int) any) {
		for i := range n {
			items = append(items, at(i))
		}
	}
	tracks := func() { add(len(res.Tracks), func(i int) any { return res.Tracks[i] }) }
	videos := func() { add(len(res.Videos), func(i int) any { return res.Videos[i] }) }
	albums := func() { add(len(res.Albums), func(i int) any { return res.Albums[i] }) }
	artists := func() { add(len(res.Artists), func(i int) any { return res.Artists[i] }) }
	playlists := func() { add(len(res.Playlists), func(i int) any { return res.Playlists[i] }) }

	switch filter {
	case "songs":
		tracks()
	case "videos":
		videos()
	case "albums":
		albums()
	case "artists":
		artists()
	case "playlists", "community_playlists", "featured_playlists":
		playlists()
	default:
		tracks()
		videos()
		albums()
		artists()
		playlists()
	}
	return items
}

// Watch returns the up-next queue seeded by videoID.
func (c *Client) Watch(ctx context.Context, videoID string) (*WatchPlaylist, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, &Error{Op: "watch", Err: shared.ErrEmptyIdentifier}
	}

	tracks, err := withContext(ctx, func() ([]*ytmusic.TrackItem, error) {
		return c.watch(videoID)
	})
	if err != nil {
		return nil, &Error{Op: "watch", ID: videoID, Err: err}
	}
	if tracks == nil {
		tracks = []*ytmusic.TrackItem{}
	}

	return &WatchPlaylist{PlaylistID: "RDAMVM" + videoID, Tracks: tracks}, nil
}

// withContext runs fn, which cannot be cancelled itself, and stops waiting for it when ctx ends.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
