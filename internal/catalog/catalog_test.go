package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raitonoberu/ytmusic"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytmproxy/internal/shared"
)

type fakePager struct {
	pages []*ytmusic.SearchResult
	err   error
	calls int
}

func (p *fakePager) Next() (*ytmusic.SearchResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if len(p.pages) == 0 {
		return &ytmusic.SearchResult{}, nil
	}
	page := p.pages[0]
	p.pages = p.pages[1:]
	return page, nil
}

func trackPage(ids ...string) *ytmusic.SearchResult {
	res := &ytmusic.SearchResult{}
	for _, id := range ids {
		res.Tracks = append(res.Tracks, &ytmusic.TrackItem{VideoID: id, Title: "song " + id})
	}
	return res
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	cfg := shared.CatalogConfig{Language: "en", Region: "US", Timeout: shared.Duration{Duration: time.Second}}
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		cfg.BaseURL = srv.URL
	}
	return New(cfg, nil)
}

func TestSearch(t *testing.T) {
	t.Run("songs filter uses tracks and honours limit", func(t *testing.T) {
		c := newTestClient(t, nil)
		fp := &fakePager{pages: []*ytmusic.SearchResult{trackPage("a", "b"), trackPage("c", "d")}}
		var gotFilter string
		c.newPager = func(query, filter string) pager {
			gotFilter = filter
			return fp
		}

		items, err := c.Search(context.Background(), "test", "songs", 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if gotFilter != "songs" {
			t.Errorf("expected filter songs, got %q", gotFilter)
		}
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		if items[2].(*ytmusic.TrackItem).VideoID != "c" {
			t.Errorf("expected third item from second page, got %+v", items[2])
		}
		if fp.calls != 2 {
			t.Errorf("expected 2 page fetches, got %d", fp.calls)
		}
	})

	t.Run("stops on an empty page", func(t *testing.T) {
		c := newTestClient(t, nil)
		fp := &fakePager{pages: []*ytmusic.SearchResult{trackPage("a")}}
		c.newPager = func(string, string) pager { return fp }

		items, err := c.Search(context.Background(), "test", "", 50)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(items) != 1 {
			t.Errorf("expected 1 item, got %d", len(items))
		}
		if fp.calls != 2 {
			t.Errorf("expected 2 page fetches, got %d", fp.calls)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		c := newTestClient(t, nil)
		ids := make([]string, 30)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		c.newPager = func(string, string) pager { return &fakePager{pages: []*ytmusic.SearchResult{trackPage(ids...)}} }

		items, err := c.Search(context.Background(), "test", "songs", 0)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(items) != DefaultSearchLimit {
			t.Errorf("expected %d items, got %d", DefaultSearchLimit, len(items))
		}
	})

	t.Run("upstream failure is wrapped", func(t *testing.T) {
		c := newTestClient(t, nil)
		c.newPager = func(string, string) pager { return &fakePager{err: errors.New("quota")} }

		_, err := c.Search(context.Background(), "test", "songs", 10)
		var catErr *Error
		if !errors.As(err, &catErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if catErr.Op != "search" {
			t.Errorf("expected op search, got %s", catErr.Op)
		}
	})

	t.Run("empty results are an empty slice", func(t *testing.T) {
		c := newTestClient(t, nil)
		c.newPager = func(string, string) pager { return &fakePager{} }

		items, err := c.Search(context.Background(), "test", "albums", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", items)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		c := newTestClient(t, nil)
		if _, err := c.Search(context.Background(), " ", "", 10); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := c.Search(context.Background(), "x", "podcasts", 10); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		c := newTestClient(t, nil)
		block := make(chan struct{})
		defer close(block)
		c.newPager = func(string, string) pager { return blockingPager(block) }

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := c.Search(ctx, "test", "", 10); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

type blockingPager chan struct{}

func (b blockingPager) Next() (*ytmusic.SearchResult, error) {
	<-b
	return nil, errors.New("closed")
}

func TestPageItems(t *testing.T) {
	res := &ytmusic.SearchResult{
		Tracks:    []*ytmusic.TrackItem{{VideoID: "t"}},
		Videos:    []*ytmusic.VideoItem{{}},
		Albums:    []*ytmusic.AlbumItem{{}},
		Artists:   []*ytmusic.ArtistItem{{}},
		Playlists: []*ytmusic.PlaylistItem{{}, {}},
	}

	tc := map[string]int{"": 6, "songs": 1, "videos": 1, "albums": 1, "artists": 1, "playlists": 2, "featured_playlists": 2}
	for filter, want := range tc {
		t.Run("filter="+filter, func(t *testing.T) {
			if got := len(pageItems(res, filter)); got != want {
				t.Errorf("pageItems(%q) = %d items, want %d", filter, got, want)
			}
		})
	}

	if pageItems(nil, "") != nil {
		t.Error("nil page should yield nil")
	}
}

func TestWatch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, nil)
		c.watch = func(id string) ([]*ytmusic.TrackItem, error) {
			return []*ytmusic.TrackItem{{VideoID: id}, {VideoID: "next"}}, nil
		}

		wp, err := c.Watch(context.Background(), "abc123")
		if err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
		if wp.PlaylistID != "RDAMVMabc123" || len(wp.Tracks) != 2 {
			t.Errorf("unexpected watch playlist: %+v", wp)
		}
	})

	t.Run("failure", func(t *testing.T) {
		c := newTestClient(t, nil)
		c.watch = func(string) ([]*ytmusic.TrackItem, error) { return nil, errors.New("boom") }

		_, err := c.Watch(context.Background(), "abc123")
		var catErr *Error
		if !errors.As(err, &catErr) || catErr.ID != "abc123" {
			t.Errorf("expected wrapped error for abc123, got %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		c := newTestClient(t, nil)
		if _, err := c.Watch(context.Background(), ""); !errors.Is(err, shared.ErrEmptyIdentifier) {
			t.Errorf("expected ErrEmptyIdentifier, got %v", err)
		}
	})
}

// browseServer answers InnerTube browse calls from fixtures keyed by browseId or continuation token.
func browseServer(t *testing.T, pages map[string]string, seen *[]browseRequest) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/youtubei/v1/browse" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req browseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if seen != nil {
			*seen = append(*seen, req)
		}
		key := req.BrowseID
		if key == "" {
			key = req.Continuation
		}
		page, ok := pages[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, page)
	})
}

func trackRow(videoID, title, artist, artistID, duration string) string {
	return `{"musicResponsiveListItemRenderer": {
		"playlistItemData": {"videoId": "` + videoID + `"},
		"flexColumns": [
			{"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": "` + title + `"}]}}},
			{"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": "` + artist + `", "navigationEndpoint": {"browseEndpoint": {"browseId": "` + artistID + `"}}}]}}}
		],
		"fixedColumns": [
			{"musicResponsiveListItemFixedColumnRenderer": {"text": {"runs": [{"text": "` + duration + `"}]}}}
		]
	}}`
}

const albumPage = `{
	"contents": {"twoColumnBrowseResultsRenderer": {
		"tabs": [{"tabRenderer": {"content": {"sectionListRenderer": {"contents": [
			{"musicResponsiveHeaderRenderer": {
				"title": {"runs": [{"text": "Test Album"}]},
				"subtitle": {"runs": [{"text": "Album"}, {"text": " • "}, {"text": "2023"}]},
				"straplineTextOne": {"runs": [{"text": "Some Artist", "navigationEndpoint": {"browseEndpoint": {"browseId": "UCartist"}}}]},
				"thumbnail": {"musicThumbnailRenderer": {"thumbnail": {"thumbnails": [{"url": "https://img/a.jpg", "width": 544, "height": 544}]}}},
				"buttons": [{"musicPlayButtonRenderer": {"playNavigationEndpoint": {"watchPlaylistEndpoint": {"playlistId": "OLAK5uy_test"}}}}]
			}}
		]}}}}],
		"secondaryContents": {"sectionListRenderer": {"contents": [
			{"musicShelfRenderer": {"contents": [
				{"musicResponsiveListItemRenderer": {
					"playlistItemData": {"videoId": "v1"},
					"flexColumns": [{"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": "First"}]}}}],
					"fixedColumns": [{"musicResponsiveListItemFixedColumnRenderer": {"text": {"runs": [{"text": "3:25"}]}}}]
				}},
				` + "%TRACK%" + `
			]}}
		]}}
	}}
}`

func TestAlbum(t *testing.T) {
	page := strings.Replace(albumPage, "%TRACK%", trackRow("v2", "Second", "Guest", "UCguest", "1:02:03"), 1)
	c := newTestClient(t, browseServer(t, map[string]string{"MPREb_test": page}, nil))

	album, err := c.Album(context.Background(), "MPREb_test")
	if err != nil {
		t.Fatalf("Album() error = %v", err)
	}

	if album.Title != "Test Album" || album.Type != "Album" || album.Year != "2023" {
		t.Errorf("unexpected header fields: %+v", album)
	}
	if len(album.Artists) != 1 || album.Artists[0].ID != "UCartist" {
		t.Errorf("unexpected artists: %+v", album.Artists)
	}
	if album.AudioPlaylistID != "OLAK5uy_test" {
		t.Errorf("expected audio playlist id, got %q", album.AudioPlaylistID)
	}
	if len(album.Thumbnails) != 1 || album.Thumbnails[0].Width != 544 {
		t.Errorf("unexpected thumbnails: %+v", album.Thumbnails)
	}
	if album.TrackCount != 2 {
		t.Fatalf("expected 2 tracks, got %d", album.TrackCount)
	}

	first, second := album.Tracks[0], album.Tracks[1]
	if first.VideoID != "v1" || first.DurationSeconds != 205 {
		t.Errorf("unexpected first track: %+v", first)
	}
	if len(first.Artists) != 1 || first.Artists[0].Name != "Some Artist" || first.Album != "Test Album" {
		t.Errorf("first track should inherit album artist and title: %+v", first)
	}
	if second.VideoID != "v2" || second.Artists[0].Name != "Guest" || second.DurationSeconds != 3723 {
		t.Errorf("unexpected second track: %+v", second)
	}

	t.Run("not found", func(t *testing.T) {
		_, err := c.Album(context.Background(), "MPREb_missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if _, err := c.Album(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func playlistPage(token string, rows ...string) string {
	cont := ""
	if token != "" {
		cont = `, {"continuationItemRenderer": {"continuationEndpoint": {"continuationCommand": {"token": "` + token + `"}}}}`
	}
	return `{
		"header": {"musicResponsiveHeaderRenderer": {
			"title": {"runs": [{"text": "Road Trip"}]},
			"subtitle": {"runs": [{"text": "Playlist"}, {"text": " • "}, {"text": "2024"}]},
			"secondSubtitle": {"runs": [{"text": "3 songs"}, {"text": " • "}, {"text": "12 minutes"}]},
			"straplineTextOne": {"runs": [{"text": "DJ", "navigationEndpoint": {"browseEndpoint": {"browseId": "UCdj"}}}]}
		}},
		"contents": {"singleColumnBrowseResultsRenderer": {"tabs": [{"tabRenderer": {"content": {"sectionListRenderer": {"contents": [
			{"musicPlaylistShelfRenderer": {"contents": [` + strings.Join(rows, ",") + cont + `]}}
		]}}}}]}}
	}`
}

func continuationPage(rows ...string) string {
	return `{"onResponseReceivedActions": [{"appendContinuationItemsAction": {"continuationItems": [` + strings.Join(rows, ",") + `]}}]}`
}

func TestPlaylist(t *testing.T) {
	pages := map[string]string{
		"VLPLtest": playlistPage("tok1",
			trackRow("p1", "One", "A", "UCa", "4:00"),
			trackRow("p2", "Two", "B", "UCb", "4:00"),
		),
		"tok1": continuationPage(trackRow("p3", "Three", "C", "UCc", "4:00")),
	}

	t.Run("adds VL prefix and follows continuations", func(t *testing.T) {
		var seen []browseRequest
		c := newTestClient(t, browseServer(t, pages, &seen))

		pl, err := c.Playlist(context.Background(), "PLtest", 0)
		if err != nil {
			t.Fatalf("Playlist() error = %v", err)
		}
		if seen[0].BrowseID != "VLPLtest" {
			t.Errorf("expected VL-prefixed browse id, got %q", seen[0].BrowseID)
		}
		if seen[0].Context.Client.ClientName != innertubeClientName || seen[0].Context.Client.HL != "en" {
			t.Errorf("unexpected client context: %+v", seen[0].Context)
		}
		if pl.ID != "PLtest" || pl.Title != "Road Trip" || pl.Year != "2024" || pl.TrackCount != 3 {
			t.Errorf("unexpected playlist: %+v", pl)
		}
		if pl.Author == nil || pl.Author.Name != "DJ" {
			t.Errorf("unexpected author: %+v", pl.Author)
		}
		if len(pl.Tracks) != 3 || pl.Tracks[2].VideoID != "p3" {
			t.Errorf("expected three tracks in order, got %+v", pl.Tracks)
		}
	})

	t.Run("already prefixed id and limit", func(t *testing.T) {
		var seen []browseRequest
		c := newTestClient(t, browseServer(t, pages, &seen))

		pl, err := c.Playlist(context.Background(), "VLPLtest", 1)
		if err != nil {
			t.Fatalf("Playlist() error = %v", err)
		}
		if len(seen) != 1 {
			t.Errorf("limit reached on first page, expected 1 call, got %d", len(seen))
		}
		if len(pl.Tracks) != 1 || pl.Tracks[0].VideoID != "p1" {
			t.Errorf("expected truncated listing, got %+v", pl.Tracks)
		}
		if pl.ID != "PLtest" {
			t.Errorf("expected id without VL, got %s", pl.ID)
		}
	})

	t.Run("upstream error", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		_, err := c.Playlist(context.Background(), "PLx", 10)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestFindAllDocumentOrder(t *testing.T) {
	doc := gjson.Parse(`{
		"zeta": {"hit": {"n": 1}},
		"alpha": {"hit": {"n": 2}, "list": [{"hit": {"n": 3}}, {"other": {"hit": {"n": 4}}}]},
		"mid": {"hit": {"n": 5}}
	}`)

	for range 20 {
		var got []int64
		for _, m := range findAll(doc, "hit") {
			got = append(got, m.Get("n").Int())
		}
		if fmt.Sprint(got) != "[1 2 3 4 5]" {
			t.Fatalf("findAll order = %v, want [1 2 3 4 5]", got)
		}
	}

	if findFirst(doc, "missing").Exists() {
		t.Error("expected no match for missing key")
	}
}

func TestContinuationToken(t *testing.T) {
	t.Run("listing token wins over tokens elsewhere on the page", func(t *testing.T) {
		page := playlistPage("shelf-token", trackRow("p1", "One", "A", "UCa", "4:00"))
		page = strings.Replace(page, `"header": {`, `"header": {"continuationItemRenderer": {"continuationEndpoint": {"continuationCommand": {"token": "decoy"}}}, `, 1)

		for range 20 {
			if got := continuationToken(gjson.Parse(page)); got != "shelf-token" {
				t.Fatalf("continuationToken() = %q, want shelf-token", got)
			}
		}
	})

	t.Run("legacy next continuation data", func(t *testing.T) {
		page := `{"contents": {"sectionListRenderer": {"contents": [{"musicPlaylistShelfRenderer": {
			"contents": [` + trackRow("p1", "One", "A", "UCa", "4:00") + `],
			"continuations": [{"nextContinuationData": {"continuation": "legacy"}}]
		}}]}}}`
		if got := continuationToken(gjson.Parse(page)); got != "legacy" {
			t.Errorf("continuationToken() = %q, want legacy", got)
		}
	})

	t.Run("no continuation", func(t *testing.T) {
		if got := continuationToken(gjson.Parse(continuationPage(trackRow("p3", "Three", "C", "UCc", "4:00")))); got != "" {
			t.Errorf("continuationToken() = %q, want empty", got)
		}
	})
}

func TestLyrics(t *testing.T) {
	page := `{"contents": {"sectionListRenderer": {"contents": [{"musicDescriptionShelfRenderer": {
		"description": {"runs": [{"text": "line one\nline two"}]},
		"footer": {"runs": [{"text": "Source: LyricFind"}]}
	}}]}}}`
	c := newTestClient(t, browseServer(t, map[string]string{"MPLYt_ok": page, "MPLYt_empty": `{}`}, nil))

	t.Run("success", func(t *testing.T) {
		l, err := c.Lyrics(context.Background(), "MPLYt_ok")
		if err != nil {
			t.Fatalf("Lyrics() error = %v", err)
		}
		if l.Lyrics != "line one\nline two" || l.Source != "Source: LyricFind" {
			t.Errorf("unexpected lyrics: %+v", l)
		}
	})

	t.Run("no lyrics on page", func(t *testing.T) {
		if _, err := c.Lyrics(context.Background(), "MPLYt_empty"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("bad prefix", func(t *testing.T) {
		if _, err := c.Lyrics(context.Background(), "MPREb_x"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestParseDuration(t *testing.T) {
	tc := map[string]int{"3:25": 205, "1:02:03": 3723, "": 0, "live": 0, "45": 45}
	for in, want := range tc {
		if got := parseDuration(in); got != want {
			t.Errorf("parseDuration(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "album", ID: "MPREb_x", Err: shared.ErrNotFound}
	if err.Error() != `catalog album "MPREb_x": resource not found` {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if (&Error{Op: "search", Err: shared.ErrNotFound}).Error() != "catalog search: resource not found" {
		t.Error("unexpected message without id")
	}
}
