package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

var (
	yearPattern  = regexp.MustCompile(`^\d{4}$`)
	countPattern = regexp.MustCompile(`^([\d,.]+)\s+(songs?|tracks?|videos?)`)
)

// findAll collects every object stored under key anywhere in the tree, in document order.
// Matches are not searched for nested occurrences of key.
func findAll(node gjson.Result, key string) []gjson.Result {
	var out []gjson.Result
	var walk func(gjson.Result)
	walk = func(n gjson.Result) {
		if !n.IsObject() && !n.IsArray() {
			return
		}
		isObject := n.IsObject()
		n.ForEach(func(k, child gjson.Result) bool {
			if isObject && k.String() == key && child.IsObject() {
				out = append(out, child)
				return true
			}
			walk(child)
			return true
		})
	}
	walk(node)
	return out
}

// findFirst returns the first object under key in document order. The result does not exist when there is none.
func findFirst(node gjson.Result, key string) gjson.Result {
	if all := findAll(node, key); len(all) > 0 {
		return all[0]
	}
	return gjson.Result{}
}

// text flattens a formatted string node, which is either {"runs": [...]} or {"simpleText": "..."}.
func text(node gjson.Result) string {
	if s := node.Get("simpleText").String(); s != "" {
		return s
	}
	var b strings.Builder
	for _, r := range node.Get("runs").Array() {
		b.WriteString(r.Get("text").String())
	}
	return b.String()
}

func isSeparator(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "•", "&", ",", "and":
		return true
	}
	return false
}

// artistsFrom extracts artist references from runs, skipping separators and plain labels.
func artistsFrom(node gjson.Result) []models.Artist {
	var artists []models.Artist
	for _, r := range node.Get("runs").Array() {
		name := r.Get("text").String()
		if isSeparator(name) {
			continue
		}
		id := r.Get("navigationEndpoint.browseEndpoint.browseId").String()
		if id == "" || strings.HasPrefix(id, "MPRE") {
			continue
		}
		artists = append(artists, models.Artist{Name: name, ID: id})
	}
	return artists
}

func thumbnails(node gjson.Result) []models.Thumbnail {
	list := node.Array()
	out := make([]models.Thumbnail, 0, len(list))
	for _, t := range list {
		url := t.Get("url").String()
		if url == "" {
			continue
		}
		out = append(out, models.Thumbnail{URL: url, Width: int(t.Get("width").Int()), Height: int(t.Get("height").Int())})
	}
	return out
}

func headerThumbnails(header gjson.Result) []models.Thumbnail {
	if t := header.Get("thumbnail.musicThumbnailRenderer.thumbnail.thumbnails"); t.Exists() {
		return thumbnails(t)
	}
	return thumbnails(header.Get("thumbnail.croppedSquareThumbnailRenderer.thumbnail.thumbnails"))
}

// parseDuration converts "h:mm:ss" or "m:ss" to seconds.
func parseDuration(s string) int {
	total := 0
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func flexColumn(item gjson.Result, i int) gjson.Result {
	return item.Get(fmt.Sprintf("flexColumns.%d.musicResponsiveListItemFlexColumnRenderer.text", i))
}

// parseTrack reads one musicResponsiveListItemRenderer row.
func parseTrack(item gjson.Result) (models.Track, bool) {
	title := flexColumn(item, 0)
	track := models.Track{
		Title:   text(title),
		VideoID: item.Get("playlistItemData.videoId").String(),
	}
	if track.VideoID == "" {
		for _, r := range title.Get("runs").Array() {
			if id := r.Get("navigationEndpoint.watchEndpoint.videoId").String(); id != "" {
				track.VideoID = id
				break
			}
		}
	}
	if track.VideoID == "" || track.Title == "" {
		return track, false
	}

	track.Artists = artistsFrom(flexColumn(item, 1))
	if track.Artists == nil {
		track.Artists = []models.Artist{}
	}
	track.Album = text(flexColumn(item, 2))
	track.Duration = text(item.Get("fixedColumns.0.musicResponsiveListItemFixedColumnRenderer.text"))
	track.DurationSeconds = parseDuration(track.Duration)
	track.Thumbnails = thumbnails(item.Get("thumbnail.musicThumbnailRenderer.thumbnail.thumbnails"))
	return track, true
}

// listingKeys are the containers, in the order they are searched, that hold track rows on browse pages.
var listingKeys = []string{
	"contents", "continuationItems", "continuationContents", "musicShelfContinuation", "musicPlaylistShelfContinuation",
	"onResponseReceivedActions", "appendContinuationItemsAction", "twoColumnBrowseResultsRenderer", "secondaryContents",
	"sectionListRenderer", "musicShelfRenderer", "musicPlaylistShelfRenderer", "singleColumnBrowseResultsRenderer",
	"tabs", "tabRenderer", "content",
}

// listing returns the playable rows of a page in document order, and the continuation token of the first
// listing that carries one. Only the track containers are searched, so tokens elsewhere on the page are ignored.
func listing(data gjson.Result) ([]models.Track, string) {
	var tracks []models.Track
	var token string
	var walk func(gjson.Result)
	walk = func(n gjson.Result) {
		switch {
		case n.IsArray():
			n.ForEach(func(_, child gjson.Result) bool {
				walk(child)
				return true
			})
		case n.IsObject():
			if item := n.Get("musicResponsiveListItemRenderer"); item.IsObject() {
				if t, ok := parseTrack(item); ok {
					tracks = append(tracks, t)
				}
				return
			}
			if token == "" {
				token = continuationOf(n)
			}
			for _, key := range listingKeys {
				if child := n.Get(key); child.Exists() {
					walk(child)
				}
			}
		}
	}
	walk(data)
	return tracks, token
}

// continuationOf reads a token from a continuation item or from a shelf's legacy continuations list.
func continuationOf(n gjson.Result) string {
	if token := n.Get("continuationItemRenderer.continuationEndpoint.continuationCommand.token").String(); token != "" {
		return token
	}
	return n.Get("continuations.0.nextContinuationData.continuation").String()
}

func parseTracks(data gjson.Result) []models.Track {
	tracks, _ := listing(data)
	return tracks
}

func continuationToken(data gjson.Result) string {
	_, token := listing(data)
	return token
}

func pageHeader(data gjson.Result) gjson.Result {
	for _, key := range []string{"musicResponsiveHeaderRenderer", "musicDetailHeaderRenderer", "musicEditablePlaylistDetailHeaderRenderer"} {
		if h := findFirst(data, key); h.Exists() {
			if inner := h.Get("header.musicResponsiveHeaderRenderer"); inner.IsObject() {
				return inner
			}
			return h
		}
	}
	return gjson.Result{}
}

func subtitleParts(header gjson.Result) []string {
	var parts []string
	for _, node := range []gjson.Result{header.Get("subtitle"), header.Get("secondSubtitle")} {
		for _, r := range node.Get("runs").Array() {
			if s := r.Get("text").String(); !isSeparator(s) {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
	}
	return parts
}

func headerDescription(header gjson.Result) string {
	if d := text(header.Get("description.musicDescriptionShelfRenderer.description")); d != "" {
		return d
	}
	return text(header.Get("description"))
}

func parseAlbum(browseID string, data gjson.Result) (*models.Album, error) {
	header := pageHeader(data)
	if !header.Exists() {
		return nil, fmt.Errorf("%w: album header", shared.ErrNotFound)
	}

	album := &models.Album{
		BrowseID:    browseID,
		Title:       text(header.Get("title")),
		Description: headerDescription(header),
		Thumbnails:  headerThumbnails(header),
		Artists:     artistsFrom(header.Get("straplineTextOne")),
	}
	if len(album.Artists) == 0 {
		album.Artists = artistsFrom(header.Get("subtitle"))
	}
	if album.Artists == nil {
		album.Artists = []models.Artist{}
	}

	for i, part := range subtitleParts(header) {
		switch {
		case i == 0 && !yearPattern.MatchString(part):
			album.Type = part
		case yearPattern.MatchString(part):
			album.Year = part
		}
	}

	album.AudioPlaylistID = findFirst(data, "watchPlaylistEndpoint").Get("playlistId").String()

	album.Tracks = parseTracks(data)
	for i := range album.Tracks {
		if len(album.Tracks[i].Artists) == 0 {
			album.Tracks[i].Artists = album.Artists
		}
		if album.Tracks[i].Album == "" {
			album.Tracks[i].Album = album.Title
		}
	}
	if album.Tracks == nil {
		album.Tracks = []models.Track{}
	}
	album.TrackCount = len(album.Tracks)
	return album, nil
}

func parsePlaylist(id string, data gjson.Result) (*models.Playlist, error) {
	header := pageHeader(data)
	if !header.Exists() {
		return nil, fmt.Errorf("%w: playlist header", shared.ErrNotFound)
	}

	playlist := &models.Playlist{
		ID:          id,
		Title:       text(header.Get("title")),
		Description: headerDescription(header),
		Thumbnails:  headerThumbnails(header),
	}

	authors := artistsFrom(header.Get("straplineTextOne"))
	if len(authors) == 0 {
		authors = artistsFrom(header.Get("subtitle"))
	}
	if len(authors) > 0 {
		playlist.Author = &authors[0]
	} else if name := text(header.Get("straplineTextOne")); name != "" {
		playlist.Author = &models.Artist{Name: name}
	}

	for _, part := range subtitleParts(header) {
		if yearPattern.MatchString(part) {
			playlist.Year = part
		}
		if m := countPattern.FindStringSubmatch(part); m != nil {
			n, _ := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(m[1]))
			playlist.TrackCount = n
		}
	}

	playlist.Tracks = parseTracks(data)
	if playlist.Tracks == nil {
		playlist.Tracks = []models.Track{}
	}
	return playlist, nil
}

func parseLyrics(data gjson.Result) (*models.Lyrics, error) {
	shelf := findFirst(data, "musicDescriptionShelfRenderer")
	if !shelf.Exists() {
		return nil, fmt.Errorf("%w: lyrics", shared.ErrNotFound)
	}

	lyrics := &models.Lyrics{
		Lyrics: text(shelf.Get("description")),
		Source: text(shelf.Get("footer")),
	}
	if lyrics.Lyrics == "" {
		return nil, fmt.Errorf("%w: lyrics", shared.ErrNotFound)
	}
	return lyrics, nil
}
