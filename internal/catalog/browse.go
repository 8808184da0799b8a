package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

const (
	innertubeClientName    = "WEB_REMIX"
	innertubeClientVersion = "1.20250101.01.00"
	userAgent              = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxBrowseBody = 8 << 20
)

type browseRequest struct {
	Context      browseContext `json:"context"`
	BrowseID     string        `json:"browseId,omitempty"`
	Continuation string        `json:"continuation,omitempty"`
}

type browseContext struct {
	Client browseClient `json:"client"`
}

type browseClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl,omitempty"`
	GL            string `json:"gl,omitempty"`
}

// browse posts to the InnerTube browse endpoint with either a browse ID or a continuation token.
func (c *Client) browse(ctx context.Context, browseID, continuation string) (gjson.Result, error) {
	payload, err := json.Marshal(browseRequest{
		Context: browseContext{Client: browseClient{
			ClientName:    innertubeClientName,
			ClientVersion: innertubeClientVersion,
			HL:            c.language,
			GL:            c.region,
		}},
		BrowseID:     browseID,
		Continuation: continuation,
	})
	if err != nil {
		return gjson.Result{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/youtubei/v1/browse?prettyPrint=false", bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBrowseBody))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gjson.Result{}, fmt.Errorf("%w: %s", shared.ErrNotFound, browseID)
	case resp.StatusCode != http.StatusOK:
		return gjson.Result{}, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("failed to decode response: invalid JSON")
	}
	data := gjson.ParseBytes(body)
	if !data.IsObject() {
		return gjson.Result{}, fmt.Errorf("failed to decode response: expected an object")
	}
	return data, nil
}

// Album fetches an album page (MPREb_ browse IDs).
func (c *Client) Album(ctx context.Context, browseID string) (*models.Album, error) {
	browseID = strings.TrimSpace(browseID)
	if browseID == "" {
		return nil, &Error{Op: "album", Err: fmt.Errorf("%w: browseId", shared.ErrMissingArgument)}
	}

	data, err := c.browse(ctx, browseID, "")
	if err != nil {
		return nil, &Error{Op: "album", ID: browseID, Err: err}
	}

	album, err := parseAlbum(browseID, data)
	if err != nil {
		return nil, &Error{Op: "album", ID: browseID, Err: err}
	}
	return album, nil
}

// Playlist fetches a playlist page and follows continuations until limit tracks are collected.
//
// IDs without the VL prefix are prefixed for the browse call. The returned ID never carries it.
func (c *Client) Playlist(ctx context.Context, browseID string, limit int) (*models.Playlist, error) {
	browseID = strings.TrimSpace(browseID)
	if browseID == "" {
		return nil, &Error{Op: "playlist", Err: fmt.Errorf("%w: browseId", shared.ErrMissingArgument)}
	}
	if limit <= 0 {
		limit = DefaultPlaylistLimit
	}

	id := strings.TrimPrefix(browseID, "VL")
	data, err := c.browse(ctx, "VL"+id, "")
	if err != nil {
		return nil, &Error{Op: "playlist", ID: browseID, Err: err}
	}

	playlist, err := parsePlaylist(id, data)
	if err != nil {
		return nil, &Error{Op: "playlist", ID: browseID, Err: err}
	}

	token := continuationToken(data)
	for token != "" && len(playlist.Tracks) < limit {
		next, err := c.browse(ctx, "", token)
		if err != nil {
			c.logger.Warn("playlist continuation failed", "playlist_id", id, "tracks", len(playlist.Tracks), "err", err)
			break
		}
		more := parseTracks(next)
		if len(more) == 0 {
			break
		}
		playlist.Tracks = append(playlist.Tracks, more...)
		token = continuationToken(next)
	}

	if playlist.TrackCount < len(playlist.Tracks) {
		playlist.TrackCount = len(playlist.Tracks)
	}
	if len(playlist.Tracks) > limit {
		playlist.Tracks = playlist.Tracks[:limit]
	}
	return playlist, nil
}

// Lyrics fetches a lyrics page. Browse IDs must start with MPLY.
func (c *Client) Lyrics(ctx context.Context, browseID string) (*models.Lyrics, error) {
	browseID = strings.TrimSpace(browseID)
	if !strings.HasPrefix(browseID, "MPLY") {
		return nil, &Error{Op: "lyrics", ID: browseID, Err: fmt.Errorf("%w: lyrics browse id must start with MPLY", shared.ErrInvalidArgument)}
	}

	data, err := c.browse(ctx, browseID, "")
	if err != nil {
		return nil, &Error{Op: "lyrics", ID: browseID, Err: err}
	}

	lyrics, err := parseLyrics(data)
	if err != nil {
		return nil, &Error{Op: "lyrics", ID: browseID, Err: err}
	}
	return lyrics, nil
}
