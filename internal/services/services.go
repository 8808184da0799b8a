package services

import (
	"context"

	"github.com/desertthunder/ytmproxy/internal/models"
)

// Proxy is the part of a running proxy that background tasks depend on.
type Proxy interface {
	// StreamURL resolves a video identifier to a playable URL.
	StreamURL(ctx context.Context, videoID string) (string, error)

	// Playlist fetches up to limit tracks of a playlist.
	Playlist(ctx context.Context, browseID string, limit int) (*models.Playlist, error)
}

var _ Proxy = (*APIService)(nil)
