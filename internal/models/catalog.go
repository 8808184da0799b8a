package models

// Artist is a named artist reference. ID is the channel browse ID when known.
type Artist struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// Thumbnail is one sized image.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Track is a song or video row inside an album or playlist.
type Track struct {
	VideoID         string      `json:"videoId"`
	Title           string      `json:"title"`
	Artists         []Artist    `json:"artists"`
	Album           string      `json:"album,omitempty"`
	Duration        string      `json:"duration,omitempty"`
	DurationSeconds int         `json:"duration_seconds,omitempty"`
	Thumbnails      []Thumbnail `json:"thumbnails,omitempty"`
}

// Album is an album page.
type Album struct {
	BrowseID        string      `json:"browseId"`
	Title           string      `json:"title"`
	Type            string      `json:"type,omitempty"`
	Year            string      `json:"year,omitempty"`
	Description     string      `json:"description,omitempty"`
	Artists         []Artist    `json:"artists"`
	Thumbnails      []Thumbnail `json:"thumbnails,omitempty"`
	AudioPlaylistID string      `json:"audioPlaylistId,omitempty"`
	TrackCount      int         `json:"trackCount"`
	Tracks          []Track     `json:"tracks"`
}

// Playlist is a playlist page, truncated to the requested limit.
type Playlist struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Author      *Artist     `json:"author,omitempty"`
	Year        string      `json:"year,omitempty"`
	Thumbnails  []Thumbnail `json:"thumbnails,omitempty"`
	TrackCount  int         `json:"trackCount"`
	Tracks      []Track     `json:"tracks"`
}

// Lyrics is the text of a lyrics page and its attribution line.
type Lyrics struct {
	Lyrics string `json:"lyrics"`
	Source string `json:"source,omitempty"`
}
