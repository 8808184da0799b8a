package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, a [WarmItem] while resolving
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	ResolveStreams
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case ResolveStreams:
		return "resolve_streams"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(browseID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", browseID),
	}
}

func foundPlaylistUpdate(title string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", title, tracks),
	}
}

func resolvedUpdate(step, total int, item WarmItem) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, item.VideoID)
	if item.Err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, item.VideoID, item.Err)
	}
	return ProgressUpdate{
		Phase:   ResolveStreams,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    item,
	}
}
