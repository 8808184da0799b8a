// Package extract turns a video identifier into a directly playable audio stream URL.
//
// Each [Strategy] is one independent way of doing that. Strategies never panic past their boundary and never
// touch shared state on failure: they return an error describing every sub-attempt they made, as [Diagnostics].
//
// Three strategies exist:
//   - [YtdlpStrategy] shells out to yt-dlp once per client persona.
//   - [LibraryStrategy] uses the kkdai/youtube client.
//   - [MirrorStrategy] asks public Piped API mirrors, in order, each behind its own circuit breaker.
package extract

import (
	"context"
	"errors"
	"strings"
)

// Strategy is a single method of resolving an identifier to a stream URL.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, videoID string) (string, error)
}

// Attempt records one failed sub-attempt of a resolution.
type Attempt struct {
	Strategy string `json:"strategy"`
	Err      string `json:"error,omitempty"`
}

func (a Attempt) String() string {
	if a.Err == "" {
		return a.Strategy
	}
	return a.Strategy + ": " + a.Err
}

// Diagnostics is the ordered list of attempts a strategy made before giving up.
type Diagnostics []Attempt

func (d Diagnostics) Error() string {
	parts := make([]string, len(d))
	for i, a := range d {
		parts[i] = a.String()
	}
	return strings.Join(parts, "; ")
}

// Fail wraps a single error as [Diagnostics] for the named strategy.
func Fail(name string, err error) Diagnostics {
	if err == nil {
		err = errors.New("no url returned")
	}
	return Diagnostics{{Strategy: name, Err: err.Error()}}
}

// Flatten returns the attempts carried by err. An error that is not [Diagnostics] becomes one attempt for name.
func Flatten(name string, err error) []Attempt {
	var diags Diagnostics
	if errors.As(err, &diags) && len(diags) > 0 {
		return append([]Attempt(nil), diags...)
	}
	return Fail(name, err)
}
