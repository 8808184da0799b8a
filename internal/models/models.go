package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Outcome is how a single resolution ended.
type Outcome string

const (
	OutcomeCacheHit  Outcome = "cache_hit"
	OutcomeResolved  Outcome = "resolved"
	OutcomeExhausted Outcome = "exhausted"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCacheHit, OutcomeResolved, OutcomeExhausted:
		return true
	}
	return false
}

// Attempt is a failed sub-attempt stored alongside a [Resolution].
type Attempt struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error,omitempty"`
}

// Resolution is a journal entry for one pipeline invocation.
type Resolution struct {
	id        string
	createdAt time.Time

	VideoID  string
	Outcome  Outcome
	Strategy string // strategy that produced the URL, empty for cache hits and failures
	Attempts []Attempt
	Duration time.Duration
}

// NewResolution creates an unsaved [Resolution] stamped with the current time.
func NewResolution(videoID string, outcome Outcome) *Resolution {
	return &Resolution{VideoID: videoID, Outcome: outcome, createdAt: time.Now().UTC()}
}

func (r *Resolution) ID() string               { return r.id }
func (r *Resolution) SetID(id string)          { r.id = id }
func (r *Resolution) CreatedAt() time.Time     { return r.createdAt }
func (r *Resolution) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *Resolution) Succeeded() bool          { return r.Outcome != OutcomeExhausted }

func (r *Resolution) Validate() error {
	if r.VideoID == "" {
		return fmt.Errorf("video id is required")
	}
	if !r.Outcome.Valid() {
		return fmt.Errorf("unknown outcome %q", r.Outcome)
	}
	if r.Outcome == OutcomeResolved && r.Strategy == "" {
		return fmt.Errorf("resolved outcome requires a strategy")
	}
	return nil
}
