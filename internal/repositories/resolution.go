package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

const resolutionColumns = "id, video_id, outcome, strategy, attempts, duration_ms, created_at"

// ResolutionRepository stores [models.Resolution] journal entries.
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Record implements the pipeline's recorder hook.
func (r *ResolutionRepository) Record(ctx context.Context, res *models.Resolution) error {
	return r.Create(ctx, res)
}

// Create inserts res with a generated ID.
func (r *ResolutionRepository) Create(ctx context.Context, res *models.Resolution) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	attempts := res.Attempts
	if attempts == nil {
		attempts = []models.Attempt{}
	}
	encoded, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("failed to encode attempts: %w", err)
	}

	if res.CreatedAt().IsZero() {
		res.SetCreatedAt(time.Now().UTC())
	}
	id := shared.GenerateID()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO resolutions (`+resolutionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		res.VideoID,
		string(res.Outcome),
		res.Strategy,
		string(encoded),
		res.Duration.Milliseconds(),
		res.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	res.SetID(id)
	return nil
}

// Get retrieves a journal entry by ID.
func (r *ResolutionRepository) Get(ctx context.Context, id string) (*models.Resolution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resolutionColumns+` FROM resolutions WHERE id = ?`, id)

	res, err := scanResolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: resolution %s", ErrNotFound, id)
	}
	return res, err
}

// Recent lists up to limit entries, newest first. A non-positive limit returns every entry.
func (r *ResolutionRepository) Recent(ctx context.Context, limit int) ([]*models.Resolution, error) {
	return r.list(ctx, "", limit)
}

// ForVideo lists up to limit entries for one video, newest first.
func (r *ResolutionRepository) ForVideo(ctx context.Context, videoID string, limit int) ([]*models.Resolution, error) {
	return r.list(ctx, videoID, limit)
}

func (r *ResolutionRepository) list(ctx context.Context, videoID string, limit int) ([]*models.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions`
	args := []any{}

	if videoID != "" {
		query += " WHERE video_id = ?"
		args = append(args, videoID)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var out []*models.Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

// Stats counts journal entries per outcome.
func (r *ResolutionRepository) Stats(ctx context.Context) (map[models.Outcome]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM resolutions GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count resolutions: %w", err)
	}
	defer rows.Close()

	stats := make(map[models.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats[models.Outcome(outcome)] = count
	}

	return stats, rows.Err()
}

// Prune deletes entries created before cutoff and returns how many were removed.
func (r *ResolutionRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := inTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM resolutions WHERE created_at < ?`, cutoff.UTC())
		if err != nil {
			return fmt.Errorf("failed to prune resolutions: %w", err)
		}
		removed, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		return nil
	})
	return removed, err
}

func scanResolution(s scanner) (*models.Resolution, error) {
	var (
		id         string
		videoID    string
		outcome    string
		strategy   string
		attempts   string
		durationMS int64
		createdAt  time.Time
	)

	if err := s.Scan(&id, &videoID, &outcome, &strategy, &attempts, &durationMS, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan resolution: %w", err)
	}

	res := models.NewResolution(videoID, models.Outcome(outcome))
	res.SetID(id)
	res.SetCreatedAt(createdAt)
	res.Strategy = strategy
	res.Duration = time.Duration(durationMS) * time.Millisecond

	if err := json.Unmarshal([]byte(attempts), &res.Attempts); err != nil {
		return nil, fmt.Errorf("failed to decode attempts for %s: %w", id, err)
	}

	return res, nil
}
