package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmproxy/internal/formatter"
	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/repositories"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

type historyOpts struct {
	limit   int
	format  string
	videoID string
	output  string
	stats   bool
	prune   time.Duration
}

// History prints, exports, summarises or prunes the resolution journal.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, journal, err := r.openJournal(config)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: set database.path to record resolutions", shared.ErrMissingConfig)
	}
	defer db.Close()

	return r.history(ctx, journal, historyOpts{
		limit:   int(cmd.Int("limit")),
		format:  cmd.String("format"),
		videoID: cmd.String("video"),
		output:  cmd.String("output"),
		stats:   cmd.Bool("stats"),
		prune:   cmd.Duration("prune"),
	})
}

func (r *Runner) history(ctx context.Context, journal *repositories.ResolutionRepository, opts historyOpts) error {
	if opts.prune > 0 {
		removed, err := journal.Prune(ctx, time.Now().Add(-opts.prune))
		if err != nil {
			return err
		}
		return r.writePlain("Removed %d entries older than %s\n", removed, opts.prune)
	}

	if opts.stats {
		stats, err := journal.Stats(ctx)
		if err != nil {
			return err
		}
		return r.writePlain("%s", formatter.StatsToText(stats))
	}

	var (
		entries []*models.Resolution
		err     error
	)
	if opts.videoID != "" {
		entries, err = journal.ForVideo(ctx, opts.videoID, opts.limit)
	} else {
		entries, err = journal.Recent(ctx, opts.limit)
	}
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := formatter.WriteHistoryExport(entries, opts.format, opts.output); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d entries to %s\n", len(entries), opts.output)
	}

	data, err := formatter.RenderHistory(entries, opts.format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
