package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmproxy/internal/extract"
	"github.com/desertthunder/ytmproxy/internal/formatter"
	"github.com/desertthunder/ytmproxy/internal/resolver"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

type resolveOutput struct {
	VideoID  string            `json:"videoId"`
	URL      string            `json:"url,omitempty"`
	Strategy string            `json:"strategy,omitempty"`
	Attempts []extract.Attempt `json:"attempts"`
	Duration string            `json:"duration"`
	Error    string            `json:"error,omitempty"`
}

// Resolve runs the pipeline once for a video ID and prints the URL and every failed attempt.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	videoID := strings.TrimSpace(cmd.StringArg("videoId"))
	if videoID == "" {
		return fmt.Errorf("%w: videoId", shared.ErrMissingArgument)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	var opts []resolver.Option
	db, journal, err := r.openJournal(config)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, resolver.WithRecorder(journal))
	}

	pipeline, err := resolver.NewFromConfig(config, r.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to build resolver: %w", err)
	}

	return r.reportResolution(ctx, pipeline, videoID, cmd.Bool("json"))
}

type streamResolver interface {
	Resolve(ctx context.Context, videoID string) (*resolver.Result, error)
}

func (r *Runner) reportResolution(ctx context.Context, p streamResolver, videoID string, asJSON bool) error {
	res, err := p.Resolve(ctx, videoID)

	if asJSON {
		out := resolveOutput{VideoID: videoID, Attempts: []extract.Attempt{}}
		if res != nil {
			out.URL, out.Strategy, out.Duration = res.URL, res.Strategy, res.Duration.String()
			if res.Attempts != nil {
				out.Attempts = res.Attempts
			}
		}
		if err != nil {
			out.Error = err.Error()
			var exhausted *resolver.ExhaustedError
			if errors.As(err, &exhausted) {
				out.Attempts = exhausted.Attempts
			}
		}
		if werr := r.writeJSON(out, true); werr != nil {
			return werr
		}
		return err
	}

	if werr := r.writePlain("%s", formatter.ResolveReport(r.palette, videoID, res, err)); werr != nil {
		return werr
	}
	return err
}
