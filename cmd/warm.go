package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmproxy/internal/services"
	"github.com/desertthunder/ytmproxy/internal/shared"
	"github.com/desertthunder/ytmproxy/internal/tasks"
	"github.com/desertthunder/ytmproxy/internal/ui"
)

const tuiLogPath = "./tmp/ytmproxy-warm.log"

type warmOpts struct {
	ids         []string
	playlist    string
	limit       int
	concurrency int
	quiet       bool
	tui         bool
}

// Warm resolves IDs (or a playlist's tracks) through the running proxy.
func (r *Runner) Warm(ctx context.Context, cmd *cli.Command) error {
	opts := warmOpts{
		ids:         cmd.Args().Slice(),
		playlist:    strings.TrimSpace(cmd.String("playlist")),
		limit:       int(cmd.Int("limit")),
		concurrency: int(cmd.Int("concurrency")),
		quiet:       cmd.Bool("quiet"),
		tui:         cmd.Bool("tui"),
	}
	if len(opts.ids) == 0 && opts.playlist == "" {
		return fmt.Errorf("%w: pass video IDs or --playlist", shared.ErrMissingArgument)
	}

	if opts.tui {
		return r.warmTUI(ctx, r.api, opts)
	}
	return r.warm(ctx, r.api, opts)
}

// warmRun picks the playlist or identifier form of a warm run.
func warmRun(warmer *tasks.Warmer, opts warmOpts) ui.RunFunc {
	return func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.WarmResult, error) {
		if opts.playlist != "" {
			return warmer.WarmPlaylist(ctx, opts.playlist, opts.limit, progress)
		}
		return warmer.Warm(ctx, opts.ids, progress)
	}
}

func (r *Runner) warm(ctx context.Context, proxy services.Proxy, opts warmOpts) error {
	run := warmRun(tasks.NewWarmer(proxy, opts.concurrency, r.logger), opts)

	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if !opts.quiet {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := run(ctx, progress)
	close(progress)
	wg.Wait()

	r.writeWarmSummary(result)
	return err
}

// warmTUI shows the run in a bubbletea program and prints the summary once it exits.
func (r *Runner) warmTUI(ctx context.Context, proxy services.Proxy, opts warmOpts) error {
	fileLogger, closer, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	model := ui.NewModel(ctx, "Warming streams", warmRun(tasks.NewWarmer(proxy, opts.concurrency, fileLogger), opts))
	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	result, err := model.Result()
	r.writeWarmSummary(result)
	return err
}

func (r *Runner) writeWarmSummary(result *tasks.WarmResult) {
	if result == nil {
		return
	}
	r.writePlainHeader("Warm summary")
	r.writePlain("%s %d  %s %d\n", r.palette.OK("resolved"), result.Succeeded, r.palette.Err("failed"), result.Failed)
	for _, item := range result.Failures() {
		r.writePlain("  %s: %v\n", r.palette.Warn(item.VideoID), item.Err)
	}
}
