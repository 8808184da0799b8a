package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytmproxy/internal/shared"
)

// APIGet makes a direct GET request to the proxy
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	compact := cmd.Bool("json")

	r.logger.Debug("GET request", "path", path, "base_url", r.api.BaseURL())

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return r.writePlain("%d %s\n", resp.StatusCode, resp.Headers.Get("Location"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !compact)
	}

	return r.writePlain("%s\n", resp.Body)
}

// APIHealth reports whether the proxy is reachable and how many URLs it has cached.
func (r *Runner) APIHealth(ctx context.Context, cmd *cli.Command) error {
	status, entries, err := r.api.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: proxy at %s: %v", shared.ErrServiceUnavailable, r.api.BaseURL(), err)
	}

	return r.writePlain("%s %s (%d cached)\n", r.palette.OK("✓"), status, entries)
}
