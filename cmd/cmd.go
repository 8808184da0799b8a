// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the stream proxy and catalog API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override the listen host",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the listen port",
			},
		},
		Action: r.Serve,
	}
}

// resolveCommand runs the resolution pipeline in-process
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a video ID to a stream URL without starting the server",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "videoId",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Resolve,
	}
}

// warmCommand pre-resolves IDs through a running proxy
func warmCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "warm",
		Usage:     "Pre-resolve video IDs through a running proxy so later requests hit the cache",
		ArgsUsage: "[videoId...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Warm every track of this playlist browse ID",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlist tracks",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Resolutions in flight at once",
				Value: 4,
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the summary",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in an interactive terminal view",
			},
		},
		Action: r.Warm,
	}
}

// apiCommand handles direct (proxy) API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to a running proxy",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the proxy, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:   "health",
				Usage:  "Check that the proxy is up (calls /health)",
				Action: r.APIHealth,
			},
		},
	}
}

// historyCommand reads the resolution journal
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded resolutions",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of entries (0 for all)",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv or markdown",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:  "video",
				Usage: "Only show entries for this video ID",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Print counts per outcome instead of entries",
			},
			&cli.DurationFlag{
				Name:  "prune",
				Usage: "Delete entries older than this age (e.g. 720h) and exit",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path to write",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the resolution journal and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
