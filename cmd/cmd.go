// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func outputFlags(format string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, json, csv, markdown, txt",
			Value:   format,
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "Fetch from the platform instead of the local cache",
		},
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the platform session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with username and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username or email (prompted when omitted)",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (prompted when omitted)",
						Sources: cli.EnvVars("LINESYNC_PASSWORD"),
					},
					&cli.BoolFlag{
						Name:  "preload",
						Usage: "Load every collection after signing in",
						Value: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and clear cached collections",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show session state without contacting the platform",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "whoami",
				Usage: "Show the account profile",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthWhoami,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
		},
	}
}

// callsCommand handles call history operations
func callsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "calls",
		Usage: "Call history",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List call history",
				Flags:  outputFlags("table"),
				Action: r.CallsList,
			},
			{
				Name:  "export",
				Usage: "Export collections to files with a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: linesync_export_{epoch})",
					},
					&cli.StringSliceFlag{
						Name:  "resource",
						Usage: "Collections to export (default: calls); use 'all' for every collection",
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Refresh each collection before writing it",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers",
						Value: 4,
					},
				},
				Action: r.CallsExport,
			},
		},
	}
}

// recordingsCommand handles recording operations
func recordingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recordings",
		Usage: "Call recordings",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List call recordings",
				Flags:  outputFlags("table"),
				Action: r.RecordingsList,
			},
		},
	}
}

// numbersCommand handles phone number operations
func numbersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "numbers",
		Usage: "Phone numbers",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your numbers, or the platform's available numbers with --platform",
				Flags: append(outputFlags("table"), &cli.BoolFlag{
					Name:  "platform",
					Usage: "List numbers offered by the platform",
				}),
				Action: r.NumbersList,
			},
		},
	}
}

// syncCommand handles coordinator operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Refresh and inspect cached collections",
		Commands: []*cli.Command{
			{
				Name:   "preload",
				Usage:  "Load every empty collection concurrently",
				Action: r.SyncPreload,
			},
			{
				Name:  "refresh",
				Usage: "Refresh one collection, or all of them",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type", UsageText: "calls | recordings | personal_numbers | platform_numbers | all"},
				},
				Action: r.SyncRefresh,
			},
			{
				Name:  "status",
				Usage: "Show count, refresh time, staleness and last error per collection",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.SyncStatus,
			},
		},
	}
}

// endpointsCommand handles endpoint discovery
func endpointsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "endpoints",
		Usage: "Inspect candidate platform routes",
		Commands: []*cli.Command{
			{
				Name:  "probe",
				Usage: "Resolve every resource family and report which route served it",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.EndpointsProbe,
			},
		},
	}
}

// serveCommand runs the status server with background refresh.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only status server and keep collections fresh",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
		},
		Action: r.Serve,
	}
}

// watchCommand returns the top-level TUI command.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive status dashboard",
		Action:  r.Watch,
	}
}
