// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes the starter config and prepares the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml from the template and initialize the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Recreate the client state table, forgetting the stored session",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles sign in and out
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in to the analysis service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Email or username",
						Sources: cli.EnvVars("BIRDSEYE_USERNAME"),
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("BIRDSEYE_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the stored session and check the service",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// analyzeCommand uploads a photo and reports the wet litter reading.
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "analyze",
		Aliases: []string{"a"},
		Usage:   "Upload a litter photo and report the wet percentage",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "path",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the report as JSON",
			},
			&cli.BoolFlag{
				Name:  "yaml",
				Usage: "Output the report as YAML",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output the report as CSV",
			},
			&cli.BoolFlag{
				Name:    "markdown",
				Aliases: []string{"md"},
				Usage:   "Write a Markdown report and the processed image to a directory",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (or directory with --markdown)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the processed image in the system viewer",
			},
		},
		Action: r.Analyze,
	}
}

// apiCommand makes direct calls to the analysis service
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the analysis service",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the raw response",
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
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where the dashboard writes its logs",
				Value: "./tmp/birdseye-tui.log",
			},
		},
		Action: r.TUI,
	}
}
