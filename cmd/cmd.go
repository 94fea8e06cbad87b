// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configCommand handles catalog options
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Read and change catalog options",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every option",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ConfigList,
			},
			{
				Name:  "get",
				Usage: "Print the value of one option",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.ConfigGet,
			},
			{
				Name:  "set",
				Usage: "Store the value of one option",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.ConfigSet,
			},
		},
	}
}

// jobFlags are shared by job add and job change.
func jobFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Usage:   "Manifest name (defaults to the playlist title)",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Quality profile name",
		},
		&cli.IntFlag{
			Name:  "quality",
			Usage: "Maximum vertical resolution (0 clears it)",
		},
		&cli.StringFlag{
			Name:  "range",
			Usage: "Index range start:stop, either side may be empty",
		},
		&cli.StringFlag{
			Name:  "export",
			Usage: "Directory that receives a copy of every written manifest",
		},
		&cli.BoolFlag{
			Name:  "disabled",
			Usage: "Skip the job unless --force-all is given",
		},
		&cli.BoolFlag{
			Name:  "no-download",
			Usage: "Announce new videos without downloading them",
		},
		&cli.BoolFlag{
			Name:  "no-sync",
			Usage: "Reuse the stored playlist without contacting the feed",
		},
		&cli.BoolFlag{
			Name:  "run-once",
			Usage: "Disable the job after its next successful run",
		},
	}
}

// jobCommand handles job definitions
func jobCommand(r *Runner) *cli.Command {
	addFlags := append([]cli.Flag{
		&cli.StringFlag{
			Name:  "type",
			Usage: "Feed kind: playlist or favorites",
			Value: "playlist",
		},
	}, jobFlags()...)

	return &cli.Command{
		Name:  "job",
		Usage: "Manage synchronization jobs",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a job for a playlist id or, with --type favorites, a user name",
				ArgsUsage: "<name> <playlist-or-user>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "resource"},
				},
				Flags:  addFlags,
				Action: r.JobAdd,
			},
			{
				Name:      "change",
				Usage:     "Change the settings of a job; only given flags are applied",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  jobFlags(),
				Action: r.JobChange,
			},
			{
				Name:      "rm",
				Aliases:   []string{"remove"},
				Usage:     "Delete a job; its playlist stays in the catalog",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.JobRemove,
			},
			{
				Name:      "disable",
				Usage:     "Disable a job",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.JobDisable,
			},
			{
				Name:      "enable",
				Usage:     "Enable a job",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.JobEnable,
			},
			{
				Name:  "list",
				Usage: "List jobs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "enabled",
						Usage: "Only list enabled jobs",
					},
				},
				Action: r.JobList,
			},
			{
				Name:      "show",
				Usage:     "Show one job and the state of its playlist",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.JobShow,
			},
		},
	}
}

// runCommand runs jobs
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Synchronize playlists, acquire their videos and write manifests",
		ArgsUsage: "[job...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "check-only",
				Aliases: []string{"p"},
				Usage:   "Only use videos that are already local",
			},
			&cli.BoolFlag{
				Name:    "no-download",
				Aliases: []string{"d"},
				Usage:   "Announce new videos without downloading them",
			},
			&cli.BoolFlag{
				Name:  "force-all",
				Usage: "Run disabled jobs and retry private or format-less videos",
			},
		},
		Action: r.Run,
	}
}

// importCommand folds legacy records into the catalog
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a directory of legacy JSON playlist records",
		ArgsUsage: "<dir>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "dir"},
		},
		Action: r.Import,
	}
}

// exportCommand renders a job's playlist from the catalog
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export the catalog view of a job's playlist",
		ArgsUsage: "<job>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "job"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, markdown or txt",
				Value:   "markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
		},
		Action: r.Export,
	}
}
