// Package main provides the siteflow command: the workflow engine server and
// tooling around workflow definitions.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := NewRootCommand()

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "siteflow",
		Usage:                 "Orchestrate construction project workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
			NewValidateCommand(),
			NewDefinitionsCommand(),
			NewHistoryCommand(),
		},
	}
}

func definitionsPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "definitions-path",
		Usage:   "Directory with additional workflow definitions (YAML or JSON)",
		Sources: cli.EnvVars("DEFINITIONS_PATH"),
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Persistence URL (memory, file://, postgres://, redis://, sqlite://)",
		Value:   "memory",
		Sources: cli.EnvVars("DATABASE_URL"),
	}
}
