package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dukex/siteflow/pkg/cmd"
	"github.com/dukex/siteflow/pkg/log"
	"github.com/dukex/siteflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func NewDefinitionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "definitions",
		Aliases:   []string{"d"},
		Usage:     "List the available workflow definitions, or print one",
		ArgsUsage: "[ID]",
		Flags: []cli.Flag{
			definitionsPathFlag(),
		},
		Action: func(_ context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			reg, err := cmd.NewRegistry(log.WithModule("definitions"), command.String("definitions-path"))
			if err != nil {
				return err
			}

			out := command.Root().Writer

			if id := command.Args().First(); id != "" {
				definition, ok := reg.Get(id)
				if !ok {
					return fmt.Errorf("%w: %s", workflow.ErrDefinitionNotFound, id)
				}

				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")

				return encoder.Encode(definition)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTRIGGER\tSTEPS\tNAME")

			for _, definition := range reg.List() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", definition.ID, definition.Trigger.Type, len(definition.Steps), definition.Name)
			}

			return w.Flush()
		},
	}
}
