package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dukex/siteflow/pkg/cmd"
	"github.com/dukex/siteflow/pkg/log"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

func NewHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"h"},
		Usage:   "List workflow instances, newest first",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.StringFlag{
				Name:  "definition",
				Usage: "Only instances of this workflow definition",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only instances in this status (pending, running, completed, failed, cancelled)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Only instances started by this user",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of instances",
				Value:   persistence.DefaultListLimit,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("history")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			instances, err := store.Instances().List(ctx, persistence.ListInstancesOptions{
				DefinitionID: command.String("definition"),
				Status:       models.InstanceStatus(command.String("status")),
				UserID:       command.String("user"),
				Limit:        int(command.Int("limit")),
			})
			if err != nil {
				return fmt.Errorf("failed to list instances: %w", err)
			}

			w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tDEFINITION\tSTATUS\tSTARTED\tUSER\tERROR")

			for _, instance := range instances {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					instance.ID,
					instance.DefinitionID,
					instance.Status,
					instance.StartTime.Format(time.RFC3339),
					instance.UserID,
					instance.Error,
				)
			}

			return w.Flush()
		},
	}
}
