package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ledgersync/cmd/app/commands"
	"github.com/allisson/ledgersync/internal/app"
	"github.com/allisson/ledgersync/internal/config"
)

func getOutboxCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "outbox-stats",
			Usage: "Show outbox entry counts per status",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				queue, err := container.QueueUseCase()
				if err != nil {
					return err
				}

				return commands.RunOutboxStats(
					ctx,
					queue,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "outbox-requeue",
			Usage: "Move failed outbox entries back to the queue",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "force",
					Value: false,
					Usage: "Requeue every failed entry, ignoring the attempt cap and retry interval",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				queue, err := container.QueueUseCase()
				if err != nil {
					return err
				}

				return commands.RunOutboxRequeue(
					ctx,
					queue,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Bool("force"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "outbox-clean",
			Usage: "Delete done outbox entries and optionally every failed entry",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "older-than-hours",
					Usage: "Delete done entries last updated more than this many hours ago (default: OUTBOX_DONE_RETENTION_HOURS)",
				},
				&cli.BoolFlag{
					Name:  "failed",
					Value: false,
					Usage: "Also delete every failed entry",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				queue, err := container.QueueUseCase()
				if err != nil {
					return err
				}

				olderThanHours := int(cfg.OutboxDoneRetention / time.Hour)
				if cmd.IsSet("older-than-hours") {
					olderThanHours = int(cmd.Int("older-than-hours"))
				}

				return commands.RunOutboxClean(
					ctx,
					queue,
					container.Logger(),
					commands.DefaultIO().Writer,
					olderThanHours,
					cmd.Bool("failed"),
					cmd.String("format"),
				)
			},
		},
	}
}
