package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ledgersync/cmd/app/commands"
	"github.com/allisson/ledgersync/internal/app"
	"github.com/allisson/ledgersync/internal/config"
	"github.com/allisson/ledgersync/internal/scheduler"
)

func getSyncCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "push",
			Usage:  "Push queued outbox entries to the remote store once",
			Flags:  []cli.Flag{formatFlag()},
			Action: syncAction(scheduler.KindPush),
		},
		{
			Name:   "pull",
			Usage:  "Reconcile the local store from the remote store once",
			Flags:  []cli.Flag{formatFlag()},
			Action: syncAction(scheduler.KindPull),
		},
	}
}

func syncAction(kind scheduler.Kind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.Load()
		container := app.NewContainer(cfg)
		defer func() { _ = container.Shutdown(ctx) }()

		s, err := container.Scheduler()
		if err != nil {
			return err
		}

		return commands.RunSync(
			ctx,
			s,
			container.Logger(),
			commands.DefaultIO().Writer,
			kind,
			cmd.String("format"),
		)
	}
}
