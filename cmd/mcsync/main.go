package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	configFlag := &cli.StringFlag{
		Name:  "config",
		Usage: "path to client configuration yaml file",
		Value: "mcsync_config.yaml",
	}
	identityFlag := &cli.StringFlag{
		Name:  "identity",
		Usage: "path to age identity for the bundled access token",
	}

	cmd := &cli.Command{
		Name:    "mcsync",
		Usage:   "Sync a game client install against its remote manifest",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Run one full sync cycle (resolve versions, reconcile files)",
				Flags: []cli.Flag{
					configFlag,
					identityFlag,
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "log debug detail to the console",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSync(ctx, cmd.String("config"), cmd.String("identity"), cmd.Bool("verbose"))
				},
			},
			{
				Name:  "resolve",
				Usage: "Resolve the active game profile and print it as JSON",
				Flags: []cli.Flag{configFlag, identityFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runResolve(ctx, cmd.String("config"), cmd.String("identity"))
				},
			},
			{
				Name:      "validate",
				Usage:     "Validate a manifest document without touching the network",
				ArgsUsage: "<manifest.yaml>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one manifest file argument")
					}
					return runValidate(cmd.Args().First())
				},
			},
			{
				Name:  "check",
				Usage: "Verify config, remote store access, and the remote manifest",
				Flags: []cli.Flag{configFlag, identityFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runCheck(ctx, cmd.String("config"), cmd.String("identity"))
				},
			},
		},
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "\nsync interrupted")
			os.Exit(130)
		}
		slog.Error("CLI error", "error", err)
		os.Exit(1)
	}
}
