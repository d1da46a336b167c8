package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fileshare/internal/server"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fileshare-server: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fileshare-server",
		Short:        "File sharing API server",
		SilenceUsage: true,
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(
		newAppCommand("serve", "Run the HTTP API", (*server.App).RunServer),
		newAppCommand("worker", "Run background jobs (redemption audit, token purge)", (*server.App).RunWorker),
		newAppCommand("migrate", "Apply database migrations and exit", (*server.App).Migrate),
	)
	return cmd
}

func newAppCommand(use, short string, run func(*server.App, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cmd.Flags(), os.LookupEnv)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			app, err := server.NewApp(ctx, cfg, os.Stdout)
			if err != nil {
				return err
			}
			defer app.Close()

			return run(app, ctx)
		},
	}
}
