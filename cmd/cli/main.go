package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fileshare/internal/client/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, cli.NewRootCommand(os.Stdin, os.Stdout)); err != nil {
		fmt.Fprintf(os.Stderr, "fileshare: %v\n", err)
		os.Exit(1)
	}
}
