package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	botpack "github.com/botpack/botpack/internal/apps/botpack/cmds"
	"github.com/botpack/botpack/internal/logs"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := botpack.Execute(ctx)
	if err != nil {
		logs.Errorf("%v", err)
		logs.Errorf("Type 'botpack help' to get help.")
	}

	if closeErr := logs.Close(); closeErr != nil {
		logs.Errorf("closing logs: %v", closeErr)
	}

	if err != nil {
		os.Exit(1)
	}
}
