package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"splusls/internal/cli"
	"splusls/internal/logging"
)

func main() {
	logger, closer, err := logging.Open(logging.LoadConfigFromEnv("splus-mcp"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ServeMCP(ctx, logger); err != nil {
		logger.Error("server error", "error", err)
		stop()
		closer.Close()
		os.Exit(1)
	}
}
