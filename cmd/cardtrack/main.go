package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cardtrack/internal/cli"
	"cardtrack/internal/config"
)

func main() {
	cfg := config.Load()
	if cfg.APIURL == "" {
		log.Fatalf("❌ CARDTRACK_API_URL is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(cfg)
	if err := cmd.ExecuteContext(ctx); err != nil {
		cmd.PrintErrln("❌", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
