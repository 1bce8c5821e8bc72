package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vizbot/vizbot/internal/cli/vizbotctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := vizbotctl.Run(ctx, os.Args[1:], vizbotctl.Options{
		BaseURL:   os.Getenv("VIZBOT_API_URL"),
		SessionID: os.Getenv("VIZBOT_SESSION_ID"),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	})
	os.Exit(code)
}
