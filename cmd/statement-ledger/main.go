package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/FACorreiaa/statement-ledger/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}
