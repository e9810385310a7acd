package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vexlio/sigcor-cli/cmd"
)

// main is the entry point for the sigcor CLI application. It installs a
// signal-aware context so an interrupt cancels the in-flight run cleanly.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
