package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/approvals/internal/cmd"
	"github.com/felixgeelhaar/approvals/internal/exitcode"
	"github.com/felixgeelhaar/approvals/internal/ux"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		// Check if error was due to context cancellation (e.g., Ctrl+C)
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		styles := ux.DefaultStyles()
		if os.Getenv("NO_COLOR") != "" {
			styles = ux.PlainStyles()
		}
		fmt.Fprintln(os.Stderr, ux.RenderError(err, styles))
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
