package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eisim-progress/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cmd.IsUsageError(err) {
			fmt.Fprintln(os.Stderr, rootCmd.UseLine())
			os.Exit(2)
		}
		os.Exit(1)
	}
}
