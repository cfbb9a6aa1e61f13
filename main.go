// Package main is the entry point for the Smart Memo setup tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"memosetup/cmd"
)

// main is the entry point. Every setup failure, the smoke test included,
// surfaces here and becomes a non-zero exit code.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
