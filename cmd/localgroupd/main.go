package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "localgroupd",
		Short:         "Runs and inspects local group convergence nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	addLogFlags(root.PersistentFlags())
	root.AddCommand(runCommand(), journalCommand(), inspectCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "localgroupd:", err)
		os.Exit(1)
	}
}
