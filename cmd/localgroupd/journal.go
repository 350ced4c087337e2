package main

import (
	"github.com/spf13/cobra"

	"localgroup/internal/journal"
)

func journalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Works with element transition journals",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "summarize FILE...",
		Short: "Reports per-node ACK counts and time to convergence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var events []journal.Event
			for _, path := range args {
				evs, err := journal.ReadFile(path)
				if err != nil {
					return err
				}
				events = append(events, evs...)
			}
			return journal.WriteText(cmd.OutOrStdout(), journal.Summarize(events))
		},
	})
	return cmd
}
