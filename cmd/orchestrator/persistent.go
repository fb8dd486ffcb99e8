package main

import "github.com/spf13/cobra"

// persistentCmd runs the shared pipeline under the "persistent" mode
// label. The StageRecord store is whichever backend storage.driver
// selects, as in every mode; state survives restarts only when that is
// "postgres". Mode-specific wiring beyond this entrypoint is out of
// scope (see SPEC_FULL.md §6).
var persistentCmd = &cobra.Command{
	Use:   "persistent",
	Short: "Run the orchestrator with durable, restart-resumable state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, "persistent")
	},
}
