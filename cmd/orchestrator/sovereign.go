package main

import "github.com/spf13/cobra"

// sovereignCmd runs the pipeline against a single standalone rollup: one
// ingestor, one settlement account, no coordination with any other
// orchestrator instance. Mode-specific wiring beyond this entrypoint is
// out of scope (see SPEC_FULL.md §6); it constructs the same shared
// pipeline every mode does.
var sovereignCmd = &cobra.Command{
	Use:   "sovereign",
	Short: "Run the orchestrator for a single sovereign rollup",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, "sovereign")
	},
}
