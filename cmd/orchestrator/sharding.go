package main

import "github.com/spf13/cobra"

// shardingCmd is the entrypoint reserved for running one orchestrator
// instance per shard of a horizontally-partitioned deployment. Actual
// shard assignment and cross-shard coordination are out of scope (see
// SPEC_FULL.md's Non-goals: "no horizontal sharding of the
// orchestrator"); this subcommand still constructs the same shared
// pipeline every mode does, unsharded.
var shardingCmd = &cobra.Command{
	Use:   "sharding",
	Short: "Run the orchestrator as one shard of a partitioned deployment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, "sharding")
	},
}
