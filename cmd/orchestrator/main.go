package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "orchestrator",
		Short: "Proving orchestrator",
		Long:  banner + "\n\nDrives blocks through SNOS proving, layout-bridge proving, data availability publishing, and L1 settlement.",
	}
)

const banner = `
 ____                 _             ___           _               _             _
|  _ \ _ __ _____   _(_)_ __   __ _ / _ \ _ __ ___| |__   ___  ___| |_ _ __ __ _| |_ ___  _ __
| |_) | '__/ _ \ \ / / | '_ \ / _` + "`" + ` | | | | '__/ __| '_ \ / _ \/ __| __| '__/ _` + "`" + ` | __/ _ \| '__|
|  __/| | | (_) \ V /| | | | | (_| | |_| | | | (__| | | |  __/\__ \ |_| | | (_| | || (_) | |
|_|   |_|  \___/ \_/ |_|_| |_|\__, |\___/|_|  \___|_| |_|\___||___/\__|_|  \__,_|\__\___/|_|
                               |___/`

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	rootCmd.AddCommand(sovereignCmd)
	rootCmd.AddCommand(persistentCmd)
	rootCmd.AddCommand(shardingCmd)
}

func applyFlags(cmd *cobra.Command, cfg *appConfigOverrides) {
	if cmd.Flag("log-level").Changed {
		cfg.logLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.logPretty, _ = cmd.Flags().GetBool("log-pretty")
	}
}

// appConfigOverrides carries the persistent flags that take priority over
// config-file values, mirroring publisher-leader-app/main.go's
// applyFlags pattern.
type appConfigOverrides struct {
	logLevel  string
	logPretty bool
}
