package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ytloop",
	Short: "Recurring YouTube live broadcast loop driven through OBS",
	Long: `ytloop runs an unattended broadcast cycle: each iteration provisions a
fresh YouTube live broadcast and ingest stream, points a local OBS
instance at the new ingest key, streams for a fixed window, then stops
the output and starts over.`,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("ytloop version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
