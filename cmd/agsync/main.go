// Command agsync mirrors a local directory into a remote git repository.
//
// Every change under the watched directory is committed and force-pushed to
// a single branch. The remote is a one-way mirror: local always wins.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time with -ldflags "-X main.Version=..."
	Version = "dev"

	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "agsync",
	Short: "Mirror a directory to a remote git repository",
	Long: `agsync watches a directory and mirrors it into a remote git repository.

Changes are debounced, committed and force-pushed to a single branch. The
remote is a backup mirror, not a collaboration space: its history is
overwritten whenever it diverges from the local directory.

Get started:
  agsync config                  # store token and commit identity
  agsync watch ~/notes           # bootstrap the mirror and start watching`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
		&cobra.Group{ID: "info", Title: "Information Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/agsync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
