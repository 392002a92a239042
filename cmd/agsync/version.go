package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autogitsync/agsync/internal/vcs"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: "info",
	Short:   "Print agsync and git versions",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agsync %s\n", Version)

		dir, err := os.Getwd()
		if err != nil {
			dir = os.TempDir()
		}
		repo, err := vcs.Open(vcs.TypeGit, dir)
		if err != nil {
			fmt.Printf("git: %v\n", err)
			return
		}
		gitVersion, err := repo.Version(context.Background())
		if err != nil {
			fmt.Printf("git: %v\n", err)
			return
		}
		fmt.Printf("git %s\n", gitVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
