package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/autogitsync/agsync/internal/config"
	"github.com/autogitsync/agsync/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Set credentials and sync settings",
	Long: `Store the GitHub token and commit identity agsync pushes with.

Without flags on a terminal, an interactive form asks for the values.
Without flags and without a terminal, an example config is written for
hand-editing. Every key can also come from the environment, e.g.
AGSYNC_GITHUB_TOKEN.

Examples:
  agsync config
  agsync config --token ghp_... --username me --email me@example.com
  agsync config --remote-url /srv/git/notes.git
  agsync config show`,
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			path = config.Path()
		}

		cfg, err := config.Load(path)
		if err != nil {
			fatal("%v", err)
		}

		printer := ui.New(os.Stdout)

		if !anyFlagChanged(cmd, "token", "username", "email", "branch", "remote-url") {
			if !ui.IsTerminal(os.Stdin) {
				written, err := config.EnsureExample(path)
				if err != nil {
					fatal("%v", err)
				}
				if written {
					printer.Info("Wrote example config to %s; edit it and rerun", path)
				} else {
					printer.Info("Config is at %s", path)
				}
				return
			}
			if err := configForm(cfg).Run(); err != nil {
				fatal("%v", err)
			}
		}

		if v, _ := cmd.Flags().GetString("token"); cmd.Flags().Changed("token") {
			cfg.GitHubToken = v
		}
		if v, _ := cmd.Flags().GetString("username"); cmd.Flags().Changed("username") {
			cfg.GitUsername = v
		}
		if v, _ := cmd.Flags().GetString("email"); cmd.Flags().Changed("email") {
			cfg.GitEmail = v
		}
		if v, _ := cmd.Flags().GetString("branch"); cmd.Flags().Changed("branch") {
			cfg.Branch = v
		}
		if v, _ := cmd.Flags().GetString("remote-url"); cmd.Flags().Changed("remote-url") {
			cfg.RemoteURL = v
		}

		if err := cfg.Validate(); err != nil {
			fatal("%v", err)
		}
		if err := config.Save(path, cfg); err != nil {
			fatal("%v", err)
		}
		printer.Success("Saved %s", path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings (token redacted)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			fatal("%v", err)
		}

		if err := writeFormatted(os.Stdout, "yaml", cfg.Redacted()); err != nil {
			fatal("%v", err)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			fmt.Println(configPath)
			return
		}
		fmt.Println(config.Path())
	},
}

// configForm asks for the credentials, prefilled from cfg.
func configForm(cfg *config.Config) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub token").
				Description("Needs the repo scope").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.GitHubToken).
				Validate(config.ValidateToken),
			huh.NewInput().
				Title("GitHub username").
				Value(&cfg.GitUsername).
				Validate(func(s string) error {
					return config.ValidateIdentity(s, "user@example.com")
				}),
			huh.NewInput().
				Title("Commit email").
				Value(&cfg.GitEmail).
				Validate(func(s string) error {
					return config.ValidateIdentity(cfg.GitUsername, s)
				}),
			huh.NewInput().
				Title("Branch").
				Value(&cfg.Branch),
		),
	)
}

func anyFlagChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// writeFormatted writes v as yaml or json.
func writeFormatted(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func init() {
	configCmd.Flags().String("token", "", "GitHub personal access token")
	configCmd.Flags().String("username", "", "GitHub username (owner of the mirror)")
	configCmd.Flags().String("email", "", "Commit email")
	configCmd.Flags().String("branch", "", "Mirror branch")
	configCmd.Flags().String("remote-url", "", "Push here instead of a GitHub repository")

	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
