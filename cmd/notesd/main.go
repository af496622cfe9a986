// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/testbenchcc/markdown-notes-app/internal/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "notesd",
	Short: "Markdown notes server",
	Long:  `notesd is a self-hosted markdown note-taking backend with git-based synchronization of the notes repository.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long:  `Start the notesd HTTP server and the auto-sync scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(cfgFile)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		app.PrintVersion()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		fmt.Println("Configuration is valid")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration (sensitive values masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg.PrintMasked()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: /etc/notesd/config.yaml or ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
