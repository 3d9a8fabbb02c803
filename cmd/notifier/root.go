// cmd/notifier/root.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hiring-notifier/internal/common/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Application lifecycle email notifications",
	Long: "Sends transactional emails to applicants when an application is submitted\n" +
		"or its status changes, over HTTP or as a Zeebe job worker.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: configs/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(templatesCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}
