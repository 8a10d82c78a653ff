// Command ada runs the ada-engine HTTP API and one-off agent pipelines.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ada-engine/internal/infrastructure/config"
	"ada-engine/internal/infrastructure/env"
)

const version = "0.1.0"

var envDir string

var rootCmd = &cobra.Command{
	Use:           "ada",
	Short:         "ada-engine: agent pipelines behind an HTTP API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "Directory holding .env files")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(hashKeyCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(speakCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*env.EnvService, config.Config, error) {
	e := env.NewEnvService(envDir)
	cfg, err := config.Load(e)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return e, cfg, nil
}
