package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ada-engine/internal/infrastructure/env"
	"ada-engine/internal/usecase/apikey"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Print the keyed hash of an ingestion key for INGESTION_API_KEY_HASHED",
	Long:  "Hashes the key with BACKEND_SECRET_KEY. Without an argument the key is read from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHashKey,
}

func runHashKey(cmd *cobra.Command, args []string) error {
	e := env.NewEnvService(envDir)
	if err := e.Require("BACKEND_SECRET_KEY"); err != nil {
		return err
	}

	var raw string
	if len(args) == 1 {
		raw = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}
	if raw == "" {
		return fmt.Errorf("no key provided")
	}

	hasher, err := apikey.NewHasher(e.Get("BACKEND_SECRET_KEY"))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hasher.Hash(apikey.CleanKey(raw)))
	return nil
}
