// Package cli provides command-line interface commands for the meteoreg
// metrics catalog service. This file implements API key management commands
// for generating keys and the bcrypt hashes the server configuration stores.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/windrose/meteoreg/internal/auth"
)

// apiKeysCmd represents the apikeys command group.
var apiKeysCmd = &cobra.Command{
	Use:     "apikeys",
	Aliases: []string{"apikey", "keys", "key"},
	Short:   "Manage API keys for client authentication",
	Long: `Manage API keys for client authentication with the meteoreg API server.

The server stores only bcrypt hashes of accepted keys, listed under
api.auth.api_key_hashes in the configuration file. Generate a key here,
give the key to the client, and put the printed hash in the config.

Examples:
  # Generate a new API key and its hash
  meteoreg apikeys generate

  # Hash an existing key for the server configuration
  meteoreg apikeys hash mk_abc123...`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// apiKeysGenerateCmd generates a fresh key and prints its hash.
var apiKeysGenerateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen", "create"},
	Short:   "Generate a new API key",
	RunE:    runAPIKeysGenerate,
}

// apiKeysHashCmd hashes an existing key.
var apiKeysHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Print the bcrypt hash of an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeysHash,
}

func init() {
	apiKeysCmd.AddCommand(apiKeysGenerateCmd)
	apiKeysCmd.AddCommand(apiKeysHashCmd)
	rootCmd.AddCommand(apiKeysCmd)
}

func runAPIKeysGenerate(cmd *cobra.Command, _ []string) error {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", err)
	}

	hash, err := auth.HashAPIKey(key)
	if err != nil {
		return fmt.Errorf("failed to hash API key: %w", err)
	}

	cmd.Printf("API key (give this to the client, it is not stored anywhere):\n  %s\n\n", key)
	cmd.Printf("Hash (add to api.auth.api_key_hashes in the server config):\n  %s\n", hash)
	return nil
}

func runAPIKeysHash(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !auth.IsValidAPIKeyFormat(key) {
		return fmt.Errorf("key does not look like a meteoreg API key (expected %q prefix)", auth.APIKeyPrefix)
	}

	hash, err := auth.HashAPIKey(key)
	if err != nil {
		return fmt.Errorf("failed to hash API key: %w", err)
	}

	cmd.Println(hash)
	return nil
}
