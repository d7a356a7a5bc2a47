// Package cli wires the recall commands.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/store"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Memory graph and retrieval engine",
	Long:  "Recall stores deduplicated facts about entities, derives a relationship graph from them, and retrieves memories by hybrid keyword and semantic search.",
}

func Execute() error {
	// A .env in the working directory can supply WORKSPACE_DIR and the
	// RECALL_* overrides; missing files are fine.
	godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.recall/config.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(factCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Default(), err
		}
	}
	return config.Load(path)
}

// openDB opens the configured database.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	return store.Open(dbPath)
}
