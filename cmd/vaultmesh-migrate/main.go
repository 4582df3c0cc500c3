// Command vaultmesh-migrate applies the Metadata Store's pending
// golang-migrate migrations against the configured Postgres database and
// exits; it performs no other work.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/pkg/config"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metastore"
)

var (
	version     = "dev"
	configPath  string
	resetSchema bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vaultmesh-migrate",
	Short:   "Apply vaultmesh Metadata Store migrations",
	Version: version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	rootCmd.Flags().BoolVar(&resetSchema, "reset", false, "drop and recreate every table before migrating (development only)")
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})
	logger := log.WithComponent("vaultmesh-migrate")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if resetSchema {
		cfg.ResetSchema = true
	}

	store, err := metastore.Open(context.Background(), metastore.Config{
		DSN:              cfg.DatabaseURL,
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnIdleTimeout:  cfg.DBIdleTimeout,
		AcquireTimeout:   cfg.DBAcquireTimeout,
		StartupRetries:   cfg.StartupRetries,
		StartupRetryWait: cfg.StartupRetryWait,
		ResetSchema:      cfg.ResetSchema,
	})
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	defer store.Close()

	logger.Info().Msg("migrations applied")
	return nil
}
