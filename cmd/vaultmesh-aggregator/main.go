// Command vaultmesh-aggregator serves the Aggregator Pipeline's HTTP API:
// upload, download, delete, audit-log ingestion, health, and metrics.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/pkg/aggregator"
	"github.com/vaultmesh/vaultmesh/pkg/api"
	"github.com/vaultmesh/vaultmesh/pkg/backend"
	"github.com/vaultmesh/vaultmesh/pkg/config"
	"github.com/vaultmesh/vaultmesh/pkg/crypto"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metastore"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/pool"
)

var (
	version    = "dev"
	configPath string
	listenAddr string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vaultmesh-aggregator",
	Short:   "Serve the vaultmesh Aggregator Pipeline HTTP API",
	Version: version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "override the aggregator listen address (host:port)")
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("vaultmesh-aggregator")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireEncryptionKey(); err != nil {
		return err
	}

	ctx := context.Background()

	store, err := metastore.Open(ctx, metastore.Config{
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
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent("metastore", true, "connected")

	audit := metastore.NewAuditSink(store)
	defer audit.Stop()

	engine, err := crypto.NewEngineFromPassphrase(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("init crypto engine: %w", err)
	}

	backPool := pool.New(cfg.BackendEndpoints, cfg.BackendPermits)
	client := backend.New(backend.Credentials{
		User:     cfg.SFTPUser,
		Password: cfg.SFTPPassword,
		Port:     cfg.SFTPPort,
	}, 10*time.Second)

	pipeline := aggregator.New(store, audit, backPool, client, engine, aggregator.Config{
		ChunkSize:     cfg.ChunkSize,
		MaxFileSize:   cfg.MaxFileSize,
		StorageRoot:   cfg.StorageRoot,
		UploadPermits: cfg.UploadPermits,
	})

	server := api.NewServer(pipeline, audit, crypto.CipherTag)

	addr := listenAddr
	if addr == "" {
		addr = cfg.AggregatorAddr
	}

	logger.Info().Str("addr", addr).Int("backends", len(cfg.BackendEndpoints)).Msg("aggregator listening")
	if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
