// Command vaultmesh-hostctl runs the Host Controller: it elects a leader
// among its replicas, subscribes to scale events over MQTT, and starts,
// stops, and replaces backend containers through containerd.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/pkg/config"
	"github.com/vaultmesh/vaultmesh/pkg/elector"
	"github.com/vaultmesh/vaultmesh/pkg/executor"
	"github.com/vaultmesh/vaultmesh/pkg/hostctl"
	"github.com/vaultmesh/vaultmesh/pkg/ledger"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/volume"
)

var (
	version    = "dev"
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vaultmesh-hostctl",
	Short:   "Run the vaultmesh Host Controller",
	Version: version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("vaultmesh-hostctl")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	peers, err := parsePeers(cfg.RaftPeers)
	if err != nil {
		return err
	}

	el, err := elector.New(elector.Config{
		NodeID:   cfg.RaftNodeID,
		BindAddr: cfg.RaftBindAddr,
		DataDir:  cfg.HostctlDataDir,
		Peers:    peers,
	})
	if err != nil {
		return fmt.Errorf("start elector: %w", err)
	}
	defer el.Shutdown()
	metrics.RegisterComponent("elector", true, "raft group joined")

	collector := metrics.NewCollector(nil, nil, el)
	collector.Start()
	defer collector.Stop()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.Handle("/health", metrics.HealthHandler())
	metricsMux.Handle("/ready", metrics.ReadyHandler("elector"))
	metricsMux.Handle("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: cfg.HostctlMetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	defer metricsServer.Close()

	ledg, err := ledger.Open(cfg.HostctlDataDir)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledg.Close()

	volumes, err := volume.NewLocalProvisioner(cfg.VolumeBaseDir)
	if err != nil {
		return fmt.Errorf("init volume provisioner: %w", err)
	}

	exec, err := executor.New(cfg.ContainerdSock, cfg.HostAddress)
	if err != nil {
		return fmt.Errorf("connect to containerd: %w", err)
	}
	defer exec.Close()

	controller := hostctl.NewController(hostctl.Template{
		Image:   cfg.BackendImage,
		Network: cfg.ClusterNetwork,
		Port:    cfg.BackendPort,
		Env:     []string{fmt.Sprintf("VAULTMESH_SFTP_USER=%s", cfg.SFTPUser)},
	}, exec, ledg, volumes, el)
	controller.Start()
	defer controller.Stop()

	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBrokerURL).SetClientID(cfg.MQTTClientID + "-hostctl")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}
	defer client.Disconnect(250)

	if err := controller.Subscribe(client); err != nil {
		return fmt.Errorf("subscribe to scale topic: %w", err)
	}

	logger.Info().Str("node_id", cfg.RaftNodeID).Msg("host controller running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("host controller shutting down")
	return nil
}

// parsePeers parses "nodeID=host:port" entries into elector.Peer values.
func parsePeers(raw []string) ([]elector.Peer, error) {
	peers := make([]elector.Peer, 0, len(raw))
	for _, entry := range raw {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid raft peer entry %q, expected nodeID=host:port", entry)
		}
		peers = append(peers, elector.Peer{ID: parts[0], Address: parts[1]})
	}
	return peers, nil
}
