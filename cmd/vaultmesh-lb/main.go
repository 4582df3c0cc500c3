// Command vaultmesh-lb serves the Load Balancer: the client-facing HTTP
// API, the Request Queue dispatch worker, the Health Prober, and the
// Scaling Publisher.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/pkg/config"
	"github.com/vaultmesh/vaultmesh/pkg/events"
	"github.com/vaultmesh/vaultmesh/pkg/health"
	"github.com/vaultmesh/vaultmesh/pkg/lb"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/policy"
	"github.com/vaultmesh/vaultmesh/pkg/queue"
	"github.com/vaultmesh/vaultmesh/pkg/registry"
	"github.com/vaultmesh/vaultmesh/pkg/types"
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
	Use:     "vaultmesh-lb",
	Short:   "Serve the vaultmesh Load Balancer",
	Version: version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "override the load balancer listen address (host:port)")
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("vaultmesh-lb")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reg := registry.New()
	for _, addr := range cfg.BackendEndpoints {
		reg.Register(types.StorageNode{Name: addr, Address: addr, Permits: cfg.BackendPermits})
	}
	metrics.RegisterComponent("registry", len(cfg.BackendEndpoints) > 0, "storage nodes registered")

	collector := metrics.NewCollector(nil, reg, nil)
	collector.Start()
	defer collector.Stop()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	prober := registry.NewProber(reg, func(node types.StorageNode) health.Checker {
		return health.NewSFTPChecker(node.Address, cfg.SFTPUser, cfg.SFTPPassword)
	}, cfg.HealthCheckInterval, cfg.HealthRetries, broker)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	prober.Start(ctx)
	defer prober.Stop()

	aging := policy.QueueAging(policy.Policy(cfg.SchedulerPolicy), cfg.AgingCoefficient)
	q := queue.NewWithAging(aging)
	defer q.Close()

	selector := policy.NewNodeSelector()
	worker := lb.NewWorker(q, reg, selector, lb.Config{
		LatencyMin: cfg.LatencyMin,
		LatencyMax: cfg.LatencyMax,
	})
	go worker.Run()
	defer worker.Stop()

	if cfg.MQTTBrokerURL != "" {
		opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBrokerURL).SetClientID(cfg.MQTTClientID)
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("connect to MQTT broker: %w", token.Error())
		}
		defer client.Disconnect(250)

		publisher := lb.NewPublisher(q, client, lb.PublisherConfig{
			PollInterval:  cfg.ScaleCheckInterval,
			HighWatermark: cfg.QueueHighWatermark,
			LowWatermark:  cfg.QueueLowWatermark,
			UpStep:        cfg.ScaleUpCount,
			DownStep:      cfg.ScaleDownCount,
		})
		go publisher.Run()
		defer publisher.Stop()
	} else {
		logger.Warn().Msg("no MQTT broker configured, scaling publisher disabled")
	}

	server := lb.NewServer(q)

	addr := listenAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.LBPort)
	}

	logger.Info().Str("addr", addr).Int("backends", len(cfg.BackendEndpoints)).Msg("load balancer listening")
	if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
