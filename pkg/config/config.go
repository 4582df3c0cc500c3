// Package config loads vaultmesh's runtime configuration from environment
// variables, with an optional YAML file providing lower-precedence
// defaults. Every recognized setting from spec.md §6 has a typed field and
// a sane default so a binary can start from environment alone.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every environment-configurable setting shared across the
// aggregator, load balancer, and host controller binaries. Each binary
// reads only the fields it needs.
type Config struct {
	// Metadata store
	DatabaseURL      string `yaml:"databaseUrl"`
	DBMaxOpenConns   int    `yaml:"dbMaxOpenConns"`
	DBMaxIdleConns   int    `yaml:"dbMaxIdleConns"`
	DBIdleTimeout    time.Duration `yaml:"dbIdleTimeout"`
	DBAcquireTimeout time.Duration `yaml:"dbAcquireTimeout"`
	StartupRetries   int           `yaml:"startupRetries"`
	StartupRetryWait time.Duration `yaml:"startupRetryWait"`
	ResetSchema      bool          `yaml:"resetSchema"`

	// Crypto
	EncryptionKey string `yaml:"-"` // mandatory, read only from env, never logged

	// Aggregator pipeline
	ChunkSize        int64 `yaml:"chunkSize"`
	MaxFileSize      int64 `yaml:"maxFileSize"`
	UploadPermits    int   `yaml:"uploadPermits"`
	BackendPermits   int   `yaml:"backendPermits"`

	// Backends (SFTP)
	BackendEndpoints []string `yaml:"backendEndpoints"`
	SFTPUser         string   `yaml:"sftpUser"`
	SFTPPassword     string   `yaml:"-"`
	SFTPPort         int      `yaml:"sftpPort"`
	StorageRoot      string   `yaml:"storageRoot"`

	// Scheduler / LB
	SchedulerPolicy  string        `yaml:"schedulerPolicy"` // FCFS | SJN | ROUNDROBIN
	AgingCoefficient float64       `yaml:"agingCoefficient"`
	LatencyMin       time.Duration `yaml:"latencyMin"`
	LatencyMax       time.Duration `yaml:"latencyMax"`
	LBPort           int           `yaml:"lbPort"`
	AggregatorAddr   string        `yaml:"aggregatorAddr"`

	// Health prober
	HealthCheckInterval time.Duration `yaml:"healthCheckInterval"`
	HealthRetries       int           `yaml:"healthRetries"`

	// Scaling publisher
	ScaleCheckInterval time.Duration `yaml:"scaleCheckInterval"`
	QueueHighWatermark int           `yaml:"queueHighWatermark"`
	QueueLowWatermark  int           `yaml:"queueLowWatermark"`
	ScaleUpCount       int           `yaml:"scaleUpCount"`
	ScaleDownCount     int           `yaml:"scaleDownCount"`

	// Message bus (MQTT)
	MQTTBrokerURL string `yaml:"mqttBrokerUrl"`
	MQTTClientID  string `yaml:"mqttClientId"`
	ScaleTopic    string `yaml:"scaleTopic"`

	// Host controller
	BackendImage       string   `yaml:"backendImage"`
	ClusterNetwork     string   `yaml:"clusterNetwork"`
	VolumeBaseDir      string   `yaml:"volumeBaseDir"`
	ContainerdSock     string   `yaml:"containerdSock"`
	HostctlDataDir     string   `yaml:"hostctlDataDir"`
	RaftBindAddr       string   `yaml:"raftBindAddr"`
	RaftNodeID         string   `yaml:"raftNodeId"`
	RaftPeers          []string `yaml:"raftPeers"` // "nodeID=host:port" entries, including self
	HostAddress        string   `yaml:"hostAddress"`
	BackendPort        int      `yaml:"backendPort"`
	HostctlMetricsAddr string   `yaml:"hostctlMetricsAddr"`
}

// Default returns a Config populated with spec.md §6's documented defaults.
func Default() *Config {
	return &Config{
		DBMaxOpenConns:      20,
		DBMaxIdleConns:      5,
		DBIdleTimeout:       5 * time.Minute,
		DBAcquireTimeout:    10 * time.Second,
		StartupRetries:      10,
		StartupRetryWait:    2 * time.Second,
		ChunkSize:           1 << 20, // 1 MiB
		MaxFileSize:         5 << 30, // 5 GiB
		UploadPermits:       4,
		BackendPermits:      1,
		SFTPPort:            22,
		StorageRoot:         "/vaultmesh",
		SchedulerPolicy:     "SJN",
		AgingCoefficient:    0.01,
		LatencyMin:          1000 * time.Millisecond,
		LatencyMax:          5000 * time.Millisecond,
		LBPort:              8080,
		AggregatorAddr:      ":8081",
		HealthCheckInterval: 5 * time.Second,
		HealthRetries:       3,
		ScaleCheckInterval:  10 * time.Second,
		QueueHighWatermark:  80,
		QueueLowWatermark:   10,
		ScaleUpCount:        5,
		ScaleDownCount:      1,
		ScaleTopic:          "lb/scale/request",
		MQTTClientID:        "vaultmesh",
		BackendImage:        "vaultmesh/sftp-backend:latest",
		ClusterNetwork:      "vaultmesh-net",
		VolumeBaseDir:       "/var/lib/vaultmesh/volumes",
		ContainerdSock:      "/run/containerd/containerd.sock",
		HostctlDataDir:      "/var/lib/vaultmesh/hostctl",
		BackendPort:         2022,
		HostctlMetricsAddr:  ":9091",
	}
}

// Load builds a Config by layering an optional YAML file under the process
// environment; environment variables always win, matching the teacher's
// env-plus-flags precedence.
func Load(yamlPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

// RequireEncryptionKey fails fast if no encryption key was configured.
// Only the aggregator binary needs one; the load balancer, host
// controller, and migration tool never touch chunk plaintext.
func (c *Config) RequireEncryptionKey() error {
	if c.EncryptionKey == "" {
		return fmt.Errorf("config: VAULTMESH_ENCRYPTION_KEY is required; process refuses to start without it")
	}
	return nil
}

func applyEnv(cfg *Config) {
	str(&cfg.DatabaseURL, "VAULTMESH_DATABASE_URL")
	intv(&cfg.DBMaxOpenConns, "VAULTMESH_DB_MAX_OPEN_CONNS")
	intv(&cfg.DBMaxIdleConns, "VAULTMESH_DB_MAX_IDLE_CONNS")
	duration(&cfg.DBIdleTimeout, "VAULTMESH_DB_IDLE_TIMEOUT")
	duration(&cfg.DBAcquireTimeout, "VAULTMESH_DB_ACQUIRE_TIMEOUT")
	intv(&cfg.StartupRetries, "VAULTMESH_STARTUP_RETRIES")
	duration(&cfg.StartupRetryWait, "VAULTMESH_STARTUP_RETRY_WAIT")
	boolv(&cfg.ResetSchema, "VAULTMESH_RESET_SCHEMA")

	str(&cfg.EncryptionKey, "VAULTMESH_ENCRYPTION_KEY")

	int64v(&cfg.ChunkSize, "VAULTMESH_CHUNK_SIZE")
	int64v(&cfg.MaxFileSize, "VAULTMESH_MAX_FILE_SIZE")
	intv(&cfg.UploadPermits, "VAULTMESH_UPLOAD_PERMITS")
	intv(&cfg.BackendPermits, "VAULTMESH_BACKEND_PERMITS")

	if v := os.Getenv("VAULTMESH_BACKEND_ENDPOINTS"); v != "" {
		cfg.BackendEndpoints = splitCSV(v)
	}
	str(&cfg.SFTPUser, "VAULTMESH_SFTP_USER")
	str(&cfg.SFTPPassword, "VAULTMESH_SFTP_PASSWORD")
	intv(&cfg.SFTPPort, "VAULTMESH_SFTP_PORT")
	str(&cfg.StorageRoot, "VAULTMESH_STORAGE_ROOT")

	str(&cfg.SchedulerPolicy, "VAULTMESH_SCHEDULER_POLICY")
	floatv(&cfg.AgingCoefficient, "VAULTMESH_AGING_COEFFICIENT")
	duration(&cfg.LatencyMin, "VAULTMESH_LATENCY_MIN")
	duration(&cfg.LatencyMax, "VAULTMESH_LATENCY_MAX")
	intv(&cfg.LBPort, "VAULTMESH_LB_PORT")
	str(&cfg.AggregatorAddr, "VAULTMESH_AGGREGATOR_ADDR")

	duration(&cfg.HealthCheckInterval, "VAULTMESH_HEALTH_CHECK_INTERVAL")
	intv(&cfg.HealthRetries, "VAULTMESH_HEALTH_RETRIES")

	duration(&cfg.ScaleCheckInterval, "VAULTMESH_SCALE_CHECK_INTERVAL")
	intv(&cfg.QueueHighWatermark, "VAULTMESH_QUEUE_HIGH_WATERMARK")
	intv(&cfg.QueueLowWatermark, "VAULTMESH_QUEUE_LOW_WATERMARK")
	intv(&cfg.ScaleUpCount, "VAULTMESH_SCALE_UP_COUNT")
	intv(&cfg.ScaleDownCount, "VAULTMESH_SCALE_DOWN_COUNT")

	str(&cfg.MQTTBrokerURL, "VAULTMESH_MQTT_BROKER_URL")
	str(&cfg.MQTTClientID, "VAULTMESH_MQTT_CLIENT_ID")
	str(&cfg.ScaleTopic, "VAULTMESH_SCALE_TOPIC")

	str(&cfg.BackendImage, "VAULTMESH_BACKEND_IMAGE")
	str(&cfg.ClusterNetwork, "VAULTMESH_CLUSTER_NETWORK")
	str(&cfg.VolumeBaseDir, "VAULTMESH_VOLUME_BASE_DIR")
	str(&cfg.ContainerdSock, "VAULTMESH_CONTAINERD_SOCK")
	str(&cfg.HostctlDataDir, "VAULTMESH_HOSTCTL_DATA_DIR")
	str(&cfg.RaftBindAddr, "VAULTMESH_RAFT_BIND_ADDR")
	str(&cfg.RaftNodeID, "VAULTMESH_RAFT_NODE_ID")
	if v := os.Getenv("VAULTMESH_RAFT_PEERS"); v != "" {
		cfg.RaftPeers = splitCSV(v)
	}
	str(&cfg.HostAddress, "VAULTMESH_HOST_ADDRESS")
	intv(&cfg.BackendPort, "VAULTMESH_BACKEND_PORT")
	str(&cfg.HostctlMetricsAddr, "VAULTMESH_HOSTCTL_METRICS_ADDR")
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func boolv(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func intv(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func int64v(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func floatv(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}

func duration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
