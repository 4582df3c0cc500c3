package metrics

import "time"

// MetastoreSource is the subset of the metadata store the collector needs
// to publish the file count. Implemented by *metastore.Store.
type MetastoreSource interface {
	CountFiles() (int, error)
}

// RegistrySource is the subset of the node registry the collector needs to
// publish per-state node gauges. Implemented by *registry.Registry.
type RegistrySource interface {
	CountByState() map[string]int
}

// LeaderSource reports host controller HA leadership, when running with
// Raft-backed leader election enabled.
type LeaderSource interface {
	IsLeader() bool
	PeerCount() int
}

// Collector periodically samples component state and publishes it as
// Prometheus gauges.
type Collector struct {
	metastore MetastoreSource
	registry  RegistrySource
	leader    LeaderSource
	stopCh    chan struct{}
}

// NewCollector creates a new metrics collector. registry and leader may be
// nil; the corresponding gauges are then left unset.
func NewCollector(store MetastoreSource, registry RegistrySource, leader LeaderSource) *Collector {
	return &Collector{
		metastore: store,
		registry:  registry,
		leader:    leader,
		stopCh:    make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15-second interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectFileMetrics()
	c.collectNodeMetrics()
	c.collectLeaderMetrics()
}

func (c *Collector) collectFileMetrics() {
	if c.metastore == nil {
		return
	}
	count, err := c.metastore.CountFiles()
	if err != nil {
		return
	}
	FilesTotal.Set(float64(count))
}

func (c *Collector) collectNodeMetrics() {
	if c.registry == nil {
		return
	}
	for state, count := range c.registry.CountByState() {
		NodesTotal.WithLabelValues(state).Set(float64(count))
	}
}

func (c *Collector) collectLeaderMetrics() {
	if c.leader == nil {
		return
	}
	if c.leader.IsLeader() {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}
	RaftPeers.Set(float64(c.leader.PeerCount()))
}
