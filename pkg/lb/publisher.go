package lb

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/types"
)

// ScaleTopic is the MQTT topic the Host Controller subscribes to for scale
// requests.
const ScaleTopic = "lb/scale/request"

// QueueSizer is the subset of queue.Queue the publisher depends on.
type QueueSizer interface {
	Size() int
}

// PublisherConfig controls the Scaling Publisher's watermarks and cadence.
type PublisherConfig struct {
	// PollInterval is how often the queue depth is sampled.
	PollInterval time.Duration
	// HighWatermark: queue depth at or above this triggers a scale-up.
	HighWatermark int
	// LowWatermark: queue depth at or below this triggers a scale-down.
	LowWatermark int
	// UpStep is the desired total backend count carried on an "up" event.
	UpStep int
	// DownStep is the desired total backend count carried on a "down" event.
	DownStep int
}

func (c *PublisherConfig) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.HighWatermark <= 0 {
		c.HighWatermark = 50
	}
	if c.LowWatermark <= 0 {
		c.LowWatermark = 5
	}
	if c.UpStep <= 0 {
		c.UpStep = 1
	}
	if c.DownStep <= 0 {
		c.DownStep = 1
	}
}

// Publisher is the Scaling Publisher: it samples the Request Queue's depth
// on a fixed interval and emits a scale event over MQTT whenever the depth
// crosses a watermark, debounced against the last action it sent so a
// queue oscillating around a threshold does not spam the bus.
type Publisher struct {
	queue  QueueSizer
	client mqtt.Client
	cfg    PublisherConfig

	lastAction types.ScaleAction
	done       chan struct{}
}

// NewPublisher creates a Publisher over an already-connected MQTT client.
func NewPublisher(queue QueueSizer, client mqtt.Client, cfg PublisherConfig) *Publisher {
	cfg.setDefaults()
	return &Publisher{queue: queue, client: client, cfg: cfg, done: make(chan struct{})}
}

// Run samples the queue on cfg.PollInterval until Stop is called.
func (p *Publisher) Run() {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sample()
		case <-p.done:
			return
		}
	}
}

// Stop ends the sampling loop.
func (p *Publisher) Stop() {
	close(p.done)
}

func (p *Publisher) sample() {
	size := p.queue.Size()
	logger := log.WithComponent("scaling-publisher")

	switch {
	case size >= p.cfg.HighWatermark:
		p.emit(types.ScaleUp, p.cfg.UpStep, size, logger)
	case size <= p.cfg.LowWatermark:
		p.emit(types.ScaleDown, p.cfg.DownStep, size, logger)
	default:
		p.emit(types.ScaleStable, 0, size, logger)
	}
}

func (p *Publisher) emit(action types.ScaleAction, count, size int, logger zerolog.Logger) {
	if p.lastAction == action {
		return
	}

	event := types.ScaleEvent{Action: action, Count: count, QueueSize: size}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal scale event")
		return
	}

	token := p.client.Publish(ScaleTopic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Str("action", string(action)).Msg("failed to publish scale event")
		return
	}

	p.lastAction = action
	metrics.ScaleEventsTotal.WithLabelValues(string(action)).Inc()
	logger.Info().Str("action", string(action)).Int("queue_size", size).Msg("scale event published")
}
