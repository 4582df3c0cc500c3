// Package hostctl is the Host Controller: it subscribes to the Scaling
// Publisher's MQTT topic and starts or stops backend containers in
// response, only acting while it holds Raft leadership, and runs a
// reconciler that replaces any backend whose inspected state turns
// BackendFailed.
package hostctl

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaultmesh/vaultmesh/pkg/executor"
	"github.com/vaultmesh/vaultmesh/pkg/ledger"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/reconciler"
	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/volume"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// ScaleTopic mirrors pkg/lb.ScaleTopic; the Host Controller and the
// Scaling Publisher agree on this literal rather than importing one
// package from the other.
const ScaleTopic = "lb/scale/request"

// Leader reports whether this Host Controller replica currently holds
// Raft leadership. Only the leader acts on scale events and reconciler
// findings; followers still receive every MQTT message but ignore them.
type Leader interface {
	IsLeader() bool
}

// Template describes the backend image, network and port every instance
// this Host Controller starts is built from; only Name and VolumePath
// vary per instance.
type Template struct {
	Image   string
	Network string
	Port    int
	Env     []string
}

// Controller owns the set of backend containers this host runs,
// provisioning their volumes, starting/stopping them through an Executor,
// and persisting their handles to a Ledger.
type Controller struct {
	template Template
	executor executor.Executor
	ledger   *ledger.Ledger
	volumes  *volume.LocalProvisioner
	leader   Leader
	recon    *reconciler.Reconciler
	mu       sync.Mutex
	instance int
}

// NewController wires a Controller over an already-started Executor,
// Ledger and LocalProvisioner, and the elector used for leadership.
func NewController(template Template, exec executor.Executor, ledg *ledger.Ledger, volumes *volume.LocalProvisioner, leader Leader) *Controller {
	c := &Controller{
		template: template,
		executor: exec,
		ledger:   ledg,
		volumes:  volumes,
		leader:   leader,
	}
	c.recon = reconciler.New(ledg, exec, c, leader.IsLeader)
	return c
}

// Start begins the reconciliation loop. Callers still need to Subscribe
// the controller to the scaling topic on an MQTT client.
func (c *Controller) Start() {
	c.recon.Start()
}

// Stop ends the reconciliation loop.
func (c *Controller) Stop() {
	c.recon.Stop()
}

// Subscribe registers the controller's MQTT message handler on client for
// ScaleTopic at QoS 1.
func (c *Controller) Subscribe(client mqtt.Client) error {
	token := client.Subscribe(ScaleTopic, 1, c.handleMessage)
	token.Wait()
	return token.Error()
}

func (c *Controller) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	logger := log.WithComponent("hostctl")

	var event types.ScaleEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		logger.Error().Err(err).Msg("failed to decode scale event")
		return
	}

	if !c.leader.IsLeader() {
		logger.Debug().Msg("not leader, ignoring scale event")
		return
	}

	ctx := context.Background()
	switch event.Action {
	case types.ScaleUp:
		c.scaleUp(ctx, event.Count, logger)
	case types.ScaleDown:
		c.scaleDown(ctx, event.Count, logger)
	case types.ScaleStable:
		logger.Debug().Msg("queue back within watermarks, no scaling action")
	default:
		logger.Warn().Str("action", string(event.Action)).Msg("unknown scale action")
	}
}

// scaleUp tops the live backend count up to target, starting only the
// shortfall. target is the desired total, not a delta, so replaying the
// same "up N" event never starts more than N backends.
func (c *Controller) scaleUp(ctx context.Context, target int, logger zerolog.Logger) {
	handles, err := c.ledger.List()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list backends for scale-up")
		return
	}

	shortfall := target - len(handles)
	for i := 0; i < shortfall; i++ {
		handle, err := c.startOne(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to start backend")
			continue
		}
		metrics.BackendsStartedTotal.Inc()
		logger.Info().Str("backend_id", handle.ID).Str("endpoint", handle.Endpoint).Msg("backend started")
	}
}

// scaleDown trims the live backend count down to target, stopping only
// the most-recently-started excess. target is the desired total, not a
// delta, so replaying the same "down N" event never stops more than
// down to N backends remain.
func (c *Controller) scaleDown(ctx context.Context, target int, logger zerolog.Logger) {
	handles, err := c.ledger.List()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list backends for scale-down")
		return
	}

	excess := len(handles) - target
	if excess <= 0 {
		return
	}

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].StartedAt.After(handles[j].StartedAt)
	})

	for _, handle := range handles[:excess] {
		if err := c.stopOne(ctx, handle); err != nil {
			logger.Error().Err(err).Str("backend_id", handle.ID).Msg("failed to stop backend")
			continue
		}
		logger.Info().Str("backend_id", handle.ID).Msg("backend stopped")
	}
}

// startOne provisions a fresh volume, starts one backend instance from
// the Controller's template, and persists its handle.
func (c *Controller) startOne(ctx context.Context) (types.BackendHandle, error) {
	c.mu.Lock()
	c.instance++
	name := fmt.Sprintf("backend-%d-%s", c.instance, uuid.NewString()[:8])
	c.mu.Unlock()

	volPath, err := c.volumes.Provision(name)
	if err != nil {
		return types.BackendHandle{}, err
	}

	spec := types.BackendSpec{
		Name:       name,
		Image:      c.template.Image,
		Network:    c.template.Network,
		Port:       c.template.Port,
		VolumePath: volPath,
		Env:        c.template.Env,
	}

	handle, err := c.executor.Start(ctx, spec)
	if err != nil {
		_ = c.volumes.Remove(name)
		return types.BackendHandle{}, vmerr.Wrap(vmerr.KindStorage, "hostctl.startOne", "failed to start backend", err)
	}

	if err := c.ledger.Put(handle); err != nil {
		return types.BackendHandle{}, err
	}
	return handle, nil
}

func (c *Controller) stopOne(ctx context.Context, handle types.BackendHandle) error {
	if err := c.executor.Stop(ctx, handle); err != nil {
		return err
	}
	if err := c.volumes.Remove(handle.Name); err != nil {
		return err
	}
	return c.ledger.Delete(handle.ID)
}

// Replace implements reconciler.Replacer: it stops the failed backend and
// starts a fresh one in its place, reusing the same name so its volume
// directory carries over.
func (c *Controller) Replace(ctx context.Context, handle types.BackendHandle) error {
	if err := c.executor.Stop(ctx, handle); err != nil {
		log.WithComponent("hostctl").Warn().Err(err).Str("backend_id", handle.ID).Msg("failed to stop failed backend before replacement")
	}

	spec := types.BackendSpec{
		Name:       handle.Name,
		Image:      c.template.Image,
		Network:    c.template.Network,
		Port:       c.template.Port,
		VolumePath: c.volumes.Path(handle.Name),
		Env:        c.template.Env,
	}

	newHandle, err := c.executor.Start(ctx, spec)
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "hostctl.Replace", "failed to start replacement backend", err)
	}

	if err := c.ledger.Delete(handle.ID); err != nil {
		return err
	}
	return c.ledger.Put(newHandle)
}
