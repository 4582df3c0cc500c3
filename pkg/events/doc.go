/*
Package events provides an in-memory event broker for vaultmesh's internal
pub/sub notifications.

It implements a lightweight event bus for broadcasting state-change events
to interested subscribers: buffered publish, buffered per-subscriber
delivery, fire-and-forget semantics. Nothing here persists past process
restart — it is a notification bus, not an audit trail (the Metastore's
audit log covers that).

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  Publisher → Event Channel (buffer: 100)                  │
	│       ↓                                                    │
	│  Broadcast Loop                                            │
	│       ↓                                                    │
	│  Subscriber Channels (buffer: 50 each, drop-on-full)      │
	└────────────────────────────────────────────────────────────┘

# Event Types

The only event published today is node.health_changed, by pkg/registry's
Prober, when a Storage Node crosses the hysteresis threshold in
pkg/health.Status and flips HEALTHY/UNHEALTHY.

The remaining constants are defined for subscribers to match on, but no
package publishes them:
  - node.registered, node.unregistered
  - upload.completed, upload.rolled_back, download.completed, file.deleted
  - scale.requested
  - backend.started, backend.replaced

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			log.Printf("%s: %s", event.Type, event.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventNodeHealthChanged,
		Message: "node-3: HEALTHY -> UNHEALTHY",
	})

# Design notes

Publish waits while the 100-event broker buffer is full, until the broker
is stopped. Delivery is best-effort: a subscriber with a full buffer
silently misses events rather than stalling the broadcast loop.
This is acceptable here because every event type also has an authoritative
source of truth elsewhere (the registry's own state, the metastore's audit
log, Prometheus counters) — the broker exists for live notification, not
as the system of record.
*/
package events
