// Package registry implements the Node Registry described in the load
// balancer's design: a thread-safe set of Storage Node entries, each
// carrying a reachability state (UNKNOWN/HEALTHY/UNHEALTHY) maintained by
// a background Prober.
//
// The Prober's shape is grounded on the teacher's per-target ticker loop
// (one goroutine, one ticker, iterate-and-check every registered target
// each tick) rather than one goroutine per node — this keeps the prober's
// resource usage flat regardless of fleet size and matches how the
// original health monitor drove its own per-container checks.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                      Registry                            │
//	│   map[name]*StorageNode, RWMutex guarded                 │
//	│   Register / Unregister / Get / Healthy / All            │
//	└───────────────────────┬───────────────────────────────────┘
//	                        │
//	┌───────────────────────▼───────────────────────────────────┐
//	│                      Prober                               │
//	│   ticker loop → probeOne(node) per registered node        │
//	│     checker := newCheck(node)   (pkg/health.SFTPChecker)   │
//	│     result  := checker.Check(ctx)                          │
//	│     status.Update(result, config)  (hysteresis)            │
//	│     registry.setState(name, HEALTHY|UNHEALTHY)             │
//	│     on change: log + publish events.EventNodeHealthChanged │
//	└─────────────────────────────────────────────────────────────┘
package registry
