/*
Package types defines the core data structures shared across vaultmesh.

This package contains the domain model for the storage pipeline: files and
their encrypted chunks, audit log entries, queued requests, storage node
health, scale events, and the backend containers the host controller
manages. These types are used by every other package for persistence,
scheduling, and API communication.

# Core Types

File and Chunk:
  - FileRecord: a single uploaded object's identity, size, and cipher tag
  - ChunkRecord: one encrypted slice of a file and its storage location

Audit:
  - AuditLogEntry: an append-only record of something the system did
  - EventKind: the enumerated events the system can emit
  - Severity: INFO, WARNING, or ERROR

Scheduling:
  - Request: the in-memory unit of work the request queue orders
  - OperationKind: UPLOAD or DOWNLOAD

Nodes:
  - StorageNode: a single SFTP endpoint and its health state
  - HealthState: UNKNOWN, HEALTHY, or UNHEALTHY

Scaling and backends:
  - ScaleEvent: the up/down signal published to the host controller
  - BackendSpec: what the host controller should start
  - BackendHandle: a running backend container and how to reach it
  - BackendState: pending, running, stopped, or failed

# Design Patterns

Enumeration Pattern:

	All enums use typed string constants:
	  type HealthState string
	  const (
	      HealthHealthy   HealthState = "HEALTHY"
	      HealthUnhealthy HealthState = "UNHEALTHY"
	  )

# Thread Safety

Types in this package carry no synchronization of their own. Read-only
access from multiple goroutines is safe; mutation must be synchronized by
the caller. Request additionally holds a Done channel that callers use to
signal completion rather than to guard concurrent field access.

# Integration Points

This package integrates with:

  - pkg/metastore: persists FileRecord, ChunkRecord, and AuditLogEntry
  - pkg/queue: orders Request values by size and arrival
  - pkg/registry: tracks StorageNode health
  - pkg/lb (Scaling Publisher): produces ScaleEvent and publishes it over MQTT
  - pkg/hostctl: starts and tracks BackendHandle per BackendSpec
*/
package types
