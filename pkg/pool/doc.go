/*
Package pool implements the Backend Pool: round-robin endpoint selection
across the configured SFTP backends, plus a per-endpoint counting
semaphore that enforces mutual exclusion on a single backend's SFTP
session.

# Architecture

	┌─────────────────────────── Pool ───────────────────────────┐
	│                                                              │
	│  Next() -> endpoint (round-robin, wraps, mutex-guarded)      │
	│                                                              │
	│  WithPermit(ctx, endpoint, fn):                              │
	│      semaphore[endpoint].Acquire(ctx) -> fn() -> Release     │
	│                                                              │
	└──────────────────────────────────────────────────────────────┘

Each endpoint's semaphore has weight permit_count (default 1), matching
spec.md's requirement that at most permit_count concurrent transfers touch
any one backend — the mechanism that prevents two workers from stepping on
the same SFTP session. Register/Unregister add or remove endpoints at
runtime without disturbing in-flight transfers on unaffected endpoints;
the Node Registry keeps its own per-node permits and does not call them.
*/
package pool
