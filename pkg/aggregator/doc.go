/*
Package aggregator implements the Aggregator Pipeline: upload, download,
and delete over the object-storage system's four collaborators — the
Crypto Engine, Integrity Engine, Metadata Store, and Backend Pool.

Construction wires a single acyclic dependency graph: Pipeline holds
explicit references to each collaborator; none of them reference the
Pipeline back. This replaces a design built on mutual back-references
between the pipeline, its services, and the store.

Upload holds a global counting permit (golang.org/x/sync/semaphore) for
its entire duration, bounding how many uploads run concurrently
process-wide. Any failure before the final commit step triggers a
best-effort rollback: already-stored chunks are deleted from their
backends, their records removed, and the provisional File Record deleted.
Each rollback failure is audited but never replaces the error the caller
receives — a failed rollback step does not mask why the upload failed.

Download aborts immediately on a CRC mismatch or decryption failure; no
compensating action runs against the store, since nothing was written.

All three operations are audited through an injected AuditLogger rather
than a global logger, so a failing audit write can never block or fail
the primary path.
*/
package aggregator
