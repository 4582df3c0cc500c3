/*
Package ledger persists the Host Controller's view of backend containers
across restarts. It is deliberately narrow compared to the teacher's
BoltStore, which kept nine entity kinds (nodes, services, containers,
secrets, volumes, networks, CA material, ingresses, TLS certificates) in
one database — the object-storage Host Controller only ever needs to
remember one thing: which backend containers it started and where to
reach them, so a restart can reconcile against what is actually running
instead of starting everything from scratch.
*/
package ledger
