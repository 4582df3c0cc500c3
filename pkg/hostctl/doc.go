/*
Package hostctl is the Host Controller binary's core: subscribe to scale
events, start/stop backend containers through pkg/executor, persist their
handles in pkg/ledger, provision their data directories through
pkg/volume, and run pkg/reconciler to replace any that fail health
inspection. Multiple replicas can run the same Controller; pkg/elector
decides which one is allowed to act, mirroring the teacher's
manager-owns-the-Raft-node design without carrying over its replicated
cluster state — a Host Controller replica's ledger is local, not
Raft-replicated, since the only property that needs consensus is "which
replica acts."
*/
package hostctl
