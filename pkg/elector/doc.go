/*
Package elector is the Host Controller's HA leader election layer,
adapted from the teacher's cluster Manager's Raft wiring
(cmd/*/manager.go Bootstrap/Join/IsLeader/LeaderAddr) down to the single
property the Host Controller needs: only the elected leader acts on
scale events; followers still receive every MQTT message but skip
execution, so a late or duplicate takeover never double-starts a
backend (the reconciler's health scan is itself idempotent).

Unlike the teacher's Manager, the elector's Raft log carries no
application commands — no FSM-replicated Node/Service/Secret state — so
Apply/Snapshot/Restore are no-ops. Replacing it with a real FSM would be
needed only if the Host Controller's ledger itself had to be replicated,
which it does not: each replica keeps its own bbolt ledger of the
backends it personally started.
*/
package elector
