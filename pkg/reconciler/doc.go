/*
Package reconciler narrows the teacher's node/task reconciliation loop
(pkg/reconciler/reconciler.go) to the Host Controller's single failure
mode: a backend container whose inspected state is BackendFailed gets
replaced. There is no node-heartbeat tracking (the Host Controller
doesn't run a cluster of worker nodes) and no desired/actual state
machine (a backend handle in the ledger is either there, running fine,
or it isn't and gets replaced) — only the unhealthy-container branch of
the teacher's reconcileContainers survives, generalized behind the
Inspector/Replacer interfaces so the reconciler doesn't need to know
how backends are started.
*/
package reconciler
