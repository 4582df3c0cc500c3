/*
Package executor adapts the teacher's ContainerdRuntime
(pkg/runtime/containerd.go) to the Host Controller's narrower contract:
start a backend container from a BackendSpec, stop one by its
BackendHandle, and inspect its current BackendState. The teacher's
richer Container/resource-limit/secrets-mount machinery is dropped since
backend containers here take one bind-mounted data volume and one
published port, nothing more.

Like the teacher's runtime package, this has no unit tests: exercising
it requires a live containerd socket, which the teacher's own test suite
never set up either.
*/
package executor
