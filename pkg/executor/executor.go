// Package executor implements the Host Controller's command executor
// contract — start(spec) -> handle, stop(handle), inspect(handle) ->
// state — over a real containerd runtime, adapted directly from the
// teacher's ContainerdRuntime.
package executor

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// DefaultNamespace is the containerd namespace backend containers run in.
const DefaultNamespace = "vaultmesh"

// DefaultSocketPath is the default containerd socket.
const DefaultSocketPath = "/run/containerd/containerd.sock"

// Executor is the Host Controller's backend lifecycle contract.
type Executor interface {
	Start(ctx context.Context, spec types.BackendSpec) (types.BackendHandle, error)
	Stop(ctx context.Context, handle types.BackendHandle) error
	Inspect(ctx context.Context, handle types.BackendHandle) (types.BackendState, error)
}

// ContainerdExecutor runs backend containers through containerd,
// publishing each one on the host network namespace so its SFTP port is
// directly reachable at hostAddress:spec.Port.
type ContainerdExecutor struct {
	client      *containerd.Client
	namespace   string
	hostAddress string
}

// New connects to containerd at socketPath (DefaultSocketPath if empty).
// hostAddress is this host's reachable address, used to build each
// started backend's endpoint.
func New(socketPath, hostAddress string) (*ContainerdExecutor, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("executor: connect to containerd: %w", err)
	}

	return &ContainerdExecutor{client: client, namespace: DefaultNamespace, hostAddress: hostAddress}, nil
}

// Close closes the containerd client connection.
func (e *ContainerdExecutor) Close() error {
	return e.client.Close()
}

// Start pulls spec.Image if needed, creates a container bind-mounting
// spec.VolumePath at /data, joins the host network namespace so
// spec.Port is directly reachable, and starts its task.
func (e *ContainerdExecutor) Start(ctx context.Context, spec types.BackendSpec) (types.BackendHandle, error) {
	ctx = namespaces.WithNamespace(ctx, e.namespace)

	image, err := e.client.Pull(ctx, spec.Image, containerd.WithPullUnpack)
	if err != nil {
		return types.BackendHandle{}, vmerr.Wrap(vmerr.KindTransport, "executor.Start", "failed to pull backend image", err)
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(spec.Env),
		oci.WithHostNamespace(specs.NetworkNamespace),
		oci.WithMounts([]specs.Mount{{
			Source:      spec.VolumePath,
			Destination: "/data",
			Type:        "bind",
			Options:     []string{"rbind"},
		}}),
	}

	ctrdContainer, err := e.client.NewContainer(
		ctx,
		spec.Name,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(spec.Name+"-snapshot", image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return types.BackendHandle{}, vmerr.Wrap(vmerr.KindStorage, "executor.Start", "failed to create backend container", err)
	}

	task, err := ctrdContainer.NewTask(ctx, cio.NullIO)
	if err != nil {
		return types.BackendHandle{}, vmerr.Wrap(vmerr.KindStorage, "executor.Start", "failed to create backend task", err)
	}
	if err := task.Start(ctx); err != nil {
		return types.BackendHandle{}, vmerr.Wrap(vmerr.KindStorage, "executor.Start", "failed to start backend task", err)
	}

	return types.BackendHandle{
		ID:        ctrdContainer.ID(),
		Name:      spec.Name,
		Endpoint:  fmt.Sprintf("%s:%d", e.hostAddress, spec.Port),
		StartedAt: time.Now(),
	}, nil
}

// Stop gracefully stops handle's task (SIGTERM, then SIGKILL after 10s),
// then removes the container and its snapshot.
func (e *ContainerdExecutor) Stop(ctx context.Context, handle types.BackendHandle) error {
	ctx = namespaces.WithNamespace(ctx, e.namespace)

	c, err := e.client.LoadContainer(ctx, handle.ID)
	if err != nil {
		return nil // already gone
	}

	if err := e.stopTask(ctx, c); err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "executor.Stop", "failed to stop backend task", err)
	}
	if err := c.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "executor.Stop", "failed to delete backend container", err)
	}
	return nil
}

func (e *ContainerdExecutor) stopTask(ctx context.Context, c containerd.Container) error {
	task, err := c.Task(ctx, nil)
	if err != nil {
		return nil // no task, nothing running
	}

	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := task.Kill(stopCtx, syscall.SIGTERM); err != nil {
		return err
	}
	statusC, err := task.Wait(stopCtx)
	if err != nil {
		return err
	}
	select {
	case <-statusC:
	case <-stopCtx.Done():
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil {
			return err
		}
	}
	_, err = task.Delete(ctx)
	return err
}

// Inspect reports handle's current lifecycle state.
func (e *ContainerdExecutor) Inspect(ctx context.Context, handle types.BackendHandle) (types.BackendState, error) {
	ctx = namespaces.WithNamespace(ctx, e.namespace)

	c, err := e.client.LoadContainer(ctx, handle.ID)
	if err != nil {
		return types.BackendFailed, vmerr.Wrap(vmerr.KindNotFound, "executor.Inspect", "backend container not found", err)
	}

	task, err := c.Task(ctx, nil)
	if err != nil {
		return types.BackendPending, nil
	}

	status, err := task.Status(ctx)
	if err != nil {
		return types.BackendFailed, vmerr.Wrap(vmerr.KindStorage, "executor.Inspect", "failed to read task status", err)
	}

	switch status.Status {
	case containerd.Running:
		return types.BackendRunning, nil
	case containerd.Stopped:
		if status.ExitStatus == 0 {
			return types.BackendStopped, nil
		}
		return types.BackendFailed, nil
	default:
		return types.BackendPending, nil
	}
}
