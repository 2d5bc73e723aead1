// Package docker abstracts the container daemon behind the small capability
// surface the orchestrator needs. Client talks to a real Docker engine;
// Fake is an in-memory implementation for deterministic tests.
//
// Implementations report a missing container, volume or image with
// ErrNotFound and an unreachable daemon with common.ErrDaemonUnavailable.
package docker

import (
	"context"
	"errors"
)

// ErrNotFound reports that the referenced container or volume does not exist.
var ErrNotFound = errors.New("no such object")

// ErrConflict reports a name or port collision detected by the daemon.
var ErrConflict = errors.New("conflict")

// PortBinding publishes ContainerPort on HostIP:HostPort.
type PortBinding struct {
	HostIP        string
	HostPort      int
	ContainerPort int
}

// VolumeMount mounts the named volume at Target.
type VolumeMount struct {
	Volume string
	Target string
}

// ContainerSpec is everything needed to create a database container.
type ContainerSpec struct {
	Name   string
	Image  string
	Env    []string
	Ports  []PortBinding
	Mounts []VolumeMount
	Labels map[string]string
}

// ContainerState is the daemon's view of a container.
type ContainerState struct {
	ID      string
	Running bool
	Status  string
	// Health is the daemon's own healthcheck status when the image defines
	// one ("healthy", "unhealthy", "starting"), empty otherwise.
	Health string
}

// ProbeSpec is a readiness command executed inside the container.
type ProbeSpec struct {
	Cmd []string
	Env []string
}

// Daemon is the capability surface of a container runtime.
type Daemon interface {
	HasImage(ctx context.Context, ref string) (bool, error)
	Pull(ctx context.Context, ref string) error
	CreateVolume(ctx context.Context, name string, labels map[string]string) error
	RemoveVolume(ctx context.Context, name string) error
	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Inspect(ctx context.Context, id string) (ContainerState, error)
	// Probe runs spec inside container id and reports whether it exited 0.
	Probe(ctx context.Context, id string, spec ProbeSpec) (bool, error)
}
