package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/logging"
)

// Client implements Daemon on top of the Docker engine API. A single Client
// is shared by all operations; the underlying HTTP transport pools
// connections.
type Client struct {
	api         *client.Client
	logger      logging.Logger
	stopTimeout time.Duration
	execPoll    time.Duration
}

// NewClient connects to host, or to the environment's default daemon
// (DOCKER_HOST etc.) when host is empty. The API version is negotiated.
func NewClient(host string, stopTimeout time.Duration, logger logging.Logger) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{api: api, logger: logger, stopTimeout: stopTimeout, execPoll: 200 * time.Millisecond}, nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.Ping(ctx)
	return c.mapError(err)
}

func (c *Client) Close() error {
	return c.api.Close()
}

func (c *Client) HasImage(ctx context.Context, ref string) (bool, error) {
	_, _, err := c.api.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return true, nil
	}
	if errdefs.IsNotFound(err) {
		return false, nil
	}
	return false, c.mapError(err)
}

type pullMessage struct {
	Status   string `json:"status"`
	Progress string `json:"progress"`
	Error    string `json:"error"`
}

// Pull downloads ref and drains the progress stream. Errors reported inside
// the stream are returned as well.
func (c *Client) Pull(ctx context.Context, ref string) error {
	rc, err := c.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return c.mapError(err)
	}
	defer rc.Close()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var m pullMessage
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			continue
		}
		if m.Error != "" {
			return errors.New(m.Error)
		}
		c.logger.Debug(ctx, "pull progress", "image", ref, "status", m.Status, "progress", m.Progress)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return c.mapError(err)
	}
	return nil
}

// CreateVolume creates the named volume; an existing volume is reused.
func (c *Client) CreateVolume(ctx context.Context, name string, labels map[string]string) error {
	_, err := c.api.VolumeCreate(ctx, volume.CreateOptions{Name: name, Labels: labels})
	if err != nil && !errdefs.IsConflict(err) {
		return c.mapError(err)
	}
	return nil
}

func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	return c.mapError(c.api.VolumeRemove(ctx, name, true))
}

func (c *Client) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		port, err := nat.NewPort("tcp", strconv.Itoa(p.ContainerPort))
		if err != nil {
			return "", err
		}
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{HostIP: p.HostIP, HostPort: strconv.Itoa(p.HostPort)})
	}

	mounts := make([]mount.Mount, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		mounts = append(mounts, mount.Mount{Type: mount.TypeVolume, Source: m.Volume, Target: m.Target})
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		ExposedPorts: exposed,
		Labels:       spec.Labels,
	}
	hostCfg := &container.HostConfig{
		PortBindings:  bindings,
		Mounts:        mounts,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}

	resp, err := c.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", c.mapError(err)
	}
	for _, w := range resp.Warnings {
		c.logger.Warn(ctx, "container create warning", "name", spec.Name, "warning", w)
	}
	return resp.ID, nil
}

func (c *Client) Start(ctx context.Context, id string) error {
	return c.mapError(c.api.ContainerStart(ctx, id, container.StartOptions{}))
}

func (c *Client) Stop(ctx context.Context, id string) error {
	secs := int(c.stopTimeout.Seconds())
	return c.mapError(c.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}))
}

func (c *Client) Remove(ctx context.Context, id string) error {
	return c.mapError(c.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}))
}

func (c *Client) Inspect(ctx context.Context, id string) (ContainerState, error) {
	info, err := c.api.ContainerInspect(ctx, id)
	if err != nil {
		return ContainerState{}, c.mapError(err)
	}
	st := ContainerState{ID: id}
	if info.ContainerJSONBase != nil && info.State != nil {
		st.Running = info.State.Running
		st.Status = info.State.Status
		if info.State.Health != nil {
			st.Health = info.State.Health.Status
		}
	}
	return st, nil
}

// Probe runs spec detached inside the container and waits for it to exit.
func (c *Client) Probe(ctx context.Context, id string, spec ProbeSpec) (bool, error) {
	exec, err := c.api.ContainerExecCreate(ctx, id, container.ExecOptions{Cmd: spec.Cmd, Env: spec.Env})
	if err != nil {
		return false, c.mapError(err)
	}
	if err := c.api.ContainerExecStart(ctx, exec.ID, container.ExecStartOptions{Detach: true}); err != nil {
		return false, c.mapError(err)
	}

	ticker := time.NewTicker(c.execPoll)
	defer ticker.Stop()
	for {
		res, err := c.api.ContainerExecInspect(ctx, exec.ID)
		if err != nil {
			return false, c.mapError(err)
		}
		if !res.Running {
			return res.ExitCode == 0, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errdefs.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errdefs.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case client.IsErrConnectionFailed(err):
		return fmt.Errorf("%w: %v", common.ErrDaemonUnavailable, err)
	default:
		return err
	}
}
