package docker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
)

// Fake is an in-memory Daemon. It models images, volumes, containers and
// host port allocation closely enough to exercise orchestration logic
// without a real engine. Failure injection fields may be set before use.
type Fake struct {
	mu sync.Mutex

	images     map[string]bool
	volumes    map[string]map[string]string
	containers map[string]*fakeContainer
	names      map[string]string
	probes     map[string]int
	calls      []string
	nextID     int

	// Unavailable makes every call fail with common.ErrDaemonUnavailable.
	Unavailable bool
	PullErr     error
	CreateErr   error
	StartErr    error
	StopErr     error
	RemoveErr   error
	// Healthy decides the outcome of the attempt-th probe (1-based) of a
	// container. When nil every probe succeeds.
	Healthy func(id string, attempt int) (bool, error)
}

type fakeContainer struct {
	spec    ContainerSpec
	running bool
	created bool
}

func NewFake() *Fake {
	return &Fake{
		images:     map[string]bool{},
		volumes:    map[string]map[string]string{},
		containers: map[string]*fakeContainer{},
		names:      map[string]string{},
		probes:     map[string]int{},
	}
}

// HealthyAfter returns a Healthy func that succeeds from the n-th attempt on.
func HealthyAfter(n int) func(string, int) (bool, error) {
	return func(_ string, attempt int) (bool, error) { return attempt >= n, nil }
}

// NeverHealthy is a Healthy func that always reports unhealthy.
func NeverHealthy(string, int) (bool, error) { return false, nil }

func (f *Fake) record(call string) error {
	f.calls = append(f.calls, call)
	if f.Unavailable {
		return fmt.Errorf("%w: fake daemon down", common.ErrDaemonUnavailable)
	}
	return nil
}

// AddImage marks ref as already present locally.
func (f *Fake) AddImage(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[ref] = true
}

func (f *Fake) HasImage(ctx context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("has_image " + ref); err != nil {
		return false, err
	}
	return f.images[ref], nil
}

func (f *Fake) Pull(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("pull " + ref); err != nil {
		return err
	}
	if f.PullErr != nil {
		return f.PullErr
	}
	f.images[ref] = true
	return nil
}

func (f *Fake) CreateVolume(ctx context.Context, name string, labels map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_volume " + name); err != nil {
		return err
	}
	if _, ok := f.volumes[name]; !ok {
		f.volumes[name] = labels
	}
	return nil
}

func (f *Fake) RemoveVolume(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove_volume " + name); err != nil {
		return err
	}
	if _, ok := f.volumes[name]; !ok {
		return fmt.Errorf("%w: volume %s", ErrNotFound, name)
	}
	delete(f.volumes, name)
	return nil
}

func (f *Fake) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create " + spec.Name); err != nil {
		return "", err
	}
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if !f.images[spec.Image] {
		return "", fmt.Errorf("%w: image %s", ErrNotFound, spec.Image)
	}
	if _, taken := f.names[spec.Name]; taken {
		return "", fmt.Errorf("%w: container name %s in use", ErrConflict, spec.Name)
	}
	f.nextID++
	id := fmt.Sprintf("fake-%04d", f.nextID)
	f.containers[id] = &fakeContainer{spec: spec, created: true}
	f.names[spec.Name] = id
	return id, nil
}

func (f *Fake) Start(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("start " + id); err != nil {
		return err
	}
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("%w: container %s", ErrNotFound, id)
	}
	if f.StartErr != nil {
		return f.StartErr
	}
	for otherID, other := range f.containers {
		if otherID == id || !other.running {
			continue
		}
		for _, p := range c.spec.Ports {
			for _, op := range other.spec.Ports {
				if p.HostPort == op.HostPort {
					return fmt.Errorf("%w: bind for %s:%d failed: port is already allocated", ErrConflict, p.HostIP, p.HostPort)
				}
			}
		}
	}
	c.running = true
	return nil
}

func (f *Fake) Stop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("stop " + id); err != nil {
		return err
	}
	if f.StopErr != nil {
		return f.StopErr
	}
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("%w: container %s", ErrNotFound, id)
	}
	c.running = false
	return nil
}

func (f *Fake) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove " + id); err != nil {
		return err
	}
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("%w: container %s", ErrNotFound, id)
	}
	delete(f.names, c.spec.Name)
	delete(f.containers, id)
	return nil
}

func (f *Fake) Inspect(ctx context.Context, id string) (ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("inspect " + id); err != nil {
		return ContainerState{}, err
	}
	c, ok := f.containers[id]
	if !ok {
		return ContainerState{}, fmt.Errorf("%w: container %s", ErrNotFound, id)
	}
	st := ContainerState{ID: id, Running: c.running, Status: "created"}
	if c.running {
		st.Status = "running"
	} else if c.created {
		st.Status = "exited"
	}
	return st, nil
}

func (f *Fake) Probe(ctx context.Context, id string, spec ProbeSpec) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("probe " + id); err != nil {
		return false, err
	}
	c, ok := f.containers[id]
	if !ok {
		return false, fmt.Errorf("%w: container %s", ErrNotFound, id)
	}
	if !c.running {
		return false, nil
	}
	f.probes[id]++
	if f.Healthy == nil {
		return true, nil
	}
	return f.Healthy(id, f.probes[id])
}

// SetState flips the running flag of an existing container, simulating an
// externally stopped or restarted database.
func (f *Fake) SetState(id string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.running = running
	}
}

// RemoveExternally deletes a container behind the orchestrator's back, like
// a manual "docker rm -f".
func (f *Fake) RemoveExternally(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		delete(f.names, c.spec.Name)
		delete(f.containers, id)
	}
}

// Container returns the spec of container id.
func (f *Fake) Container(id string) (ContainerSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return ContainerSpec{}, false
	}
	return c.spec, true
}

// ContainerIDs lists all existing containers in creation order.
func (f *Fake) ContainerIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.containers))
	for id := range f.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Running counts running containers.
func (f *Fake) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.containers {
		if c.running {
			n++
		}
	}
	return n
}

// HasVolume reports whether the named volume exists.
func (f *Fake) HasVolume(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.volumes[name]
	return ok
}

// ProbeCount returns how many probes ran against container id.
func (f *Fake) ProbeCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes[id]
}

// Calls returns the operations issued so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
