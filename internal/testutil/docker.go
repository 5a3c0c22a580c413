package testutil

import (
	"context"
	"sync"

	"github.com/chis/kbcatalog/internal/docker"
	"github.com/chis/kbcatalog/internal/storage"
)

var _ docker.Client = (*FakeDocker)(nil)

// FakeDocker is an in-memory docker.Client. Set PingErr or ListErr to
// simulate an unreachable daemon.
type FakeDocker struct {
	mu         sync.Mutex
	Containers []docker.Container
	PingErr    error
	ListErr    error
	closed     bool
}

// NewFakeDocker returns a daemon running the given containers.
func NewFakeDocker(containers ...docker.Container) *FakeDocker {
	return &FakeDocker{Containers: containers}
}

// RunningContainer builds a healthy compose container for service.
func RunningContainer(project, service, image string) docker.Container {
	return docker.Container{
		ID:           project + "-" + service,
		Name:         project + "-" + service + "-1",
		Image:        image,
		State:        "running",
		HealthStatus: "healthy",
		Labels: map[string]string{
			docker.ComposeProjectLabel: project,
			docker.ComposeServiceLabel: service,
		},
	}
}

func (f *FakeDocker) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PingErr
}

func (f *FakeDocker) ListContainers(ctx context.Context) ([]docker.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]docker.Container(nil), f.Containers...), nil
}

func (f *FakeDocker) ComponentStatuses(ctx context.Context, components []storage.DockerComponent) ([]docker.ComponentStatus, error) {
	containers, err := f.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	return docker.MatchComponents(components, containers), nil
}

func (f *FakeDocker) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeDocker) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
