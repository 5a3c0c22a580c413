package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/chis/kbcatalog/internal/storage"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// sdkClient is the subset of the Docker SDK client used by Service.
type sdkClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Close() error
}

// Service implements the Client interface using the Docker SDK.
type Service struct {
	cli sdkClient
}

// NewService creates a new Docker service that connects to the Docker socket.
// It uses the default Docker host from environment variables or defaults to
// unix:///var/run/docker.sock on Unix systems.
func NewService() (*Service, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Service{cli: cli}, nil
}

// Ping checks that the Docker daemon answers.
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// ListContainers retrieves all containers from the Docker daemon.
// It returns both running and stopped containers.
func (s *Service) ListContainers(ctx context.Context) ([]Container, error) {
	containers, err := s.cli.ContainerList(ctx, container.ListOptions{
		All: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]Container, 0, len(containers))
	for _, c := range containers {
		result = append(result, convertContainer(c))
	}

	return result, nil
}

// ComponentStatuses lists containers once and matches them to components.
func (s *Service) ComponentStatuses(ctx context.Context, components []storage.DockerComponent) ([]ComponentStatus, error) {
	containers, err := s.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	return MatchComponents(components, containers), nil
}

// Close releases resources held by the Docker client.
func (s *Service) Close() error {
	if s.cli != nil {
		return s.cli.Close()
	}
	return nil
}

// convertContainer transforms the Docker SDK container type into our domain model.
func convertContainer(c container.Summary) Container {
	// Container names start with '/', so we trim it
	var name string
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return Container{
		ID:           c.ID,
		Name:         name,
		Image:        c.Image,
		State:        string(c.State),
		HealthStatus: healthFromStatus(c.Status),
		Labels:       c.Labels,
		Created:      c.Created,
	}
}
