package docker

import (
	"context"
	"regexp"
	"strings"

	"github.com/chis/kbcatalog/internal/storage"
)

// Docker Compose labels used to match containers to components
const (
	ComposeServiceLabel = "com.docker.compose.service"
	ComposeProjectLabel = "com.docker.compose.project"
)

// StateNotFound is reported for components without a matching container.
const StateNotFound = "not_found"

// Client defines the Docker operations the catalog needs.
// This interface allows for easy mocking in tests.
type Client interface {
	// Ping checks that the daemon is reachable
	Ping(ctx context.Context) error

	// ListContainers returns all containers (running and stopped)
	ListContainers(ctx context.Context) ([]Container, error)

	// ComponentStatuses reports the container state of each component
	ComponentStatuses(ctx context.Context, components []storage.DockerComponent) ([]ComponentStatus, error)

	// Close releases resources held by the Docker client
	Close() error
}

// Container represents a Docker container with relevant metadata.
type Container struct {
	ID           string
	Name         string
	Image        string
	State        string
	HealthStatus string // "healthy", "unhealthy", "starting", "none"
	Labels       map[string]string
	Created      int64
}

// ComponentStatus is a catalog docker component with its live container state.
type ComponentStatus struct {
	storage.DockerComponent
	Container string `json:"container,omitempty"`
	State     string `json:"state"`
	Health    string `json:"health,omitempty"`
	Image     string `json:"image,omitempty"`
}

var healthPattern = regexp.MustCompile(`\((healthy|unhealthy|health: starting)\)`)

// healthFromStatus extracts the health check state from a container status
// line such as "Up 3 hours (healthy)".
func healthFromStatus(status string) string {
	m := healthPattern.FindStringSubmatch(status)
	if m == nil {
		return "none"
	}
	if m[1] == "health: starting" {
		return "starting"
	}
	return m[1]
}

// matchesComponent reports whether container c runs component name. A
// container matches by exact name, by compose service label, or by the
// compose-generated "<project>-<service>-<n>" name.
func matchesComponent(c Container, name string) bool {
	if c.Name == name || c.Labels[ComposeServiceLabel] == name {
		return true
	}
	for _, sep := range []string{"-", "_"} {
		project := c.Labels[ComposeProjectLabel]
		if project == "" {
			continue
		}
		rest, ok := strings.CutPrefix(c.Name, project+sep)
		if !ok {
			continue
		}
		if rest == name || strings.HasPrefix(rest, name+sep) {
			return true
		}
	}
	return false
}

// MatchComponents pairs each component with its container. Components
// without a container are reported as StateNotFound.
func MatchComponents(components []storage.DockerComponent, containers []Container) []ComponentStatus {
	statuses := make([]ComponentStatus, 0, len(components))
	for _, comp := range components {
		status := ComponentStatus{DockerComponent: comp, State: StateNotFound}
		for _, c := range containers {
			if matchesComponent(c, comp.Name) {
				status.Container = c.Name
				status.State = c.State
				status.Health = c.HealthStatus
				status.Image = c.Image
				break
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}
