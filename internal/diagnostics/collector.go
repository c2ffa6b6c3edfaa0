// Package diagnostics gathers the state of the local L2 node container when a run fails or a withdrawal
// stays unresolved.
package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

const collectTimeout = 30 * time.Second

// DefaultKeywords select the log lines that matter for bridge troubleshooting.
var DefaultKeywords = []string{"withdraw", "batch", "proof", "error"}

type (
	// DockerAPI is the part of the docker client the collector uses.
	DockerAPI interface {
		ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
		ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	}

	Config struct {
		Container string
		RPCPort   int
		Tail      int
		MaxLines  int
		Keywords  []string
	}

	// Snapshot is what was learned about the container.
	Snapshot struct {
		Container   string
		Status      string
		Running     bool
		HostBinding string
		Lines       []string
	}

	Collector struct {
		api     DockerAPI
		cfg     Config
		pattern *regexp.Regexp
		logger  *slog.Logger
	}
)

// NewDockerAPI connects to the docker daemon configured in the environment.
func NewDockerAPI() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

func NewCollector(api DockerAPI, cfg Config) *Collector {
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}

	return &Collector{
		api:     api,
		cfg:     cfg,
		pattern: regexp.MustCompile("(?i)" + strings.Join(quoted, "|")),
		logger:  logger.Named("diagnostics"),
	}
}

// Collect inspects the container and returns its state plus the filtered tail of its logs.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	inspect, err := c.api.ContainerInspect(ctx, c.cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", c.cfg.Container, err)
	}

	snapshot := &Snapshot{Container: c.cfg.Container}
	if inspect.ContainerJSONBase != nil && inspect.State != nil {
		snapshot.Status = inspect.State.Status
		snapshot.Running = inspect.State.Running
	}
	if inspect.NetworkSettings != nil {
		snapshot.HostBinding = hostBinding(inspect.NetworkSettings.Ports, c.cfg.RPCPort)
	}

	tty := inspect.Config != nil && inspect.Config.Tty
	lines, err := c.tail(ctx, tty)
	if err != nil {
		return snapshot, err
	}
	snapshot.Lines = lines

	return snapshot, nil
}

// Report collects and logs a snapshot. It never fails: a missing container or daemon is a warning.
func (c *Collector) Report(ctx context.Context) {
	snapshot, err := c.Collect(ctx)
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.logger.With("container", c.cfg.Container).Warn("L2 container not found, skipping diagnostics")
			return
		}
		c.logger.With("container", c.cfg.Container).With("err", err).Warn("failed to collect diagnostics")
		if snapshot == nil {
			return
		}
	}

	c.logger.
		With("container", snapshot.Container).
		With("status", snapshot.Status).
		With("running", snapshot.Running).
		With("rpc_binding", snapshot.HostBinding).
		With("matching_lines", len(snapshot.Lines)).
		Warn("L2 container state")

	for _, line := range snapshot.Lines {
		c.logger.With("container", snapshot.Container).Info(line)
	}
}

func (c *Collector) tail(ctx context.Context, tty bool) ([]string, error) {
	tail := "all"
	if c.cfg.Tail > 0 {
		tail = strconv.Itoa(c.cfg.Tail)
	}

	rc, err := c.api.ContainerLogs(ctx, c.cfg.Container, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tail,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	defer rc.Close()

	var out bytes.Buffer
	if tty {
		_, err = io.Copy(&out, rc)
	} else {
		_, err = stdcopy.StdCopy(&out, &out, rc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read container logs: %w", err)
	}

	return c.filterLines(strings.Split(out.String(), "\n")), nil
}

// filterLines keeps keyword matches, capped to the last MaxLines.
func (c *Collector) filterLines(lines []string) []string {
	var filtered []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" && c.pattern.MatchString(line) {
			filtered = append(filtered, line)
		}
	}

	if c.cfg.MaxLines > 0 && len(filtered) > c.cfg.MaxLines {
		filtered = filtered[len(filtered)-c.cfg.MaxLines:]
	}

	return filtered
}

// hostBinding returns host:port published for the container's tcp port, or "" when unpublished.
func hostBinding(ports nat.PortMap, port int) string {
	if port <= 0 {
		return ""
	}
	p, err := nat.NewPort("tcp", strconv.Itoa(port))
	if err != nil {
		return ""
	}
	bindings := ports[p]
	if len(bindings) == 0 {
		return ""
	}
	host := bindings[0].HostIP
	if host == "" {
		host = "0.0.0.0"
	}
	return host + ":" + bindings[0].HostPort
}
