package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/containerd/containerd/remotes"
	"github.com/containerd/containerd/remotes/docker"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/rs/zerolog"

	"github.com/cuemby/halti-agent/pkg/log"
	"github.com/cuemby/halti-agent/pkg/portbind"
	"github.com/cuemby/halti-agent/pkg/reconciler"
	"github.com/cuemby/halti-agent/pkg/types"
)

const (
	// Namespace isolates the agent's containers from anything else
	// running on the same containerd daemon.
	Namespace = "halti"

	// DefaultSocketPath is the default containerd socket.
	DefaultSocketPath = "/run/containerd/containerd.sock"

	stopTimeout = 10 * time.Second
)

// Containerd is the containerd-backed reconciler.EngineAdapter. A single
// instance is shared between the supervisor (ListOwned) and the
// reconciler worker (everything else); the underlying client is safe
// for concurrent use.
type Containerd struct {
	client       *containerd.Client
	namespace    string
	insecurePull bool
	hostPorts    *hostPortPublisher
	logger       zerolog.Logger
}

// New dials the containerd socket. allowInsecureRegistry mirrors the
// ALLOW_INSEC_REGISTRY configuration flag and is passed through to Pull.
func New(socketPath string, allowInsecureRegistry bool) (*Containerd, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: dial containerd at %s: %v", reconciler.ErrEngineUnreachable, socketPath, err)
	}

	return &Containerd{
		client:       client,
		namespace:    Namespace,
		insecurePull: allowInsecureRegistry,
		hostPorts:    newHostPortPublisher(),
		logger:       log.WithComponent(log.ComponentEngine),
	}, nil
}

// Close releases the underlying containerd connection.
func (c *Containerd) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EngineVersion reports the daemon's version string, for the platform
// descriptor sent at registration. "unknown" if the daemon can't be
// asked (it is not worth failing startup over).
func (c *Containerd) EngineVersion(ctx context.Context) string {
	v, err := c.client.Version(ctx)
	if err != nil {
		return "unknown"
	}
	return v.Version
}

// ListOwned returns every container carrying the ownership label.
// Listing containers is the first call of every reconciliation and
// heartbeat cycle, so a failure here is treated as the engine being
// unreachable rather than a per-container problem.
func (c *Containerd) ListOwned(ctx context.Context) ([]types.RunningContainer, error) {
	ctx = namespaces.WithNamespace(ctx, c.namespace)

	containers, err := c.client.Containers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list containers: %v", reconciler.ErrEngineUnreachable, err)
	}

	owned := make([]types.RunningContainer, 0, len(containers))
	for _, ctr := range containers {
		labels, err := ctr.Labels(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Str("container", ctr.ID()).Msg("failed to read labels, skipping")
			continue
		}
		if labels[types.LabelOwnership] != types.OwnershipValue {
			continue
		}
		owned = append(owned, types.RunningContainer{
			ID:           ctr.ID(),
			Name:         "/" + ctr.ID(),
			VersionLabel: labels[types.LabelVersion],
		})
	}
	return owned, nil
}

// Pull fetches image from its registry. Pull failures are always
// reported to the reconciler as soft: a per-service retry, never
// structural.
func (c *Containerd) Pull(ctx context.Context, image string) error {
	ctx = namespaces.WithNamespace(ctx, c.namespace)

	opts := []containerd.RemoteOpt{containerd.WithPullUnpack}
	if c.insecurePull {
		opts = append(opts, containerd.WithResolver(insecureResolver()))
	}

	if _, err := c.client.Pull(ctx, image, opts...); err != nil {
		return fmt.Errorf("pull %s: %w", image, err)
	}
	return nil
}

// insecureResolver builds a resolver that accepts self-signed certs and
// plaintext HTTP, for ALLOW_INSEC_REGISTRY=true against private
// registries without a trusted cert.
func insecureResolver() remotes.Resolver {
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	return docker.NewResolver(docker.ResolverOptions{
		Hosts: docker.ConfigureDefaultRegistries(
			docker.WithClient(client),
			docker.WithPlainHTTP(docker.MatchAllHosts),
		),
	})
}

// Start creates and starts a container for spec, publishing its port
// bindings via iptables. The engine-level name is spec.ServiceID, the
// join key current and desired state share; labels carry the ownership
// marker, the human-readable service name, and the version. Port
// declarations are not checked for contradictions: duplicate or
// conflicting entries are published as given.
func (c *Containerd) Start(ctx context.Context, spec types.ServiceSpec, bindIP string) error {
	ctx = namespaces.WithNamespace(ctx, c.namespace)

	image, err := c.client.GetImage(ctx, spec.Image)
	if err != nil {
		return fmt.Errorf("get image %s: %w", spec.Image, err)
	}

	declarations, bindings, err := portbind.Translate(spec.Ports, bindIP)
	if err != nil {
		return fmt.Errorf("translate ports: %w", err)
	}

	env := buildEnv(spec)
	labels := map[string]string{
		types.LabelOwnership: types.OwnershipValue,
		types.LabelService:   spec.Name,
		types.LabelVersion:   spec.Version,
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(env),
	}
	if spec.HasCommand() {
		opts = append(opts, oci.WithProcessArgs(spec.Command...))
	}

	var mounts []specs.Mount
	if len(spec.ExtraHosts) > 0 {
		hostsPath, err := writeExtraHosts(spec.ServiceID, spec.ExtraHosts)
		if err != nil {
			return fmt.Errorf("write extra_hosts: %w", err)
		}
		mounts = append(mounts, specs.Mount{
			Source:      hostsPath,
			Destination: "/etc/hosts",
			Type:        "bind",
			Options:     []string{"ro", "bind"},
		})
	}
	if len(mounts) > 0 {
		opts = append(opts, oci.WithMounts(mounts))
	}

	ctrdContainer, err := c.client.NewContainer(
		ctx,
		spec.ServiceID,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(spec.ServiceID+"-snapshot", image),
		containerd.WithNewSpec(opts...),
		containerd.WithContainerLabels(labels),
	)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}

	task, err := ctrdContainer.NewTask(ctx, cio.NullIO)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	if err := task.Start(ctx); err != nil {
		return fmt.Errorf("start task: %w", err)
	}

	logger := log.WithServiceID(c.logger, spec.ServiceID)

	containerIP, err := containerIP(ctx, task)
	if err != nil {
		logger.Warn().Err(err).Msg("could not resolve container IP, host ports not published")
		return nil
	}
	if err := c.hostPorts.publish(spec.ServiceID, containerIP, declarations, bindings); err != nil {
		logger.Error().Err(err).Msg("failed to publish host ports")
	}
	return nil
}

// StopAndRemove stops, deletes, and un-publishes ports for the
// container with the given engine id (spec.ServiceID).
func (c *Containerd) StopAndRemove(ctx context.Context, id string) error {
	ctx = namespaces.WithNamespace(ctx, c.namespace)

	ctr, err := c.client.LoadContainer(ctx, id)
	if err != nil {
		// Already gone; nothing to do.
		return nil
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		defer cancel()

		containerIP, _ := containerIP(ctx, task)

		if err := task.Kill(stopCtx, syscall.SIGTERM); err != nil {
			return fmt.Errorf("kill task: %w", err)
		}

		statusC, err := task.Wait(stopCtx)
		if err != nil {
			return fmt.Errorf("wait task: %w", err)
		}
		select {
		case <-statusC:
		case <-stopCtx.Done():
			_ = task.Kill(ctx, syscall.SIGKILL)
		}
		if _, err := task.Delete(ctx); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}

		c.hostPorts.unpublish(id, containerIP)
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return fmt.Errorf("delete container: %w", err)
	}
	return nil
}

// buildEnv flattens the ServiceSpec environment list and injects
// HALTI_SERVICE_ID; later duplicate keys win. It also forwards the
// agent's own CAPABILITIES setting into the container so services can
// introspect node capabilities.
func buildEnv(spec types.ServiceSpec) []string {
	merged := make(map[string]string, len(spec.Environment)+2)
	for _, pair := range spec.Environment {
		merged[pair.Key] = pair.Value
	}
	merged[types.EnvServiceID] = spec.ServiceID
	if caps := os.Getenv("CAPABILITIES"); caps != "" {
		if _, set := merged["CAPABILITIES"]; !set {
			merged["CAPABILITIES"] = caps
		}
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	return env
}

func writeExtraHosts(serviceID string, hosts []types.ExtraHost) (string, error) {
	dir := fmt.Sprintf("/run/halti-agent/%s", serviceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := dir + "/hosts"

	var b strings.Builder
	b.WriteString("127.0.0.1\tlocalhost\n")
	for _, h := range hosts {
		b.WriteString(h.IP)
		b.WriteString("\t")
		b.WriteString(h.Host)
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// containerIP resolves a running task's container-side IP by entering
// its network namespace. containerd has no native equivalent of
// Docker's inspect-reported IP, so the agent shells out the same way
// it would query any other process's netns.
func containerIP(ctx context.Context, task containerd.Task) (string, error) {
	pid := task.Pid()
	if pid == 0 {
		return "", fmt.Errorf("task has no pid")
	}

	cmd := exec.CommandContext(ctx, "nsenter", "-t", strconv.Itoa(int(pid)), "-n", "ip", "-4", "addr", "show", "eth0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("nsenter: %w (%s)", err, string(output))
	}

	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "inet ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ip, _, err := net.ParseCIDR(fields[1])
		if err != nil {
			return "", fmt.Errorf("parse address %s: %w", fields[1], err)
		}
		return ip.String(), nil
	}
	return "", fmt.Errorf("no eth0 address found")
}
