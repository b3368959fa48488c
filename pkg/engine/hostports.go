package engine

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/docker/go-connections/nat"
)

// hostPortPublisher forwards published host ports to a container's
// namespace IP via iptables DNAT, since containerd (unlike Docker
// Engine) has no native port-publishing of its own. One agent process
// owns the whole set of rules it creates; concurrent Start/StopAndRemove
// calls for different services are safe.
type hostPortPublisher struct {
	mu        sync.Mutex
	published map[string][]publishedRule // service_id -> rules
}

type publishedRule struct {
	protocol      string
	hostIP        string
	hostPort      string
	containerIP   string
	containerPort string
}

func newHostPortPublisher() *hostPortPublisher {
	return &hostPortPublisher{published: make(map[string][]publishedRule)}
}

// publish installs DNAT/MASQUERADE/FORWARD rules for every declared
// port. A host port that was not explicitly sourced falls back to the
// container port itself, matching the legacy shape's "same port"
// assumption.
func (p *hostPortPublisher) publish(serviceID, containerIP string, declarations []nat.Port, bindings nat.PortMap) error {
	if len(declarations) == 0 {
		return nil
	}

	rules := make([]publishedRule, 0, len(declarations))
	for _, port := range declarations {
		hostIP := ""
		hostPort := port.Port()
		for _, binding := range bindings[port] {
			hostIP = binding.HostIP
			if binding.HostPort != "" {
				hostPort = binding.HostPort
			}
		}

		rule := publishedRule{
			protocol:      port.Proto(),
			hostIP:        hostIP,
			hostPort:      hostPort,
			containerIP:   containerIP,
			containerPort: port.Port(),
		}
		if err := addRule(rule); err != nil {
			removeRules(rules)
			return fmt.Errorf("publish %s/%s: %w", rule.hostPort, rule.protocol, err)
		}
		rules = append(rules, rule)
	}

	p.mu.Lock()
	p.published[serviceID] = rules
	p.mu.Unlock()
	return nil
}

// unpublish removes every rule previously installed for serviceID.
func (p *hostPortPublisher) unpublish(serviceID, containerIP string) {
	p.mu.Lock()
	rules := p.published[serviceID]
	delete(p.published, serviceID)
	p.mu.Unlock()

	removeRules(rules)
}

func addRule(r publishedRule) error {
	dnat := []string{
		"-t", "nat", "-A", "PREROUTING",
		"-p", r.protocol, "--dport", r.hostPort,
		"-j", "DNAT", "--to-destination", fmt.Sprintf("%s:%s", r.containerIP, r.containerPort),
	}
	if err := runIPTables(dnat); err != nil {
		return fmt.Errorf("dnat: %w", err)
	}

	masq := []string{
		"-t", "nat", "-A", "POSTROUTING",
		"-p", r.protocol, "-d", r.containerIP, "--dport", r.containerPort,
		"-j", "MASQUERADE",
	}
	if err := runIPTables(masq); err != nil {
		_ = runIPTables(invert(dnat))
		return fmt.Errorf("masquerade: %w", err)
	}

	forward := []string{
		"-A", "FORWARD",
		"-p", r.protocol, "-d", r.containerIP, "--dport", r.containerPort,
		"-j", "ACCEPT",
	}
	if err := runIPTables(forward); err != nil {
		_ = runIPTables(invert(dnat))
		_ = runIPTables(invert(masq))
		return fmt.Errorf("forward: %w", err)
	}

	return nil
}

func removeRules(rules []publishedRule) {
	for _, r := range rules {
		dnat := []string{
			"-t", "nat", "-A", "PREROUTING",
			"-p", r.protocol, "--dport", r.hostPort,
			"-j", "DNAT", "--to-destination", fmt.Sprintf("%s:%s", r.containerIP, r.containerPort),
		}
		masq := []string{
			"-t", "nat", "-A", "POSTROUTING",
			"-p", r.protocol, "-d", r.containerIP, "--dport", r.containerPort,
			"-j", "MASQUERADE",
		}
		forward := []string{
			"-A", "FORWARD",
			"-p", r.protocol, "-d", r.containerIP, "--dport", r.containerPort,
			"-j", "ACCEPT",
		}
		_ = runIPTables(invert(dnat))
		_ = runIPTables(invert(masq))
		_ = runIPTables(invert(forward))
	}
}

// invert turns an "-A" (append) rule spec into its "-D" (delete)
// counterpart, so teardown always mirrors exactly what setup created.
func invert(rule []string) []string {
	inverted := make([]string, len(rule))
	copy(inverted, rule)
	for i, arg := range inverted {
		if arg == "-A" {
			inverted[i] = "-D"
		}
	}
	return inverted
}

func runIPTables(args []string) error {
	cmd := exec.Command("iptables", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("iptables %v: %w (%s)", args, err, string(output))
	}
	return nil
}
