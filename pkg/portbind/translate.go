// Package portbind translates a ServiceSpec's port list into the
// declaration/binding pair an engine adapter needs to expose and publish
// ports, using go-connections/nat's "80/tcp"-style port representation
// the wider container ecosystem already standardizes on.
package portbind

import (
	"fmt"
	"strconv"

	"github.com/docker/go-connections/nat"

	"github.com/cuemby/halti-agent/pkg/types"
)

// Translate builds the ports_declaration sequence and the port_bindings
// map for a ServiceSpec's ports. Declarations are returned as a slice
// in input order with no de-duplication: a caller supplying duplicate
// ports gets duplicate declarations back. Translate does not check the
// result for contradictions.
func Translate(ports []types.PortBinding, bindIP string) ([]nat.Port, nat.PortMap, error) {
	declarations := make([]nat.Port, 0, len(ports))
	bindings := make(nat.PortMap, len(ports))

	for _, p := range ports {
		proto := "tcp"
		if !p.Legacy && p.Protocol == "udp" {
			proto = "udp"
		}

		port, err := nat.NewPort(proto, strconv.Itoa(p.Port))
		if err != nil {
			return nil, nil, fmt.Errorf("translate port %d/%s: %w", p.Port, proto, err)
		}
		declarations = append(declarations, port)

		binding := nat.PortBinding{HostIP: bindIP}
		if !p.Legacy && p.HasSource {
			binding.HostPort = strconv.Itoa(p.Source)
		}
		bindings[port] = append(bindings[port], binding)
	}

	return declarations, bindings, nil
}
