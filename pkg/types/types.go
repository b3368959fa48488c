// Package types defines the data model the reconciliation core operates on:
// the desired-state wire shape received from the master and the observed
// shape of containers already on the host.
package types

import (
	"encoding/json"
	"fmt"
)

// Ownership labels stamped on every container the agent creates. The
// ownership label is the sole predicate distinguishing managed containers
// from everything else on the host.
const (
	LabelOwnership = "halti"
	LabelService   = "service"
	LabelVersion   = "version"

	// OwnershipValue is the value stored under LabelOwnership.
	OwnershipValue = "true"

	// EnvServiceID is injected into every container's environment.
	EnvServiceID = "HALTI_SERVICE_ID"
)

// EnvPair is one entry of a ServiceSpec's environment list.
type EnvPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExtraHost is one entry of a ServiceSpec's extra_hosts list, added to the
// container's name resolution.
type ExtraHost struct {
	Host string `json:"host"`
	IP   string `json:"ip"`
}

// PortBinding is the normalized, tagged-variant form of a ServiceSpec port.
// Decoding accepts two wire shapes for backward compatibility:
// a bare integer or all-digit string (Legacy), or an object with port,
// protocol and an optional source host port (Modern). There is no
// runtime type-switch at translation time; Legacy is an explicit field,
// not an interface value to be inspected.
type PortBinding struct {
	Legacy    bool
	Port      int
	Protocol  string // "tcp" or "udp", meaningless when Legacy
	Source    int
	HasSource bool
}

// UnmarshalJSON accepts a bare number, an all-digit string, or
// {"port":N,"protocol":"tcp"|"udp","source":N?}.
func (p *PortBinding) UnmarshalJSON(data []byte) error {
	var asInt int
	if err := json.Unmarshal(data, &asInt); err == nil {
		p.Legacy = true
		p.Port = asInt
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if !isAllDigits(asString) {
			return fmt.Errorf("port binding string %q is not a legacy port", asString)
		}
		p.Legacy = true
		p.Port = parsePositiveInt(asString)
		return nil
	}

	var record struct {
		Port     int    `json:"port"`
		Protocol string `json:"protocol"`
		Source   *int   `json:"source,omitempty"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("port binding %s: %w", string(data), err)
	}
	p.Legacy = false
	p.Port = record.Port
	p.Protocol = record.Protocol
	if record.Source != nil {
		p.HasSource = true
		p.Source = *record.Source
	}
	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parsePositiveInt(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// ServiceSpec is the unit of desired state received from the master.
// Immutable once received; the core never mutates a ServiceSpec in place.
type ServiceSpec struct {
	ServiceID   string        `json:"service_id"`
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Image       string        `json:"image"`
	Ports       []PortBinding `json:"ports"`
	Environment []EnvPair     `json:"environment"`
	Command     []string      `json:"command,omitempty"`
	ExtraHosts  []ExtraHost   `json:"extra_hosts,omitempty"`
}

// HasCommand reports whether s carries a non-empty argv override.
func (s ServiceSpec) HasCommand() bool {
	return len(s.Command) > 0
}

// RunningContainer is the core's view of a container reported by the
// engine adapter. Only containers carrying the ownership label are ever
// visible here; the adapter is responsible for that filtering.
type RunningContainer struct {
	ID           string `json:"id"`
	Name         string `json:"name"` // the service_id that created it
	VersionLabel string `json:"version_label"`
}

// DesiredSnapshot is the decoded heartbeat reply. Fields beyond Services
// are bookkeeping from the master, ignored by the core.
type DesiredSnapshot struct {
	Services []ServiceSpec   `json:"services"`
	Extra    json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes Services and preserves the raw payload in Extra
// without the core ever inspecting fields beyond "services".
func (d *DesiredSnapshot) UnmarshalJSON(data []byte) error {
	type alias struct {
		Services []ServiceSpec `json:"services"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	d.Services = a.Services
	d.Extra = append(json.RawMessage(nil), data...)
	return nil
}
