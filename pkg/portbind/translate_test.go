package portbind

import (
	"testing"

	"github.com/docker/go-connections/nat"

	"github.com/cuemby/halti-agent/pkg/types"
)

func TestTranslateLegacyPort(t *testing.T) {
	ports := []types.PortBinding{{Legacy: true, Port: 8080}}

	decl, bindings, err := Translate(ports, "127.0.0.1")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := nat.Port("8080/tcp")
	if len(decl) != 1 || decl[0] != want {
		t.Fatalf("declarations = %v, want [%s]", decl, want)
	}
	got := bindings[want]
	if len(got) != 1 || got[0].HostIP != "127.0.0.1" || got[0].HostPort != "" {
		t.Fatalf("bindings[%s] = %+v, want host-chosen port on 127.0.0.1", want, got)
	}
}

func TestTranslateModernUDPWithSource(t *testing.T) {
	ports := []types.PortBinding{{Port: 53, Protocol: "udp", Source: 5353, HasSource: true}}

	decl, bindings, err := Translate(ports, "10.0.0.1")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := nat.Port("53/udp")
	if len(decl) != 1 || decl[0] != want {
		t.Fatalf("declarations = %v, want [%s]", decl, want)
	}
	got := bindings[want]
	if len(got) != 1 || got[0].HostIP != "10.0.0.1" || got[0].HostPort != "5353" {
		t.Fatalf("bindings[%s] = %+v, want 10.0.0.1:5353", want, got)
	}
}

func TestTranslateModernTCPNoSource(t *testing.T) {
	ports := []types.PortBinding{{Port: 80, Protocol: "tcp"}}

	decl, bindings, err := Translate(ports, "127.0.0.1")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := nat.Port("80/tcp")
	if len(decl) != 1 || decl[0] != want {
		t.Fatalf("declarations = %v, want [%s]", decl, want)
	}
	if got := bindings[want]; len(got) != 1 || got[0].HostPort != "" {
		t.Fatalf("bindings[%s] = %+v, want engine-chosen host port", want, got)
	}
}

// TestTranslatePreservesDuplicates checks the open-question resolution:
// duplicate input ports produce duplicate declarations, no de-duplication.
func TestTranslatePreservesDuplicates(t *testing.T) {
	ports := []types.PortBinding{
		{Legacy: true, Port: 80},
		{Legacy: true, Port: 80},
	}

	decl, _, err := Translate(ports, "127.0.0.1")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(decl) != 2 {
		t.Fatalf("declarations = %v, want 2 duplicate entries", decl)
	}
}

func TestTranslateEmpty(t *testing.T) {
	decl, bindings, err := Translate(nil, "127.0.0.1")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(decl) != 0 || len(bindings) != 0 {
		t.Fatalf("expected empty results, got decl=%v bindings=%v", decl, bindings)
	}
}
