package state

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// PlatformDescriptor is the registration request body: enough for the
// master to identify and categorize the node.
type PlatformDescriptor struct {
	CPUCount      int      `json:"cpu_count"`
	OS            string   `json:"os"`
	OSVersion     string   `json:"os_version"`
	Hostname      string   `json:"hostname"`
	EngineName    string   `json:"engine_name"`
	EngineVersion string   `json:"engine_version"`
	Capabilities  []string `json:"capabilities,omitempty"`
}

// BuildDescriptor assembles a PlatformDescriptor for this host.
// engineName/engineVersion come from the caller because only the
// engine adapter knows its own backend and version.
func BuildDescriptor(engineName, engineVersion string) PlatformDescriptor {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return PlatformDescriptor{
		CPUCount:      runtime.NumCPU(),
		OS:            runtime.GOOS,
		OSVersion:     kernelVersion(),
		Hostname:      hostname,
		EngineName:    engineName,
		EngineVersion: engineVersion,
		Capabilities:  capabilities(),
	}
}

// kernelVersion shells out to uname, the same way the engine adapter
// shells out to nsenter: there is no portable stdlib equivalent.
func kernelVersion() string {
	out, err := exec.Command("uname", "-r").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// capabilities reads the CAPABILITIES environment variable: a
// comma-separated list of tags, opaque to the core, advertised to the
// master as-is.
func capabilities() []string {
	raw := os.Getenv("CAPABILITIES")
	if raw == "" {
		return nil
	}

	var caps []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			caps = append(caps, tag)
		}
	}
	return caps
}
