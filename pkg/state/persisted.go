package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Persisted is the registration outcome saved to disk: an instance_id
// assigned by the master and the heartbeat cadence it asked for.
type Persisted struct {
	InstanceID        string `json:"instance_id"`
	HeartbeatInterval int    `json:"heartbeat_interval"`
}

// Load reads path and decodes a Persisted state. A missing file is not
// an error: it returns (nil, nil), the caller's signal to register.
func Load(path string) (*Persisted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}

	var p Persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	return &p, nil
}

// Save writes p to path, creating or truncating it. Called once, right
// after a successful registration.
func (p Persisted) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write state file %s: %w", path, err)
	}
	return nil
}
